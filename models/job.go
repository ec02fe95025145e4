package models

import "time"

// Job statuses
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
)

// MergeJob is the job layer's record of one pipeline invocation.
type MergeJob struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Status         string    `gorm:"size:20;default:'pending';index" json:"status"`
	Progress       int       `json:"progress"`
	CurrentStep    string    `gorm:"size:64" json:"current_step"`
	InputPath      string    `gorm:"type:text" json:"-"`
	Description    string    `gorm:"type:text" json:"description_text"`
	TargetLanguage string    `gorm:"size:16" json:"target_language"`
	Voice          string    `gorm:"size:64" json:"voice"`
	OutputPath     string    `gorm:"type:text" json:"output_file_path,omitempty"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MergeJob) TableName() string {
	return "merge_jobs"
}

// Terminal reports whether the job will not change state again.
func (j *MergeJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed || j.Status == JobCancelled
}

// Setting is a persisted override of a configuration snapshot value.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "settings"
}

// CreateJobResponse returns the job ID
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse returns current progress
type JobResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"current_step"`
	DownloadURL *string   `json:"download_url,omitempty"`
	Error       *string   `json:"error_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
