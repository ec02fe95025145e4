package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/models"
	"vidnarrate/utils"
)

// Pipeline stages, reported in this order.
const (
	StageTranslating  = "translating"
	StageSynthesizing = "synthesizing"
	StageReconciling  = "reconciling"
	StageMerging      = "merging"
	StageCompleted    = "completed"
)

var stageProgress = map[string]int{
	StageTranslating:  10,
	StageSynthesizing: 40,
	StageReconciling:  70,
	StageMerging:      90,
	StageCompleted:    100,
}

// StageProgress returns the completion percentage reached when stage starts.
func StageProgress(stage string) int {
	return stageProgress[stage]
}

// ProgressFunc receives stage transitions. It must not block.
type ProgressFunc func(stage string, percent int)

// PipelineInput identifies one narration job.
type PipelineInput struct {
	JobID          string
	VideoPath      string
	Description    string
	TargetLanguage string
	Voice          string
}

// Pipeline runs narration, reconciliation and muxing for one video.
type Pipeline struct {
	narrator   *NarrationManager
	reconciler *Reconciler
	muxer      *Muxer
	tempDir    string
	outputDir  string
	logger     *zap.Logger
}

func NewPipeline(narrator *NarrationManager, reconciler *Reconciler, muxer *Muxer, tempDir, outputDir string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		narrator:   narrator,
		reconciler: reconciler,
		muxer:      muxer,
		tempDir:    tempDir,
		outputDir:  outputDir,
		logger:     logger.Named("pipeline"),
	}
}

// OutputPath is where Run places the finished video for jobID.
func (p *Pipeline) OutputPath(jobID string) string {
	return filepath.Join(p.outputDir, jobID+".mp4")
}

// ValidateDescription checks narration text against the snapshot's limits.
func ValidateDescription(text string, settings config.Settings) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDescription
	}
	if settings.MaxDescriptionLength > 0 && utf8.RuneCountInString(text) > settings.MaxDescriptionLength {
		return fmt.Errorf("%w (%d characters max)", ErrDescriptionTooLong, settings.MaxDescriptionLength)
	}
	return nil
}

// Run produces the narrated video and returns its path. Scratch files live in
// a per-job workspace that is removed on every exit path. Cancelling ctx stops
// in-flight HTTP calls and media processes.
func (p *Pipeline) Run(ctx context.Context, in PipelineInput, settings config.Settings, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	if err := ValidateDescription(in.Description, settings); err != nil {
		return "", err
	}
	if !utils.FileExists(in.VideoPath) {
		return "", fmt.Errorf("video file not found: %s", in.VideoPath)
	}

	log := p.logger.With(zap.String("job_id", in.JobID), zap.String("language", in.TargetLanguage))
	start := time.Now()

	ws, err := utils.NewWorkspace(p.tempDir, in.JobID)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn("failed to remove workspace", zap.String("path", ws.Root), zap.Error(err))
		}
	}()

	voice := in.Voice
	if voice == "" {
		voice = settings.DefaultVoice
	}
	req := models.NarrationRequest{
		Text:             in.Description,
		TargetLanguage:   in.TargetLanguage,
		Voice:            voice,
		TranslateEnabled: settings.TranslationEnabled,
	}

	stage := StageSynthesizing
	if req.TranslateEnabled && req.TargetLanguage != models.SourceLanguage {
		stage = StageTranslating
	}
	progress(stage, StageProgress(stage))

	narrator := p.narrator.ForSettings(settings).WithStages(func(stage string) {
		progress(stage, StageProgress(stage))
	})
	narration, err := narrator.Synthesize(ctx, req)
	if err != nil {
		return "", err
	}

	audioPath := ws.AudioPath("narration.mp3")
	if err := os.WriteFile(audioPath, narration.Audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write narration: %w", err)
	}
	log.Info("narration ready",
		zap.String("provider", string(narration.Provider)),
		zap.Bool("translated", narration.WasTranslated))

	progress(StageReconciling, StageProgress(StageReconciling))
	fitted, err := p.reconciler.Reconcile(ctx, audioPath, in.VideoPath, ws.AudioPath("narration_fit.mp3"))
	if err != nil {
		return "", err
	}

	progress(StageMerging, StageProgress(StageMerging))
	outputPath, err := p.muxer.Merge(ctx, in.VideoPath, fitted.OutputPath, p.OutputPath(in.JobID))
	if err != nil {
		return "", err
	}

	progress(StageCompleted, StageProgress(StageCompleted))
	log.Info("pipeline completed",
		zap.String("output", outputPath),
		zap.String("strategy", string(fitted.Applied)),
		zap.Duration("took", time.Since(start)))
	return outputPath, nil
}
