package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Workspace is the per-job scratch directory: <base>/<jobID>/{audio,output}.
// Names inside it derive from the job ID, so concurrent jobs never collide.
type Workspace struct {
	Root  string
	JobID string
}

// NewWorkspace creates temporary directories for a job
func NewWorkspace(baseDir, jobID string) (*Workspace, error) {
	if jobID == "" {
		return nil, fmt.Errorf("workspace requires a job id")
	}
	root := filepath.Join(baseDir, jobID)

	dirs := []string{
		root,
		filepath.Join(root, "audio"),
		filepath.Join(root, "output"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Workspace{Root: root, JobID: jobID}, nil
}

// AudioPath returns a path inside the workspace audio directory.
func (w *Workspace) AudioPath(name string) string {
	return filepath.Join(w.Root, "audio", name)
}

// OutputPath returns a path inside the workspace output directory.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.Root, "output", name)
}

// Cleanup removes all temporary files for the job
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Root)
}

// CopyFile copies src to dst byte for byte.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveOlderThan deletes direct children of dir last modified before cutoff,
// except those keep reports true for. keep may be nil. A missing dir is not an error.
func RemoveOlderThan(dir string, cutoff time.Time, keep func(name string) bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if keep != nil && keep(entry.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
