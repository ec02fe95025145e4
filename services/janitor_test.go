package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitorSweep(t *testing.T) {
	outputs := t.TempDir()
	uploads := t.TempDir()
	old := filepath.Join(outputs, "old.mp4")
	fresh := filepath.Join(uploads, "fresh.mp4")
	require.NoError(t, os.WriteFile(old, nil, 0644))
	require.NoError(t, os.WriteFile(fresh, nil, 0644))
	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	j, err := NewJanitor("@every 1h", 24*time.Hour, nopLogger(), outputs, uploads, filepath.Join(outputs, "missing"))
	require.NoError(t, err)

	assert.Equal(t, 1, j.Sweep())
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestJanitorInvalidSchedule(t *testing.T) {
	_, err := NewJanitor("every hour", time.Hour, nopLogger())
	assert.Error(t, err)
}

func TestJanitorStartStop(t *testing.T) {
	j, err := NewJanitor("@every 1h", time.Hour, nopLogger(), t.TempDir())
	require.NoError(t, err)
	j.Start()
	j.Stop()
}

func TestJanitorSkipsActiveJobs(t *testing.T) {
	temp := t.TempDir()
	uploads := t.TempDir()
	past := time.Now().Add(-2 * time.Minute)

	live := filepath.Join(temp, "job-live")
	require.NoError(t, os.MkdirAll(filepath.Join(live, "audio"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(live, "audio", "narration.mp3"), []byte("partial"), 0644))
	queued := filepath.Join(uploads, "job-queued.mp4")
	require.NoError(t, os.WriteFile(queued, nil, 0644))
	done := filepath.Join(temp, "job-done")
	require.NoError(t, os.Mkdir(done, 0755))
	for _, path := range []string{live, queued, done} {
		require.NoError(t, os.Chtimes(path, past, past))
	}

	j, err := NewJanitor("@every 1h", time.Minute, nopLogger(), temp, uploads)
	require.NoError(t, err)
	j.Protect(func(jobID string) bool { return jobID == "job-live" || jobID == "job-queued" })

	assert.Equal(t, 1, j.Sweep())
	assert.FileExists(t, filepath.Join(live, "audio", "narration.mp3"))
	assert.FileExists(t, queued)
	assert.NoDirExists(t, done)
}
