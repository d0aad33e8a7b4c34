package pipeline

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dgallion1/text2mind/internal/config"
	"github.com/dgallion1/text2mind/internal/convert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 4
	cfg.OutputDir = t.TempDir()
	cfg.WorkDir = t.TempDir()
	cfg.Padding = false
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg config.Config) *Orchestrator {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	conv := convert.New(convert.Options{WorkDir: cfg.WorkDir, Log: log})
	return NewOrchestrator(cfg, conv, log)
}

func waitFor(t *testing.T, job *Job, want ...JobStatus) JobSnapshot {
	t.Helper()
	var snap JobSnapshot
	require.Eventually(t, func() bool {
		snap = job.Snapshot()
		for _, s := range want {
			if snap.Status == s {
				return true
			}
		}
		return false
	}, 10*time.Second, 10*time.Millisecond)
	return snap
}

func TestOrchestrator_ConvertsSubmittedJobs(t *testing.T) {
	cfg := testConfig(t)
	orch := newTestOrchestrator(t, cfg)
	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	job := NewJob("weekly.txt", "", []byte("- Weekly\n    - Next week plan\n        - Item"))
	require.NoError(t, orch.Submit(job))
	assert.Same(t, job, orch.GetJob(job.ID))

	snap := waitFor(t, job, StatusCompleted, StatusFailed)
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Progress.Errors)
	assert.Equal(t, 3, snap.Progress.Nodes)
	assert.Equal(t, "primary", snap.Progress.Tier)
	assert.Nil(t, job.FileData(), "upload should be released after parsing")

	info, err := os.Stat(job.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, snap.Progress.Bytes, info.Size())

	stats := orch.Stats().Snapshot()
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(1), stats.Tiers["primary"])
}

func TestOrchestrator_TitleOverride(t *testing.T) {
	cfg := testConfig(t)
	orch := newTestOrchestrator(t, cfg)
	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	job := NewJob("notes.md", "Quarterly plan", []byte("# Notes\n\n- a\n- b\n"))
	require.NoError(t, orch.Submit(job))
	snap := waitFor(t, job, StatusCompleted, StatusFailed)
	require.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.Progress.Nodes)
}

func TestOrchestrator_ParseFailure(t *testing.T) {
	cfg := testConfig(t)
	orch := newTestOrchestrator(t, cfg)
	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	job := NewJob("broken.json", "", []byte(`{"title": [`))
	require.NoError(t, orch.Submit(job))

	snap := waitFor(t, job, StatusCompleted, StatusFailed)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "parsing", snap.Phase)
	require.Len(t, snap.Progress.Errors, 1)
	assert.Empty(t, job.OutputPath())
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxQueueSize = 1
	orch := newTestOrchestrator(t, cfg)
	// Not started: nothing drains the queue.

	require.NoError(t, orch.Submit(NewJob("a.txt", "", []byte("a"))))
	rejected := NewJob("b.txt", "", []byte("b"))
	err := orch.Submit(rejected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
	assert.Equal(t, StatusFailed, rejected.Snapshot().Status)
	assert.Equal(t, 1, orch.QueueDepth())
	orch.Stop()
}

func TestWorker_CancelledContext(t *testing.T) {
	cfg := testConfig(t)
	log := slog.New(slog.DiscardHandler)
	w := NewWorker(convert.New(convert.Options{Log: log}), NewStats(time.Hour), log, cfg.OutputDir, parserOptions(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewJob("a.txt", "", []byte("a"))
	w.Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "cancelled", snap.Phase)
}

func TestCleanupInterval(t *testing.T) {
	assert.Equal(t, 5*time.Minute, cleanupInterval(time.Hour))
	assert.Equal(t, 30*time.Second, cleanupInterval(time.Minute))
	assert.Equal(t, time.Second, cleanupInterval(time.Millisecond))
}
