package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/text2mind/internal/parser"
	"github.com/dgallion1/text2mind/internal/version"
	"github.com/dgallion1/text2mind/internal/xmind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outline = "Weekly\n  Plan\n    Item\n  Review\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func archiveEntries(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestConvert_DefaultOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "weekly.txt")
	writeFile(t, in, outline)

	out, err := run(t, "convert", "--padding=false", in)
	require.NoError(t, err)

	want := filepath.Join(dir, "weekly.xmind")
	assert.FileExists(t, want)
	assert.Contains(t, out, want)
	assert.Contains(t, out, "nodes: 4")
	assert.Contains(t, out, "primary")
	assert.Contains(t, archiveEntries(t, want), xmind.ContentPath)
	assert.NotContains(t, archiveEntries(t, want), xmind.PaddingPath)
}

func TestConvert_AppendsExtension(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.md")
	writeFile(t, in, "# Notes\n\n- a\n- b\n")

	_, err := run(t, "convert", "--padding=false", "--title", "Plan", in, filepath.Join(dir, "map"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "map.xmind"))
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "convert", filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	slides := filepath.Join(dir, "slides.pptx")
	writeFile(t, slides, "x")
	_, err = run(t, "convert", slides)
	assert.True(t, errors.Is(err, parser.ErrUnsupportedFormat), "got %v", err)
	assert.NoFileExists(t, filepath.Join(dir, "slides.xmind"))

	_, err = run(t, "convert")
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "maps")
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, a, outline)
	writeFile(t, b, "# B\n- one\n")
	writeFile(t, bad, `{"title": [`)

	out, err := run(t, "batch", "--padding=false", a, b, bad, outDir)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 conversions failed", err.Error())

	assert.FileExists(t, filepath.Join(outDir, "a.xmind"))
	assert.FileExists(t, filepath.Join(outDir, "b.xmind"))
	assert.NoFileExists(t, filepath.Join(outDir, "bad.xmind"))
	assert.Contains(t, out, "2 converted")
	assert.Contains(t, out, "1 failed")
}

func TestBatch_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, outline)

	out, err := run(t, "batch", "--padding=false", a, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 converted")
	assert.NotContains(t, out, "failed")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "text2mind "+version.String()+"\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "text2mind.yaml")
	writeFile(t, cfg, "padding: false\nthumbnail: false\n")
	in := filepath.Join(dir, "weekly.txt")
	writeFile(t, in, outline)

	_, err := run(t, "convert", "--config", cfg, in)
	require.NoError(t, err)
	names := archiveEntries(t, filepath.Join(dir, "weekly.xmind"))
	assert.NotContains(t, names, xmind.PaddingPath)
	assert.Contains(t, names, xmind.ThumbnailPath)

	_, err = run(t, "convert", "--config", filepath.Join(dir, "nope.yaml"), in)
	assert.ErrorContains(t, err, "read config")
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("TEXT2MIND_LOG_LEVEL", "loud")
	_, err := run(t, "version")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, out, want string
	}{
		{"notes.txt", "", "notes.xmind"},
		{"dir/notes", "", "dir/notes.xmind"},
		{"notes.txt", "map", "map.xmind"},
		{"notes.txt", "map.xmind", "map.xmind"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outputPath(tt.in, tt.out), "%s %q", tt.in, tt.out)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
}

func TestFileWatcher_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "outline.txt")
	writeFile(t, target, "a")

	var calls atomic.Int32
	fw := &fileWatcher{
		path:     target,
		delay:    50 * time.Millisecond,
		onChange: func() error { calls.Add(1); return nil },
		log:      slog.New(slog.DiscardHandler),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.txt"), "ignored")
	for i := range 5 {
		writeFile(t, target, strings.Repeat("a", i+2))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestWatchCmd_Reconverts(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "weekly.txt")
	out := filepath.Join(dir, "weekly.xmind")
	writeFile(t, in, outline)

	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"watch", "--padding=false", "--debounce", "20ms", in, out})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.Remove(out))

	time.Sleep(100 * time.Millisecond)
	writeFile(t, in, outline+"  Retro\n")
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, buf.String(), "watching")
}

func TestWatchCmd_LogsInitialFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "later.txt")

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"watch", "--padding=false", in, filepath.Join(dir, "later.xmind")})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.Contains(t, errOut.String(), "initial build failed")
	assert.Contains(t, errOut.String(), "later.txt")
	assert.Contains(t, out.String(), "watching")
}
