package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch INPUT OUTPUT",
		Short: "Re-convert a file whenever it changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], outputPath(args[0], args[1])
			w := cmd.OutOrStdout()

			rebuild := func() error {
				res, err := a.convertFile(in, out, "")
				if err != nil {
					formatFailure(w, in, err)
					return err
				}
				formatResult(w, in, res)
				return nil
			}
			if err := rebuild(); err != nil {
				a.log.Warn("initial build failed", "path", in, "error", err)
			}

			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("watching"), pathStyle.Render(in))
			fw := &fileWatcher{path: in, delay: debounce, onChange: rebuild, log: a.log}
			return fw.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "wait this long after the last change before converting")
	return cmd
}

// fileWatcher calls onChange once a burst of writes to path settles.
// The parent directory is watched so editors that save by renaming a
// temporary file over path are still seen.
type fileWatcher struct {
	path     string
	delay    time.Duration
	onChange func() error
	log      *slog.Logger
}

// Run blocks until ctx is done.
func (fw *fileWatcher) Run(ctx context.Context) error {
	target, err := filepath.Abs(fw.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", fw.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !isContentChange(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.delay)
			} else {
				timer.Reset(fw.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := fw.onChange(); err != nil {
				fw.log.Warn("rebuild failed", "path", fw.path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fw.log.Warn("file watcher error", "error", err)
		}
	}
}

func isContentChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
