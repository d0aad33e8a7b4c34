// Package convert turns a mind map tree into an .xmind archive, falling back
// through simpler builders until one produces a document.
package convert

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/text2mind/internal/layout"
	"github.com/dgallion1/text2mind/internal/mindtree"
	"github.com/dgallion1/text2mind/internal/xmind"
)

// ErrConversionFailed is returned when no tier could produce the output file.
var ErrConversionFailed = errors.New("conversion failed")

// Tier identifies the builder that produced a document.
type Tier int

const (
	TierPrimary Tier = iota + 1
	TierLibrary
	TierMinimal
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierLibrary:
		return "library"
	case TierMinimal:
		return "minimal"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// next is the transition taken when t fails.
func (t Tier) next() (Tier, bool) {
	switch t {
	case TierPrimary:
		return TierLibrary, true
	case TierLibrary:
		return TierMinimal, true
	}
	return 0, false
}

// Input is what every tier builds from.
type Input struct {
	Sheet xmind.Sheet
	// WorkDir is private to one conversion and removed when it ends.
	WorkDir string
}

// Builder writes a complete archive for in to w.
type Builder interface {
	Build(in Input, w io.Writer) error
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(in Input, w io.Writer) error

func (f BuilderFunc) Build(in Input, w io.Writer) error { return f(in, w) }

// Options configures a Converter. Zero values select the built-in tiers and
// the system temp directory.
type Options struct {
	WorkDir   string
	Padding   bool
	Thumbnail bool
	Now       func() time.Time
	Log       *slog.Logger

	Primary Builder
	Library Builder
	Minimal Builder
}

// Result describes a finished conversion.
type Result struct {
	Tier     Tier            `json:"tier"`
	Nodes    int             `json:"nodes"`
	Strategy layout.Strategy `json:"strategy"`
	Path     string          `json:"path"`
	Size     int64           `json:"size"`
}

// Converter runs the tiers. It holds no per-conversion state and is safe for
// concurrent use.
type Converter struct {
	workDir string
	log     *slog.Logger
	tiers   map[Tier]Builder
}

func New(opts Options) *Converter {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	enc := xmind.NewEncoder(log)
	if opts.Now != nil {
		enc.Now = opts.Now
	}

	c := &Converter{
		workDir: opts.WorkDir,
		log:     log,
		tiers: map[Tier]Builder{
			TierPrimary: &primaryBuilder{enc: enc, padding: opts.Padding, thumbnail: opts.Thumbnail, log: log},
			TierLibrary: libraryBuilder{},
			TierMinimal: minimalBuilder{},
		},
	}
	if opts.Primary != nil {
		c.tiers[TierPrimary] = opts.Primary
	}
	if opts.Library != nil {
		c.tiers[TierLibrary] = opts.Library
	}
	if opts.Minimal != nil {
		c.tiers[TierMinimal] = opts.Minimal
	}
	return c
}

// Convert writes root as an archive at dst. A tier failure moves on to the
// next tier; an error is returned only when every tier failed or the result
// could not be written to dst, and then dst is left as it was.
func (c *Converter) Convert(root *mindtree.Node, dst string) (Result, error) {
	sheet := xmind.NewSheet(root)
	log := c.log.With("nodes", sheet.Nodes, "strategy", sheet.Strategy.String())

	work, err := os.MkdirTemp(c.workDir, "text2mind-*")
	if err != nil {
		log.Error("create work dir failed", "error", err)
		return Result{}, fmt.Errorf("%w: create work dir: %w", ErrConversionFailed, err)
	}
	defer os.RemoveAll(work)

	in := Input{Sheet: sheet, WorkDir: work}
	tier := TierPrimary
	for {
		built, err := c.attempt(tier, in)
		if err == nil {
			size, err := publish(built, dst)
			if err != nil {
				log.Error("publish failed", "tier", tier.String(), "dst", dst, "error", err)
				return Result{}, fmt.Errorf("%w: %w", ErrConversionFailed, err)
			}
			if tier != TierPrimary {
				log.Info("converted with fallback", "tier", tier.String())
			}
			return Result{
				Tier:     tier,
				Nodes:    sheet.Nodes,
				Strategy: sheet.Strategy,
				Path:     dst,
				Size:     size,
			}, nil
		}

		next, ok := tier.next()
		if !ok {
			log.Error("all tiers failed", "tier", tier.String(), "stage", stageOf(err), "error", err)
			return Result{}, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}
		log.Warn("tier failed",
			"tier", tier.String(),
			"next", next.String(),
			"stage", stageOf(err),
			"nodes", sheet.Nodes,
			"error", err,
		)
		tier = next
	}
}

// attempt runs one tier into a fresh file in the work dir. Panics are turned
// into errors so the chain can continue.
func (c *Converter) attempt(tier Tier, in Input) (path string, err error) {
	path = filepath.Join(in.WorkDir, tier.String()+".xmind")
	f, err := os.Create(path)
	if err != nil {
		return "", &xmind.StageError{Stage: "create", Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s builder panicked: %v", tier, r)
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &xmind.StageError{Stage: "close", Err: cerr}
		}
		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	if err := c.tiers[tier].Build(in, f); err != nil {
		return "", err
	}
	return path, nil
}

func stageOf(err error) string {
	var se *xmind.StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "build"
}

// publish copies src next to dst and renames it into place.
func publish(src, dst string) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp output: %w", err)
	}
	n, err := io.Copy(tmp, in)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("publish %s: %w", dst, err)
	}
	return n, nil
}
