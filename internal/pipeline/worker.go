package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/text2mind/internal/convert"
	"github.com/dgallion1/text2mind/internal/mindtree"
	"github.com/dgallion1/text2mind/internal/parser"
)

// Worker processes a single conversion job.
type Worker struct {
	conv      *convert.Converter
	stats     *Stats
	log       *slog.Logger
	outputDir string
	parseOpts parser.Options
}

func NewWorker(conv *convert.Converter, stats *Stats, log *slog.Logger, outputDir string, parseOpts parser.Options) *Worker {
	return &Worker{
		conv:      conv,
		stats:     stats,
		log:       log,
		outputDir: outputDir,
		parseOpts: parseOpts,
	}
}

// Process parses the job's upload and converts it into an archive under the
// worker's output directory.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	tree, err := parser.Parse(job.Filename, bytes.NewReader(job.FileData()), w.parseOpts)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		tree.Title = job.Title
	}
	job.releaseFileData()
	nodes := mindtree.CountNodes(tree)
	job.SetNodes(nodes)
	log.Debug("parsed", "nodes", nodes, "depth", mindtree.MaxDepth(tree))

	// Phase 2: Convert
	job.SetStatus(StatusConverting, "converting")
	dst := filepath.Join(w.outputDir, job.ID+".xmind")
	start := time.Now()
	res, err := w.conv.Convert(tree, dst)
	elapsed := time.Since(start)
	if err != nil {
		w.stats.RecordFailure(elapsed)
		log.Error("conversion failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	w.stats.Record(elapsed, res.Tier)
	job.SetResult(res)

	log.Info("conversion complete",
		"nodes", res.Nodes,
		"strategy", res.Strategy.String(),
		"tier", res.Tier.String(),
		"bytes", res.Size,
		"duration_ms", elapsed.Milliseconds(),
	)
	job.SetStatus(StatusCompleted, "done")
}
