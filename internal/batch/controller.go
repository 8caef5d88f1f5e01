package batch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

// Controller fans a batch of files across the pipeline. One file's
// failure never touches another file's outcome.
type Controller struct {
	cfg      common.BatchConfig
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewController(cfg common.BatchConfig, pipeline *Pipeline, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Controller{cfg: cfg, pipeline: pipeline, logger: logger}
}

// Run processes every path and returns the batch report. Order of
// reports matches the order of paths regardless of worker scheduling.
func (c *Controller) Run(ctx context.Context, paths []string) entity.BatchReport {
	batchID := uuid.New().String()
	ctx = common.WithBatchID(ctx, batchID)

	report := entity.BatchReport{
		BatchID:   batchID,
		StartedAt: time.Now(),
		Files:     make([]entity.FileReport, len(paths)),
	}
	c.logger.Info("batch.start", "batch_id", batchID, "files", len(paths), "workers", c.cfg.Workers)

	workers := 1
	if c.cfg.Parallel {
		workers = c.cfg.Workers
		if workers > len(paths) && len(paths) > 0 {
			workers = len(paths)
		}
	}

	type task struct {
		idx  int
		path string
	}
	tasks := make(chan task)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				report.Files[t.idx] = c.processOne(ctx, t.path)
			}
		}()
	}
	for i, p := range paths {
		tasks <- task{idx: i, path: p}
	}
	close(tasks)
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)
	report.Summarize()
	c.logger.Info("batch.done",
		"batch_id", batchID,
		"completed", report.Completed,
		"partial", report.Partial,
		"failed", report.Failed,
		"elapsed_ms", report.Duration.Milliseconds(),
	)
	return report
}

// processOne isolates a single file, recovering from panics so a
// corrupt input cannot take the batch down with it.
func (c *Controller) processOne(ctx context.Context, path string) (report entity.FileReport) {
	ctx = common.WithRequestID(ctx, uuid.New().String())
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("batch.file_panicked", "file", path, "panic", r)
			report = entity.FileReport{
				FilePath: path,
				Status:   constants.FileFailed,
				Error:    "internal processing failure",
			}
		}
	}()
	return c.pipeline.ProcessFile(ctx, path)
}

// DiscoverFiles expands paths into the concrete files to process:
// directories are walked, unsupported extensions skipped.
func DiscoverFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, common.WrapError(err, "stat input path")
		}
		if !info.IsDir() {
			if constants.MapExtToFormat(filepath.Ext(p)) != "" {
				out = append(out, p)
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if constants.MapExtToFormat(filepath.Ext(path)) != "" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, common.WrapError(err, "walk input directory")
		}
	}
	sort.Strings(out)
	return out, nil
}
