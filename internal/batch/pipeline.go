// Package batch drives whole files and directories through the
// pipeline: load, segment, resolve each segment against the engine
// chain, merge, and report.
package batch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/classify"
	"github.com/sunghoon-yu/tradedocs/internal/engine"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
	"github.com/sunghoon-yu/tradedocs/internal/merge"
)

// PageLoader turns a file path into ordered pages.
type PageLoader interface {
	Load(path string) ([]entity.Page, error)
}

// SegmentResolver runs the fallback chain for one segment.
type SegmentResolver interface {
	Resolve(ctx context.Context, req engine.Request) ([]entity.RawResult, []entity.ExtractionAttempt, error)
}

// Pipeline processes one file end to end.
type Pipeline struct {
	loader    PageLoader
	segmenter *classify.Segmenter
	resolver  SegmentResolver
	merger    *merge.Merger
	deadline  time.Duration
	logger    *slog.Logger
}

func NewPipeline(
	loader PageLoader,
	segmenter *classify.Segmenter,
	resolver SegmentResolver,
	merger *merge.Merger,
	deadline time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:    loader,
		segmenter: segmenter,
		resolver:  resolver,
		merger:    merger,
		deadline:  deadline,
		logger:    logger,
	}
}

// ProcessFile runs one file and always returns a report; errors end
// up inside it rather than propagating. Segments resolve concurrently
// under a shared per-file deadline.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) entity.FileReport {
	report := entity.FileReport{
		FilePath:  path,
		StartedAt: time.Now(),
		Status:    constants.FileFailed,
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	pages, err := p.loader.Load(path)
	if err != nil {
		report.Error = err.Error()
		p.logger.Error("pipeline.load_failed", "file", path, "error", err)
		return report
	}
	report.TotalPages = len(pages)

	segments := p.segmenter.Segment(ctx, pages)
	if len(segments) == 0 {
		report.Error = "no pages to process"
		return report
	}

	records := make([]entity.DocumentRecord, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg entity.Segment) {
			defer wg.Done()
			records[i] = p.processSegment(ctx, path, pages, seg)
		}(i, seg)
	}
	wg.Wait()

	report.Records = records
	report.EnginesUsed = enginesUsed(records)
	report.Status = fileStatus(records)

	p.logger.Info("pipeline.file_done",
		"file", path,
		"pages", report.TotalPages,
		"segments", len(segments),
		"status", report.Status,
	)
	return report
}

func (p *Pipeline) processSegment(ctx context.Context, path string, pages []entity.Page, seg entity.Segment) entity.DocumentRecord {
	rec := entity.DocumentRecord{
		DocType:   seg.DocType,
		PageStart: seg.Start,
		PageEnd:   seg.End,
		Status:    constants.SegmentFailed,
	}

	schema := fields.ForDocType(seg.DocType)
	req := engine.Request{
		FilePath: path,
		Segment:  seg,
		Pages:    classify.PagesFor(pages, seg),
		Schema:   schema,
	}

	results, attempts, err := p.resolver.Resolve(ctx, req)
	rec.Attempts = attempts
	if err != nil {
		rec.Error = err.Error()
		p.logger.Warn("pipeline.segment_failed",
			"file", path, "segment", seg.String(), "error", err)
		return rec
	}

	rec.Fields = p.merger.Merge(schema, results)
	rec.Status = constants.SegmentResolved
	rec.Confidence = recordConfidence(rec.Fields)
	return rec
}

// recordConfidence is the mean merged-field confidence.
func recordConfidence(merged map[string]entity.FieldValue) float32 {
	if len(merged) == 0 {
		return 0
	}
	var sum float32
	for _, fv := range merged {
		sum += fv.Confidence
	}
	return sum / float32(len(merged))
}

func fileStatus(records []entity.DocumentRecord) constants.FileStatus {
	resolved := 0
	for _, r := range records {
		if r.Status == constants.SegmentResolved {
			resolved++
		}
	}
	switch {
	case resolved == len(records):
		return constants.FileCompleted
	case resolved > 0:
		return constants.FilePartial
	default:
		return constants.FileFailed
	}
}

func enginesUsed(records []entity.DocumentRecord) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for _, a := range r.Attempts {
			seen[a.EngineID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

