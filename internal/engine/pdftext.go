package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// PDFTextEngine reads the native PDF text layer (already materialized
// on the Page at load time) and runs the heuristic field patterns over
// it. Cheap and local; useless on scanned pages.
type PDFTextEngine struct {
	spec   common.EngineSpec
	logger *slog.Logger
}

func NewPDFTextEngine(spec common.EngineSpec, logger *slog.Logger) *PDFTextEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextEngine{spec: spec, logger: logger}
}

func (e *PDFTextEngine) ID() string              { return e.spec.ID }
func (e *PDFTextEngine) Spec() common.EngineSpec { return e.spec }

func (e *PDFTextEngine) Extract(ctx context.Context, req Request) (entity.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.RawResult{}, err
	}

	textPages := make([]entity.Page, 0, len(req.Pages))
	for _, p := range req.Pages {
		if p.HasTextLayer {
			textPages = append(textPages, p)
		}
	}
	if len(textPages) == 0 {
		return entity.RawResult{}, NewError(e.spec.ID, FailureUnsupported,
			fmt.Errorf("segment %s has no native text layer", req.Segment))
	}

	fieldMap := fields.Extract(textPages, req.Schema)
	text := fields.JoinPages(textPages)

	res := entity.RawResult{
		EngineID:   e.spec.ID,
		Text:       text,
		Fields:     fieldMap,
		Confidence: resultConfidence(req.Schema, fieldMap, text),
	}
	e.logger.Debug("engine.pdftext.extracted",
		"segment", req.Segment.String(),
		"fields", len(fieldMap),
		"confidence", res.Confidence,
	)
	return res, nil
}
