package classify

import (
	"context"
	"log/slog"

	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

// Segmenter splits a loaded file into contiguous single-document
// segments. A multi-page PDF from a trading desk routinely staples a
// tax invoice, its bill of lading and the remittance slip together.
type Segmenter struct {
	cfg        common.ClassifyConfig
	classifier *Classifier
	logger     *slog.Logger
}

func NewSegmenter(cfg common.ClassifyConfig, classifier *Classifier, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{cfg: cfg, classifier: classifier, logger: logger}
}

// Segment walks the pages in order, classifying each and merging
// runs of the same type. A page whose own signal is weaker than the
// continuation threshold inherits the segment it follows instead of
// opening a new one.
func (s *Segmenter) Segment(ctx context.Context, pages []entity.Page) []entity.Segment {
	if len(pages) == 0 {
		return nil
	}

	var segments []entity.Segment
	var confSum float32
	var confPages int

	flush := func(seg *entity.Segment) {
		if confPages > 0 {
			seg.Confidence = confSum / float32(confPages)
		}
		segments = append(segments, *seg)
		confSum, confPages = 0, 0
	}

	var cur *entity.Segment
	for _, page := range pages {
		dt, conf := s.classifier.Classify(ctx, page.Text)

		switch {
		case cur == nil:
			cur = &entity.Segment{Start: page.Number, End: page.Number, DocType: dt}
			confSum, confPages = conf, 1

		case dt == cur.DocType:
			cur.End = page.Number
			confSum += conf
			confPages++

		case conf < s.cfg.ContinuationThreshold:
			// Too weak to stand alone: trailing detail pages,
			// item tables, stamped annexes.
			cur.End = page.Number
			if rel := relatedScore(page.Text, cur.DocType, s.cfg.HeuristicCap); rel > 0 {
				confSum += rel
				confPages++
			}

		default:
			flush(cur)
			cur = &entity.Segment{Start: page.Number, End: page.Number, DocType: dt}
			confSum, confPages = conf, 1
		}
	}
	if cur != nil {
		flush(cur)
	}

	for _, seg := range segments {
		s.logger.Info("segment.detected",
			"doc_type", seg.DocType,
			"pages", seg.String(),
			"confidence", seg.Confidence,
		)
	}
	return segments
}

// PagesFor returns the subrange of pages covered by the segment.
// Page numbers are 1-based and contiguous.
func PagesFor(pages []entity.Page, seg entity.Segment) []entity.Page {
	var out []entity.Page
	for _, p := range pages {
		if p.Number >= seg.Start && p.Number <= seg.End {
			out = append(out, p)
		}
	}
	return out
}
