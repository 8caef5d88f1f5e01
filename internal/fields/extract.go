package fields

import (
	"strings"

	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

const (
	patternBaseConfidence = 0.90
	patternStepPenalty    = 0.10
	patternMinConfidence  = 0.50
)

// Extract runs the heuristic per-field patterns for the schema over a
// segment's pages. The first page and first pattern alternative that
// match win; later alternatives score a lower confidence. Fields with
// no match are simply absent from the result.
func Extract(pages []entity.Page, schema Schema) map[string]entity.RawField {
	out := make(map[string]entity.RawField)
	patterns, ok := fieldPatterns[schema.DocType]
	if !ok {
		patterns = fieldPatterns[ForDocType("").DocType]
	}

	for _, def := range schema.Fields {
		alternatives := patterns[def.Name]
		if len(alternatives) == 0 {
			continue
		}
	pageLoop:
		for _, page := range pages {
			for i, re := range alternatives {
				m := re.FindStringSubmatch(page.Text)
				if m == nil {
					continue
				}
				value := strings.TrimSpace(m[len(m)-1])
				if value == "" {
					continue
				}
				conf := patternBaseConfidence - float32(i)*patternStepPenalty
				if conf < patternMinConfidence {
					conf = patternMinConfidence
				}
				out[def.Name] = entity.RawField{
					Value:      value,
					Confidence: conf,
					Page:       page.Number,
				}
				break pageLoop
			}
		}
	}
	return out
}

// JoinPages concatenates page texts with a form-feed page break, the
// same marker the OCR toolchain emits.
func JoinPages(pages []entity.Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
