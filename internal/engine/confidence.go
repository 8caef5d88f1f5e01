package engine

import (
	"regexp"
	"strings"

	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

var (
	reDate   = regexp.MustCompile(`\b20\d{2}[-./년]\s?\d{1,2}[-./월]\s?\d{1,2}`)
	reCurr   = regexp.MustCompile(`(?i)\b(krw|usd|won)\b|[₩$]|원`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})+\b|\b\d+\.\d{2}\b`)
)

// textConfidence is a naive heuristic based on decoded text
// characteristics: date-ish, currency-ish and amount-ish artifacts
// each add a fixed boost.
func textConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// resultConfidence computes a post-hoc confidence for an engine result
// that does not self-report one: the mean field confidence scaled by
// required-field coverage. Falls back to the text heuristic (capped
// low) when no field matched at all.
func resultConfidence(schema fields.Schema, fieldMap map[string]entity.RawField, text string) float32 {
	if len(fieldMap) == 0 {
		c := textConfidence(text)
		if c > 0.4 {
			c = 0.4
		}
		return c
	}

	var sum float32
	for _, f := range fieldMap {
		sum += f.Confidence
	}
	mean := sum / float32(len(fieldMap))

	required, gotRequired := 0, 0
	for _, def := range schema.Fields {
		if !def.Required {
			continue
		}
		required++
		if _, ok := fieldMap[def.Name]; ok {
			gotRequired++
		}
	}
	if required > 0 && gotRequired < required {
		mean *= float32(gotRequired+1) / float32(required+1)
	}
	return mean
}
