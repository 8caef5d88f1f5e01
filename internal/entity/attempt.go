package entity

import (
	"time"

	"github.com/sunghoon-yu/tradedocs/constants"
)

// RawField is one field value as produced by a single engine, before merging.
type RawField struct {
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence"`
	Page       int     `json:"page"` // 1-based page the value came from
}

// RawResult is the full output of one successful engine attempt on a segment.
type RawResult struct {
	EngineID   string              `json:"engine_id"`
	Text       string              `json:"-"` // raw segment text the fields were read from
	Fields     map[string]RawField `json:"fields"`
	Confidence float32             `json:"confidence"` // engine self-reported or post-hoc
}

// ExtractionAttempt is one entry in a segment's append-only attempt
// history. Kept for diagnostics and audit, never deleted.
type ExtractionAttempt struct {
	EngineID string                   `json:"engine_id"`
	Try      int                      `json:"try"` // 1-based try number within the engine
	Outcome  constants.AttemptOutcome `json:"outcome"`
	Reason   string                   `json:"reason,omitempty"` // failure reason, empty on success
	Duration time.Duration            `json:"duration_ms"`
}
