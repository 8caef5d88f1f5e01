package entity

import "github.com/sunghoon-yu/tradedocs/constants"

// FieldValue is the single accepted value for one field in one segment
// after merging. A field has zero or one FieldValue, never more.
type FieldValue struct {
	Name       string              `json:"name"`
	Type       constants.FieldType `json:"type"`
	Value      string              `json:"value"`            // normalized representation
	Number     *float64            `json:"number,omitempty"` // parsed value for numeric fields
	Confidence float32             `json:"confidence"`
	EngineID   string              `json:"engine_id"` // provenance
	Page       int                 `json:"page"`
	Disputed   bool                `json:"disputed,omitempty"` // engines disagreed; confidence is capped
}
