package entity

import (
	"fmt"

	"github.com/sunghoon-yu/tradedocs/constants"
)

// Segment is a maximal contiguous page range sharing one document type.
// Segments within one file are non-overlapping and cover the full range.
type Segment struct {
	Start      int                    `json:"start"` // 1-based, inclusive
	End        int                    `json:"end"`   // inclusive
	DocType    constants.DocumentType `json:"doc_type"`
	Confidence float32                `json:"confidence"`
}

func (s Segment) String() string {
	return fmt.Sprintf("%s[%d-%d]", s.DocType, s.Start, s.End)
}

// PageCount returns the number of pages covered by the segment.
func (s Segment) PageCount() int {
	return s.End - s.Start + 1
}
