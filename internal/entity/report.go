package entity

import (
	"time"

	"github.com/sunghoon-yu/tradedocs/constants"
)

// DocumentRecord is the final structured record for one detected
// document segment.
type DocumentRecord struct {
	DocType    constants.DocumentType  `json:"doc_type"`
	PageStart  int                     `json:"page_start"`
	PageEnd    int                     `json:"page_end"`
	Status     constants.SegmentStatus `json:"status"`
	Fields     map[string]FieldValue   `json:"fields,omitempty"`
	Confidence float32                 `json:"confidence"` // aggregate of field confidences
	Attempts   []ExtractionAttempt     `json:"attempts"`
	Error      string                  `json:"error,omitempty"`
}

// FileReport is the per-file outcome: one DocumentRecord per segment
// plus overall status, engines invoked and timing.
type FileReport struct {
	FilePath    string               `json:"file_path"`
	TotalPages  int                  `json:"total_pages"`
	Status      constants.FileStatus `json:"status"`
	Records     []DocumentRecord     `json:"records"`
	EnginesUsed []string             `json:"engines_used"`
	StartedAt   time.Time            `json:"started_at"`
	Duration    time.Duration        `json:"duration_ms"`
	Error       string               `json:"error,omitempty"`
}

// EngineStat aggregates attempt outcomes for one engine across a batch.
type EngineStat struct {
	Success  int           `json:"success"`
	Failure  int           `json:"failure"`
	Timeout  int           `json:"timeout"`
	Duration time.Duration `json:"duration_ms"`
}

// BatchReport aggregates FileReports across one batch run.
type BatchReport struct {
	BatchID     string                `json:"batch_id"`
	Files       []FileReport          `json:"files"`
	Completed   int                   `json:"completed"`
	Partial     int                   `json:"partial"`
	Failed      int                   `json:"failed"`
	EngineStats map[string]EngineStat `json:"engine_stats"`
	StartedAt   time.Time             `json:"started_at"`
	Duration    time.Duration         `json:"duration_ms"`
}

// Summarize recomputes the per-status counters and engine statistics
// from the collected file reports.
func (b *BatchReport) Summarize() {
	b.Completed, b.Partial, b.Failed = 0, 0, 0
	b.EngineStats = make(map[string]EngineStat)
	for _, f := range b.Files {
		switch f.Status {
		case constants.FileCompleted:
			b.Completed++
		case constants.FilePartial:
			b.Partial++
		case constants.FileFailed:
			b.Failed++
		}
		for _, rec := range f.Records {
			for _, a := range rec.Attempts {
				st := b.EngineStats[a.EngineID]
				switch a.Outcome {
				case constants.AttemptSuccess:
					st.Success++
				case constants.AttemptTimeout:
					st.Timeout++
				default:
					st.Failure++
				}
				st.Duration += a.Duration
				b.EngineStats[a.EngineID] = st
			}
		}
	}
}
