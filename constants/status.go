package constants

// FileStatus is the canonical per-file outcome in a FileReport.
type FileStatus string

// Stable values (these exact strings appear in emitted reports).
const (
	FileCompleted FileStatus = "completed" // every segment resolved
	FilePartial   FileStatus = "partial"   // some segments resolved, some failed
	FileFailed    FileStatus = "failed"    // no segment resolved
)

// SegmentStatus is the per-segment outcome inside a FileReport.
type SegmentStatus string

const (
	SegmentResolved SegmentStatus = "resolved"
	SegmentFailed   SegmentStatus = "failed"
)

// AttemptOutcome classifies one engine attempt on one segment.
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailure AttemptOutcome = "failure"
	AttemptTimeout AttemptOutcome = "timeout"
)
