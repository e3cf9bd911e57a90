package ledger

import "time"

// Kind selects which stage sequence a job runs.
type Kind string

const (
	KindClipExtraction Kind = "clip-extraction"
	KindStoryVideo     Kind = "synthetic-generation"
)

var validKinds = map[Kind]struct{}{
	KindClipExtraction: {},
	KindStoryVideo:     {},
}

// KnownKind reports whether kind is one the pipeline can run.
func KnownKind(kind Kind) bool {
	_, ok := validKinds[kind]
	return ok
}

// Status is the coarse lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank orders statuses so transitions only move forward. Both terminal
// statuses share a rank; neither may change again.
var statusRank = map[Status]int{
	StatusQueued:     0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of pipeline work. Progress is a monotonic percentage in
// [0, 100]; updates that would move it backward are clamped, never applied.
type Job struct {
	ID                string
	Kind              Kind
	Status            Status
	Stage             string
	Progress          float64
	ParamsJSON        string
	ErrorCode         string
	ErrorMessage      string
	CostCents         int64
	ClaimedBy         string
	TotalSegments     int
	ProcessingSeconds float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	LastHeartbeat     *time.Time
}

// Segment records one produced clip or rendered scene for a job.
type Segment struct {
	JobID     string
	Index     int
	Start     float64
	End       float64
	Score     float64
	Title     string
	ResultKey string
	CreatedAt time.Time
}

// Mutation describes a partial job update. Nil fields are left untouched.
// CostCentsDelta accumulates; it is added to the stored total, not assigned.
type Mutation struct {
	Status            *Status
	Stage             *string
	Progress          *float64
	ErrorCode         *string
	ErrorMessage      *string
	TotalSegments     *int
	ProcessingSeconds *float64
	CostCentsDelta    int64
}

// Pointer helpers for building Mutation literals.

func StatusPtr(s Status) *Status { return &s }
func StringPtr(s string) *string { return &s }
func FloatPtr(f float64) *float64 { return &f }
func IntPtr(i int) *int { return &i }
