package generator

import "time"

// Status is the lifecycle state of a generation job
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Terminal reports whether the status is final. A terminal status never
// transitions to another status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError:
		return true
	}
	return false
}

// Progress is a point-in-time view of a generation job. Snapshots published
// to the registry are copies; readers never share memory with the running
// job.
//
// Invariants at every published snapshot: Processed is monotonically
// non-decreasing and Succeeded + Failed == Processed.
type Progress struct {
	ID        string
	ProjectID *string

	Total     int // Expected item count; revised upward if new items appear
	Processed int
	Succeeded int
	Failed    int

	Status      Status
	CurrentText string // Preview of the most recently processed source text
	Error       string

	StartedAt   time.Time
	CompletedAt *time.Time
}

// Remaining returns how many items the job still expects to process.
func (p *Progress) Remaining() int {
	remaining := p.Total - p.Processed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// clone returns an independent copy safe to hand to readers.
func (p *Progress) clone() *Progress {
	c := *p
	if p.ProjectID != nil {
		pid := *p.ProjectID
		c.ProjectID = &pid
	}
	if p.CompletedAt != nil {
		done := *p.CompletedAt
		c.CompletedAt = &done
	}
	return &c
}
