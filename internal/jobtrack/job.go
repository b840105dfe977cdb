// Package jobtrack maintains the client-side registry of background jobs:
// style transfers, prompt generations, video generations, and exports started
// by the user. Mutations apply to local state immediately and are persisted
// to the backend write-behind, so the UI never waits on the network.
package jobtrack

import (
	"time"

	"github.com/guybartal/momentloop-sub000/internal/domain"
)

// Job is the tracker's view of one background operation. Until the backend
// acknowledges creation the record carries a client-generated temporary id;
// reconciliation swaps in the server-assigned identity.
type Job struct {
	ID          string
	Type        domain.JobType
	Description string
	Status      domain.JobStatus
	Error       string
	ProjectID   string
	ProjectName string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// pending marks a record whose id is still the client-side temporary
	// one. A temporary id is never reused once replaced.
	pending bool
}

// Pending reports whether the job still carries its temporary identity.
func (j Job) Pending() bool {
	return j.pending
}

// Op names a tracker mutation for event reporting.
type Op string

const (
	OpLoad      Op = "load"
	OpCreate    Op = "create"
	OpComplete  Op = "complete"
	OpFail      Op = "fail"
	OpDismiss   Op = "dismiss"
	OpClear     Op = "clear"
	OpReconcile Op = "reconcile"
)

// Event reports the outcome of a write-behind backend call. Events exist for
// logging and telemetry only; the tracker never alters local state based on
// a persistence failure.
type Event struct {
	Op    Op
	JobID string
	Err   error
}
