package jobtrack

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guybartal/momentloop-sub000/internal/apiclient"
	"github.com/guybartal/momentloop-sub000/internal/domain"
	"github.com/guybartal/momentloop-sub000/internal/infra"
)

// historyLimit is the job history window requested on the initial load.
const historyLimit = domain.DefaultJobListLimit

// Backend is the slice of the jobs API the tracker persists through.
// *apiclient.Client satisfies it.
type Backend interface {
	ListJobs(ctx context.Context, limit int) ([]apiclient.JobRecord, error)
	CreateJob(ctx context.Context, projectID string, jobType domain.JobType, description string) (*apiclient.JobRecord, error)
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID, errMsg string) error
	DeleteJob(ctx context.Context, jobID string) error
	ClearNotifications(ctx context.Context) error
}

// Tracker holds the in-memory job collection, newest first. Local mutations
// are authoritative for readers; backend persistence is best-effort and
// never rolls a visible transition back.
type Tracker struct {
	mu          sync.Mutex
	backend     Backend
	logger      infra.Logger
	jobs        []Job
	initialized bool

	events chan Event
	wg     sync.WaitGroup
}

// NewTracker constructs a tracker around the given backend. The logger
// records write-behind failures; pass infra.NewLogger output or a no-op
// zerolog logger in tests.
func NewTracker(backend Backend, logger infra.Logger) *Tracker {
	return &Tracker{
		backend: backend,
		logger:  logger,
		events:  make(chan Event, 64),
	}
}

// Events exposes write-behind outcomes for telemetry. The channel is
// buffered and drops on overflow; consuming it is optional.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// Initialized reports whether the history load has run.
func (t *Tracker) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// EnsureLoaded runs LoadJobs once. Further calls are no-ops.
func (t *Tracker) EnsureLoaded(ctx context.Context) {
	t.mu.Lock()
	done := t.initialized
	t.mu.Unlock()
	if done {
		return
	}
	t.LoadJobs(ctx)
}

// LoadJobs replaces the collection wholesale with the backend's recent job
// history. A fetch error is swallowed: the tracker logs, keeps an empty
// collection, and still marks itself initialized so the UI is never blocked
// on history.
func (t *Tracker) LoadJobs(ctx context.Context) {
	records, err := t.backend.ListJobs(ctx, historyLimit)

	t.mu.Lock()
	t.initialized = true
	if err == nil {
		jobs := make([]Job, 0, len(records))
		for _, rec := range records {
			jobs = append(jobs, fromRecord(rec))
		}
		t.jobs = jobs
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to load job history")
	}
	t.emit(Event{Op: OpLoad, Err: err})
}

// AddJob inserts an optimistic running job and returns its temporary id
// immediately. Creation is persisted in the background; when the backend
// answers, the record's identity is reconciled to the server-assigned id
// while any status transition that happened locally in the meantime is kept.
// If persistence fails the temporary record stays as-is.
func (t *Tracker) AddJob(jobType domain.JobType, description, projectID, projectName string) string {
	now := time.Now()
	started := now
	job := Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Description: description,
		Status:      domain.JobStatusRunning,
		ProjectID:   projectID,
		ProjectName: projectName,
		CreatedAt:   now,
		StartedAt:   &started,
		pending:     true,
	}

	t.mu.Lock()
	t.jobs = append([]Job{job}, t.jobs...)
	t.mu.Unlock()

	tempID := job.ID
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		record, err := t.backend.CreateJob(context.Background(), projectID, jobType, description)
		if err != nil {
			t.logger.Warn().Err(err).Str("job_id", tempID).Msg("failed to persist job creation")
			t.emit(Event{Op: OpCreate, JobID: tempID, Err: err})
			return
		}
		t.reconcileCreated(tempID, *record)
		t.emit(Event{Op: OpReconcile, JobID: record.ID})
	}()

	return tempID
}

// reconcileCreated swaps the temporary identity for the server one. If the
// record was already dismissed the response is ignored.
func (t *Tracker) reconcileCreated(tempID string, record apiclient.JobRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.jobs {
		if t.jobs[i].ID == tempID {
			t.jobs[i] = reconcile(t.jobs[i], record)
			return
		}
	}
}

// CompleteJob marks the job completed and stamps CompletedAt. The terminal
// transition is persisted write-behind; the local state stands regardless of
// the outcome.
func (t *Tracker) CompleteJob(id string) {
	t.transition(id, domain.JobStatusCompleted, "")
}

// FailJob marks the job failed with optional error text, persisted with the
// same write-behind semantics as CompleteJob.
func (t *Tracker) FailJob(id, errMsg string) {
	t.transition(id, domain.JobStatusFailed, errMsg)
}

func (t *Tracker) transition(id string, status domain.JobStatus, errMsg string) {
	now := time.Now()

	t.mu.Lock()
	found := false
	for i := range t.jobs {
		if t.jobs[i].ID == id {
			t.jobs[i].Status = status
			t.jobs[i].CompletedAt = &now
			t.jobs[i].Error = errMsg
			found = true
			break
		}
	}
	t.mu.Unlock()

	if !found {
		return
	}

	op := OpComplete
	if status == domain.JobStatusFailed {
		op = OpFail
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		var err error
		if status == domain.JobStatusFailed {
			err = t.backend.FailJob(context.Background(), id, errMsg)
		} else {
			err = t.backend.CompleteJob(context.Background(), id)
		}
		if err != nil {
			t.logger.Warn().Err(err).Str("job_id", id).Msgf("failed to persist job %s", status)
		}
		t.emit(Event{Op: op, JobID: id, Err: err})
	}()
}

// ClearNotifications drops every terminal job locally and issues a single
// bulk delete to the backend. Running jobs are retained.
func (t *Tracker) ClearNotifications() {
	t.mu.Lock()
	kept := make([]Job, 0, len(t.jobs))
	removed := 0
	for _, job := range t.jobs {
		if job.Status.Terminal() {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	t.jobs = kept
	t.mu.Unlock()

	if removed == 0 {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.backend.ClearNotifications(context.Background())
		if err != nil {
			t.logger.Warn().Err(err).Msg("failed to clear notifications on backend")
		}
		t.emit(Event{Op: OpClear, Err: err})
	}()
}

// ClearNotification dismisses a single job. Running jobs are protected: the
// call is a no-op for them.
func (t *Tracker) ClearNotification(id string) {
	t.mu.Lock()
	idx := -1
	for i := range t.jobs {
		if t.jobs[i].ID == id {
			if !t.jobs[i].Status.Terminal() {
				t.mu.Unlock()
				return
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return
	}
	t.jobs = append(t.jobs[:idx], t.jobs[idx+1:]...)
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.backend.DeleteJob(context.Background(), id)
		if err != nil {
			t.logger.Warn().Err(err).Str("job_id", id).Msg("failed to delete notification on backend")
		}
		t.emit(Event{Op: OpDismiss, JobID: id, Err: err})
	}()
}

// Jobs returns a snapshot of the collection, newest first.
func (t *Tracker) Jobs() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// ActiveJobs returns the running jobs, newest first.
func (t *Tracker) ActiveJobs() []Job {
	return t.filter(func(j Job) bool { return j.Status == domain.JobStatusRunning })
}

// Notifications returns the terminal jobs, newest first.
func (t *Tracker) Notifications() []Job {
	return t.filter(func(j Job) bool { return j.Status.Terminal() })
}

// UnreadCount reports how many notifications are pending dismissal.
func (t *Tracker) UnreadCount() int {
	return len(t.Notifications())
}

func (t *Tracker) filter(keep func(Job) bool) []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Job
	for _, job := range t.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	return out
}

// Flush waits for all in-flight write-behind calls. Intended for shutdown
// and tests; readers never need it.
func (t *Tracker) Flush() {
	t.wg.Wait()
}

func (t *Tracker) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
	}
}
