package jobtrack

import (
	"time"

	"github.com/guybartal/momentloop-sub000/internal/apiclient"
	"github.com/guybartal/momentloop-sub000/internal/domain"
)

// reconcile merges the backend's canonical record into an optimistic local
// job. Identity fields (id, creation timestamps) always come from the
// server; for status the most advanced value wins, so a local terminal
// transition that happened while the creation request was in flight is never
// demoted back to running.
func reconcile(local Job, server apiclient.JobRecord) Job {
	merged := local
	merged.ID = server.ID
	merged.pending = false
	merged.CreatedAt = server.CreatedAt
	merged.StartedAt = cloneTime(server.StartedAt)

	if local.Status.Terminal() {
		return merged
	}

	merged.Status = domain.JobStatus(server.Status)
	merged.CompletedAt = cloneTime(server.CompletedAt)
	if server.Error != nil {
		merged.Error = *server.Error
	}
	return merged
}

// fromRecord converts a backend record into a tracker job.
func fromRecord(rec apiclient.JobRecord) Job {
	job := Job{
		ID:          rec.ID,
		Type:        domain.JobType(rec.JobType),
		Description: rec.Description,
		Status:      domain.JobStatus(rec.Status),
		ProjectID:   rec.ProjectID,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   cloneTime(rec.StartedAt),
		CompletedAt: cloneTime(rec.CompletedAt),
	}
	if rec.Error != nil {
		job.Error = *rec.Error
	}
	return job
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
