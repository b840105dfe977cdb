package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job records.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, userID, jobID string) (*Job, error)
	ListRecent(ctx context.Context, userID string, filter JobFilter) ([]Job, error)
	Complete(ctx context.Context, userID, jobID string, at time.Time) (*Job, error)
	Fail(ctx context.Context, userID, jobID, errMsg string, at time.Time) (*Job, error)
	// DeleteNotification removes a single terminal job. Running jobs are
	// protected: ErrNotFound is returned for them as well as for missing ids.
	DeleteNotification(ctx context.Context, userID, jobID string) error
	// DeleteNotifications removes every terminal job for the user and
	// returns how many were dropped.
	DeleteNotifications(ctx context.Context, userID string) (int, error)
	// ResetOrphaned fails every running job, regardless of age. Used at
	// startup to clean up after an unclean shutdown.
	ResetOrphaned(ctx context.Context, errMsg string, at time.Time) (int, error)
	// FailStuck fails running jobs of the given types created before cutoff.
	FailStuck(ctx context.Context, types []JobType, cutoff time.Time, errMsg string, at time.Time) ([]Job, error)
}
