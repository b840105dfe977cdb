package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guybartal/momentloop-sub000/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = "id, user_id, project_id, job_type, description, status, error, created_at, started_at, completed_at"

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, project_id, job_type, description, status, error, created_at, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.ProjectID,
		string(job.Type),
		job.Description,
		string(job.Status),
		nullableString(job.Error),
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
	)
	return err
}

// GetByID fetches a job by its identifier, scoped to the owning user.
func (r *JobRepositoryPG) GetByID(ctx context.Context, userID, jobID string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 AND user_id = $2;`, jobColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, jobID, userID))
}

// ListRecent returns the user's jobs newest first, optionally filtered by
// project and status. The limit is clamped to [1, MaxJobListLimit].
func (r *JobRepositoryPG) ListRecent(ctx context.Context, userID string, filter domain.JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultJobListLimit
	}
	if limit > domain.MaxJobListLimit {
		limit = domain.MaxJobListLimit
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE user_id = $1`, jobColumns)
	args := []any{userID}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d;", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Complete marks a running or already-terminal job as completed.
func (r *JobRepositoryPG) Complete(ctx context.Context, userID, jobID string, at time.Time) (*domain.Job, error) {
	query := fmt.Sprintf(`
UPDATE jobs
SET status = $3, completed_at = $4
WHERE id = $1 AND user_id = $2
RETURNING %s;
`, jobColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, jobID, userID, string(domain.JobStatusCompleted), at))
}

// Fail marks a job as failed and records the error text.
func (r *JobRepositoryPG) Fail(ctx context.Context, userID, jobID, errMsg string, at time.Time) (*domain.Job, error) {
	query := fmt.Sprintf(`
UPDATE jobs
SET status = $3, error = $4, completed_at = $5
WHERE id = $1 AND user_id = $2
RETURNING %s;
`, jobColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, jobID, userID, string(domain.JobStatusFailed), nullableString(errMsg), at))
}

// DeleteNotification removes a single terminal job. Running jobs and unknown
// ids both report domain.ErrNotFound.
func (r *JobRepositoryPG) DeleteNotification(ctx context.Context, userID, jobID string) error {
	query := `
DELETE FROM jobs
WHERE id = $1 AND user_id = $2 AND status IN ($3, $4);
`
	tag, err := r.pool.Exec(ctx, query, jobID, userID, string(domain.JobStatusCompleted), string(domain.JobStatusFailed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteNotifications removes every terminal job owned by the user.
func (r *JobRepositoryPG) DeleteNotifications(ctx context.Context, userID string) (int, error) {
	query := `
DELETE FROM jobs
WHERE user_id = $1 AND status IN ($2, $3);
`
	tag, err := r.pool.Exec(ctx, query, userID, string(domain.JobStatusCompleted), string(domain.JobStatusFailed))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ResetOrphaned fails every running job. Called once at startup so jobs
// interrupted by a shutdown do not stay running forever.
func (r *JobRepositoryPG) ResetOrphaned(ctx context.Context, errMsg string, at time.Time) (int, error) {
	query := `
UPDATE jobs
SET status = $1, error = $2, completed_at = $3
WHERE status = $4;
`
	tag, err := r.pool.Exec(ctx, query, string(domain.JobStatusFailed), errMsg, at, string(domain.JobStatusRunning))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// FailStuck fails running jobs of the given types created before cutoff and
// returns the affected records.
func (r *JobRepositoryPG) FailStuck(ctx context.Context, types []domain.JobType, cutoff time.Time, errMsg string, at time.Time) ([]domain.Job, error) {
	query := fmt.Sprintf(`
UPDATE jobs
SET status = $1, error = $2, completed_at = $3
WHERE status = $4 AND job_type = ANY($5) AND created_at < $6
RETURNING %s;
`, jobColumns)
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	rows, err := r.pool.Query(ctx, query, string(domain.JobStatusFailed), errMsg, at, string(domain.JobStatusRunning), typeNames, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepositoryPG) scanOne(row pgx.Row) (*domain.Job, error) {
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var errMsg *string
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ProjectID,
		&job.Type,
		&job.Description,
		&job.Status,
		&errMsg,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if errMsg != nil {
		job.Error = *errMsg
	}
	return &job, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
