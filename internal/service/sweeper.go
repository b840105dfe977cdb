package service

import (
	"context"
	"time"

	"github.com/guybartal/momentloop-sub000/internal/domain"
	"github.com/guybartal/momentloop-sub000/internal/infra"
)

const (
	orphanError = "Server restarted while job was running"
	stuckError  = "Job timed out (stuck detection)"
)

// Sweeper cleans up jobs stranded in the running state: orphans left behind
// by an unclean shutdown and jobs that exceeded their type's timeout.
type Sweeper struct {
	repo          domain.JobRepository
	logger        infra.Logger
	jobTimeout    time.Duration
	exportTimeout time.Duration
	interval      time.Duration
}

func NewSweeper(repo domain.JobRepository, logger infra.Logger, cfg *infra.Config) *Sweeper {
	return &Sweeper{
		repo:          repo,
		logger:        logger,
		jobTimeout:    cfg.StuckJobTimeout,
		exportTimeout: cfg.StuckExportTimeout,
		interval:      cfg.StuckJobSweepInterval,
	}
}

// ResetOrphaned fails every job still marked running. Call once at startup,
// before serving traffic.
func (s *Sweeper) ResetOrphaned(ctx context.Context) {
	n, err := s.repo.ResetOrphaned(ctx, orphanError, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to reset orphaned jobs")
		return
	}
	if n > 0 {
		s.logger.Info().Int("count", n).Msg("reset orphaned jobs from previous run")
	}
}

// Run sweeps periodically until ctx is cancelled. Exports get a longer
// timeout than the other job types since concatenation is slow.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	stuck, err := s.repo.FailStuck(ctx,
		[]domain.JobType{domain.JobTypeStyleTransfer, domain.JobTypePromptGeneration, domain.JobTypeVideoGeneration},
		now.Add(-s.jobTimeout), stuckError, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("stuck job sweep failed")
		return
	}

	exports, err := s.repo.FailStuck(ctx,
		[]domain.JobType{domain.JobTypeExport},
		now.Add(-s.exportTimeout), stuckError, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("stuck export sweep failed")
		return
	}

	for _, job := range append(stuck, exports...) {
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Time("created_at", job.CreatedAt).
			Msg("marked stuck job as failed")
	}
}
