package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExpiredHoldReleaser drops seat holds past their TTL
type ExpiredHoldReleaser interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

// StalePendingCounter counts Pending bookings older than a cutoff
type StalePendingCounter interface {
	CountStalePending(ctx context.Context, olderThan time.Time) (int, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	holds      ExpiredHoldReleaser
	bookings   StalePendingCounter
	staleAfter time.Duration
	jobTimeout time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewCronService creates a new CronService. holds may be nil when seat holds are disabled.
func NewCronService(holds ExpiredHoldReleaser, bookings StalePendingCounter, staleAfter time.Duration, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		holds:      holds,
		bookings:   bookings,
		staleAfter: staleAfter,
		jobTimeout: 30 * time.Second,
		logger:     logger,
		now:        time.Now,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday
	if s.holds != nil {
		// "0 * * * * *" = At second 0 of every minute
		if _, err := s.cron.AddFunc("0 * * * * *", s.releaseExpiredHoldsJob); err != nil {
			return fmt.Errorf("failed to schedule seat hold sweeper: %w", err)
		}
		s.logger.Info("Scheduled: Release expired seat holds (every minute)")
	}

	// "0 0 * * * *" = At minute 0 of every hour
	if _, err := s.cron.AddFunc("0 0 * * * *", s.reportStalePendingJob); err != nil {
		return fmt.Errorf("failed to schedule stale pending report: %w", err)
	}
	s.logger.Info("Scheduled: Stale pending booking report (hourly)")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// releaseExpiredHoldsJob frees seats whose hold TTL has passed
func (s *CronService) releaseExpiredHoldsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	released, err := s.holds.ReleaseExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to release expired seat holds")
		return
	}
	if released > 0 {
		s.logger.WithField("released", released).Info("[CRON] Released expired seat holds")
	}
}

// reportStalePendingJob only reports; Pending bookings are never expired automatically
func (s *CronService) reportStalePendingJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.staleAfter)
	count, err := s.bookings.CountStalePending(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to count stale pending bookings")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"stale_pending": count,
		"older_than":    cutoff.Format(time.RFC3339),
	}).Info("[CRON] Stale pending booking report")
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
