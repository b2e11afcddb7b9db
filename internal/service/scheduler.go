package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"parking_reserve/internal/repository"

	"github.com/rs/zerolog"
)

// logRetention is how long application log rows are kept before the
// hourly prune removes them.
const logRetention = 30 * 24 * time.Hour

// Scheduler drives the periodic background work: completing expired
// bookings, firing due scheduled reports and running interval backups.
// A single goroutine ticks once a minute; a tick is skipped entirely if
// the previous one is still running.
type Scheduler struct {
	bookingService *BookingService
	reportService  *ReportService
	backupService  *BackupService
	logRepo        repository.ApplicationLogRepository
	logger         zerolog.Logger
	interval       time.Duration

	mu      sync.Mutex
	running bool
}

func NewScheduler(
	bookingService *BookingService,
	reportService *ReportService,
	backupService *BackupService,
	logRepo repository.ApplicationLogRepository,
	logger zerolog.Logger,
	interval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		bookingService: bookingService,
		reportService:  reportService,
		backupService:  backupService,
		logRepo:        logRepo,
		logger:         logger.With().Str("component", "scheduler").Logger(),
		interval:       interval,
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("previous tick still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	tickCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	s.completeExpiredBookings(tickCtx)
	s.runDueReports(tickCtx, now)
	s.runDueBackup(tickCtx, now)
	if now.Minute() == 0 {
		s.pruneLogs(tickCtx, now)
	}
}

func (s *Scheduler) pruneLogs(ctx context.Context, now time.Time) {
	count, err := s.logRepo.DeleteOlderThan(ctx, now.Add(-logRetention))
	if err != nil {
		s.logger.Error().Err(err).Msg("pruning application logs failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("pruned old application logs")
	}
}

func (s *Scheduler) completeExpiredBookings(ctx context.Context) {
	count, err := s.bookingService.CompleteExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("completing expired bookings failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("completed expired bookings")
	}
}

func (s *Scheduler) runDueReports(ctx context.Context, now time.Time) {
	due, err := s.reportService.DueTemplates(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("querying due report templates failed")
		return
	}
	for i := range due {
		template := due[i]
		if err := s.reportService.RunScheduled(ctx, &template); err != nil {
			// log and try again next tick
			if errors.Is(err, ErrEmailDisabled) || errors.Is(err, ErrNoRecipients) {
				s.logger.Warn().Err(err).Str("template", template.Name).Msg("scheduled report skipped")
				continue
			}
			s.logger.Error().Err(err).Str("template", template.Name).Msg("scheduled report failed")
		}
	}
}

func (s *Scheduler) runDueBackup(ctx context.Context, now time.Time) {
	settings, err := s.backupService.GetSettings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reading backup settings failed")
		return
	}
	if !IsBackupDue(settings, now) {
		return
	}
	if _, err := s.backupService.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled backup failed")
	}
}
