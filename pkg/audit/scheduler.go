package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/telemetry/logging"
)

// Scheduler runs retention pruning on a cron schedule.
type Scheduler struct {
	recorder *Recorder
	cfg      config.AuditConfig
	cron     *cron.Cron
	logger   *logging.Logger
}

// NewScheduler creates a retention scheduler for a recorder.
func NewScheduler(recorder *Recorder, cfg config.AuditConfig, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		recorder: recorder,
		cfg:      cfg,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start schedules pruning and returns immediately. An empty schedule
// or zero retention disables it. The scheduler stops when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.PruneSchedule == "" || s.cfg.RetentionDays <= 0 {
		s.logger.Info("audit retention pruning disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.cfg.PruneSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.PruneSchedule, func() { s.prune(ctx) }); err != nil {
		return fmt.Errorf("schedule pruning: %w", err)
	}

	s.cron.Start()
	s.logger.Info("audit retention scheduler started",
		"schedule", s.cfg.PruneSchedule,
		"retention_days", s.cfg.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := s.recorder.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("audit pruning failed", "error", err)
		return
	}
	s.logger.Info("audit events pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
}
