/*
scheduler.go - Periodic rounding reconciliation

PURPOSE:
  Runs the rounding-reconciliation pass on a cron schedule so residual
  dust left by partial payments gets written off without an operator
  calling /api/admin/rounding by hand.

SCHEDULING:
  robfig/cron with standard 5-field expressions, configured through
  ROUNDING_SCHEDULE. The job runs against "today" at fire time; a run
  that appends no entries is a no-op by construction.

SEE ALSO:
  - engine/rounding.go: The reconciliation pass itself
  - config/config.go: Schedule configuration
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/JuanMCarini/Credit-Manager/credit"
	"github.com/JuanMCarini/Credit-Manager/engine"
)

// RoundingScheduler triggers rounding reconciliation on a cron schedule.
type RoundingScheduler struct {
	engine *engine.Engine
	log    *logrus.Logger
	cron   *cron.Cron
}

// NewRoundingScheduler builds a scheduler; Start must be called to arm it.
func NewRoundingScheduler(eng *engine.Engine, log *logrus.Logger) *RoundingScheduler {
	return &RoundingScheduler{
		engine: eng,
		log:    log,
		cron:   cron.New(),
	}
}

// Start registers the job under the given cron expression and launches
// the scheduler. An empty expression disables the job.
func (s *RoundingScheduler) Start(expr string) error {
	if expr == "" {
		s.log.Info("rounding scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(expr, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", expr).Info("rounding scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *RoundingScheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.log.Warn("rounding scheduler stop timed out")
	}
}

func (s *RoundingScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	entries, err := s.engine.ReconcileRounding(ctx, credit.Today())
	if err != nil {
		s.log.WithError(err).Error("scheduled rounding reconciliation failed")
		return
	}
	s.log.WithField("entries", len(entries)).Info("scheduled rounding reconciliation complete")
}
