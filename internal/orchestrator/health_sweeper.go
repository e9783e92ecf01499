package orchestrator

import (
	"github.com/robfig/cron/v3"

	"lwsgo/pkg/logging"
)

// HealthSweeper runs HealthReport on a fixed schedule independent of any
// on-demand caller, so a degraded provider shows up in logs even if
// nothing ever calls HealthReport directly.
type HealthSweeper struct {
	orchestrator *Orchestrator
	cron         *cron.Cron
	onReport     func(HealthReport)
}

// NewHealthSweeper builds a sweeper for o. onReport, if non-nil, is
// invoked with every sweep's result; it always runs, healthy or not.
func NewHealthSweeper(o *Orchestrator, onReport func(HealthReport)) *HealthSweeper {
	return &HealthSweeper{
		orchestrator: o,
		cron:         cron.New(),
		onReport:     onReport,
	}
}

// Start schedules the sweep and begins running it in the background.
// schedule is a standard 5-field cron expression with minute granularity
// (no seconds field), e.g. "*/1 * * * *" for every minute. It returns an
// error if the cron expression cannot be parsed.
func (s *HealthSweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		report := s.orchestrator.HealthReport()
		if !report.Healthy {
			for name, detail := range report.Providers {
				if detail != "ok" {
					logging.Warn(subsystem, "provider %s unhealthy: %s", name, detail)
				}
			}
		}
		if s.onReport != nil {
			s.onReport(report)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the sweep and waits for any in-flight run to finish.
func (s *HealthSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
