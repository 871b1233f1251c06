package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-glance/internal/dashboard"
)

const defaultInterval = 15 * time.Minute

// Refresher runs one refresh cycle; see dashboard.Service.
type Refresher interface {
	Refresh(ctx context.Context, trigger dashboard.Trigger) bool
}

// Scheduler periodically refreshes the dashboard.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
}

// New creates a new Scheduler running in loc.
func New(loc *time.Location, interval time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the periodic job, which also runs once immediately. Cycles
// run under ctx and are abandoned once it is done.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		log.Println("scheduler: running refresh job")
		if !s.refresher.Refresh(ctx, dashboard.TriggerTimer) {
			log.Println("scheduler: refresh skipped, previous cycle still running")
			return
		}
		log.Println("scheduler: completed refresh job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
