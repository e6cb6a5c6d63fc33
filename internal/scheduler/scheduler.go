package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-fetches weather for every widget and reports how many
// requests it started.
type Refresher interface {
	RefreshAll() int
}

// Scheduler periodically refreshes all widgets.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
}

// New creates a new Scheduler. A zero interval disables it.
func New(interval time.Duration, refresher Refresher) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: auto refresh disabled")
		return nil
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	// The first run would duplicate the fetches started by the initial load.
	_, err := s.scheduler.Every(seconds).Seconds().WaitForSchedule().Do(func() {
		n := s.refresher.RefreshAll()
		log.Printf("scheduler: refresh started for %d widgets", n)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
