// Package jobs runs the periodic background work of the service.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"ms-events/internal/external/holiday"
	"ms-events/internal/logger"
)

type HolidaySource interface {
	PublicHolidays(ctx context.Context, year int, country string) ([]holiday.Holiday, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func NewScheduler(loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: log,
	}
}

// HolidayWarmup fetches this year's and next year's holidays so that event
// reads hit the cache.
type HolidayWarmup struct {
	Source  HolidaySource
	Country string
	Timeout time.Duration
	Logger  *logger.Logger
	Now     func() time.Time
}

// Run returns the number of years refreshed.
func (w *HolidayWarmup) Run(ctx context.Context) int {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	year := now().Year()
	refreshed := 0
	for _, y := range []int{year, year + 1} {
		yctx, cancel := context.WithTimeout(ctx, timeout)
		holidays, err := w.Source.PublicHolidays(yctx, y, w.Country)
		cancel()
		if err != nil {
			w.Logger.Warn("HOLIDAY", fmt.Sprintf("warmup of %s %d failed: %v", w.Country, y, err))
			continue
		}
		refreshed++
		w.Logger.Info("HOLIDAY", fmt.Sprintf("warmed %d holidays for %s %d", len(holidays), w.Country, y))
	}
	return refreshed
}

// AddHolidayWarmup schedules w with a cron spec such as "@daily". "off"
// and "" leave the job unscheduled.
func (s *Scheduler) AddHolidayWarmup(spec string, w *HolidayWarmup) error {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		s.logger.Info("CRON", "holiday warmup disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { w.Run(context.Background()) }); err != nil {
		return fmt.Errorf("invalid holiday warmup schedule %q: %w", spec, err)
	}
	s.logger.Info("CRON", fmt.Sprintf("holiday warmup scheduled %s", spec))
	return nil
}

// Len reports the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("CRON", "shutdown before jobs finished")
	}
}
