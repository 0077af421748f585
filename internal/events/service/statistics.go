package service

import (
	"context"
	"fmt"
	"time"

	"ms-events/internal/chart"
	"ms-events/internal/models"
)

const perDayLayout = "02-01-2006"

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type Statistics struct {
	Total        int            `json:"total"`
	CurrentWeek  int            `json:"total-current-week"`
	CurrentMonth int            `json:"total-current-month"`
	PerDays      map[string]int `json:"per-days"`
}

// Statistics aggregates event counts relative to today in the service
// timezone.
func (s *EventService) Statistics(ctx context.Context) (*Statistics, error) {
	total, err := s.DB.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if total == 0 {
		return nil, models.ErrNoEvents
	}

	today := s.today()

	weekFrom, weekTo := WeekWindow(today)
	week, err := s.DB.CountBetween(ctx, weekFrom.Format(models.DateLayout), weekTo.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to count current week: %w", err)
	}

	monthFrom, monthTo := MonthWindow(today)
	month, err := s.DB.CountBetween(ctx, monthFrom.Format(models.DateLayout), monthTo.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to count current month: %w", err)
	}

	perDays, err := s.perDays(ctx)
	if err != nil {
		return nil, err
	}

	return &Statistics{
		Total:        total,
		CurrentWeek:  week,
		CurrentMonth: month,
		PerDays:      perDays,
	}, nil
}

// MaxPerDaysSpan bounds the zero-filled per-days range. Wider ranges list
// only the days that have events.
const MaxPerDaysSpan = 3660

// perDays covers every day from the earliest to the latest event date,
// including days without events, while the range spans at most
// MaxPerDaysSpan days.
func (s *EventService) perDays(ctx context.Context) (map[string]int, error) {
	minDate, maxDate, err := s.DB.MinMaxDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read date range: %w", err)
	}
	counts, err := s.DB.CountPerDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count per day: %w", err)
	}

	out := make(map[string]int)
	if minDate == "" {
		return out, nil
	}
	first, err := time.Parse(models.DateLayout, minDate)
	if err != nil {
		return nil, fmt.Errorf("bad stored date %q: %w", minDate, err)
	}
	last, err := time.Parse(models.DateLayout, maxDate)
	if err != nil {
		return nil, fmt.Errorf("bad stored date %q: %w", maxDate, err)
	}

	if span := int(last.Sub(first).Hours()/24) + 1; span > MaxPerDaysSpan {
		s.Logger.Warn("STATS", fmt.Sprintf("per-days range %s..%s spans %d days, listing event days only", minDate, maxDate, span))
		for date, n := range counts {
			d, err := time.Parse(models.DateLayout, date)
			if err != nil {
				return nil, fmt.Errorf("bad stored date %q: %w", date, err)
			}
			out[d.Format(perDayLayout)] = n
		}
		return out, nil
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out[d.Format(perDayLayout)] = counts[d.Format(models.DateLayout)]
	}
	return out, nil
}

type MonthlySeries struct {
	Year   int
	Labels []string
	Values []int
}

// AsMap returns label -> count.
func (m MonthlySeries) AsMap() map[string]int {
	out := make(map[string]int, len(m.Labels))
	for i, l := range m.Labels {
		out[l] = m.Values[i]
	}
	return out
}

// MonthlyHistogram counts this year's events per calendar month.
func (s *EventService) MonthlyHistogram(ctx context.Context) (*MonthlySeries, error) {
	total, err := s.DB.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if total == 0 {
		return nil, models.ErrNoEvents
	}

	year := s.today().Year()
	counts, err := s.DB.CountPerMonth(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to count per month: %w", err)
	}

	series := &MonthlySeries{Year: year, Labels: monthLabels, Values: make([]int, 12)}
	for m := 1; m <= 12; m++ {
		series.Values[m-1] = counts[m]
	}
	return series, nil
}

// StatisticsImage renders the monthly histogram as a PNG bar chart.
func (s *EventService) StatisticsImage(ctx context.Context) ([]byte, error) {
	series, err := s.MonthlyHistogram(ctx)
	if err != nil {
		return nil, err
	}
	return chart.RenderBarChart(fmt.Sprintf("Events per month, %d", series.Year), series.Labels, series.Values)
}

func (s *EventService) today() time.Time {
	now := s.now().In(s.location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// WeekWindow spans today through the upcoming Sunday, inclusive.
func WeekWindow(today time.Time) (time.Time, time.Time) {
	daysToSunday := (7 - int(today.Weekday())) % 7
	return today, today.AddDate(0, 0, daysToSunday)
}

// MonthWindow spans the first through the last day of today's month.
func MonthWindow(today time.Time) (time.Time, time.Time) {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return first, first.AddDate(0, 1, -1)
}
