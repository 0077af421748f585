package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"ms-events/internal/external/holiday"
	"ms-events/internal/external/weather"
	"ms-events/internal/models"
)

// forecastHorizon bounds how far ahead a forecast is requested at all.
const forecastHorizon = 8 * 24 * time.Hour

// Metadata derives the _metadata block of an event. A holiday lookup failure
// fails the call; weather problems only drop the weather fields.
func (s *EventService) Metadata(ctx context.Context, e *models.Event) (map[string]any, error) {
	start, err := e.Start(s.location())
	if err != nil {
		return nil, fmt.Errorf("event has an unreadable start %s %s: %w", e.Date, e.TimeFrom, err)
	}

	meta := map[string]any{"weekend": IsWeekend(start)}

	if s.Holidays != nil {
		holidays, err := s.Holidays.PublicHolidays(ctx, start.Year(), s.Country)
		if err != nil {
			return nil, err
		}
		if name, ok := holiday.Match(holidays, e.Date); ok {
			meta["holiday"] = name
		}
	}

	s.addWeather(ctx, e, start, meta)
	return meta, nil
}

func (s *EventService) addWeather(ctx context.Context, e *models.Event, start time.Time, meta map[string]any) {
	if s.Weather == nil || s.Geo == nil {
		return
	}

	now := s.now()
	if start.Before(now.Add(-weather.Step)) || start.After(now.Add(forecastHorizon)) {
		return
	}

	suburb, state := e.Suburb, e.State
	lat, lon, ok := s.Geo.Resolve(suburb, state)
	if !ok {
		s.Logger.Debug("WEATHER", fmt.Sprintf("no coordinates for %s %s", suburb, state))
		return
	}

	forecast, err := s.Weather.Forecast(ctx, lat, lon)
	if err != nil {
		s.Logger.Warn("WEATHER", fmt.Sprintf("forecast unavailable for %s %s: %v", suburb, state, err))
		return
	}

	idx, ok := ForecastIndex(forecast, start)
	if !ok {
		return
	}
	for k, v := range describePoint(forecast.Series[idx]) {
		meta[k] = v
	}
}

func describePoint(p weather.Point) map[string]any {
	return map[string]any{
		"wind-speed":  weather.WindDescription(p.WindSpeed),
		"weather":     weather.WeatherDescription(p.Weather),
		"humidity":    p.Humidity,
		"temperature": fmt.Sprintf("%d C", p.Temp),
	}
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ForecastIndex picks the dataseries entry nearest to target. target must lie
// in [init, init+last timepoint+step).
func ForecastIndex(f *weather.Forecast, target time.Time) (int, bool) {
	if f == nil || len(f.Series) == 0 {
		return 0, false
	}

	hours := target.UTC().Sub(f.Init).Hours()
	last := f.Series[len(f.Series)-1].Timepoint
	if hours < 0 || hours >= float64(last)+weather.Step.Hours() {
		return 0, false
	}

	best, bestDiff := 0, math.Inf(1)
	for i, p := range f.Series {
		if d := math.Abs(float64(p.Timepoint) - hours); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, true
}
