package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ms-events/internal/chart"
	"ms-events/internal/config"
	"ms-events/internal/events/validation"
	"ms-events/internal/external/weather"
	"ms-events/internal/models"
)

// SnapshotDays is how far ahead the weather snapshot may look.
const SnapshotDays = 7

// snapshotHour is the local clock hour reported for each city.
const snapshotHour = 12

type CityForecast struct {
	City        string `json:"city"`
	State       string `json:"state"`
	Temperature int    `json:"temperature"`
	Humidity    string `json:"humidity"`
	Weather     string `json:"weather"`
	WindSpeed   string `json:"wind-speed"`
}

type Snapshot struct {
	Date   string         `json:"date"`
	Cities []CityForecast `json:"cities"`
}

// WeatherSnapshot reports midday conditions for the configured cities on
// date, which must lie within the next SnapshotDays days.
func (s *EventService) WeatherSnapshot(ctx context.Context, date string) (*Snapshot, error) {
	if !validation.Date(date) {
		return nil, models.NewValidationError("date", fmt.Sprintf("%s is not a valid date, use YYYY-MM-DD", date))
	}
	day, _ := time.ParseInLocation(models.DateLayout, date, s.location())
	today := s.today()
	if day.Before(today) || day.After(today.AddDate(0, 0, SnapshotDays)) {
		return nil, models.NewValidationError("date", fmt.Sprintf(
			"%s is outside the forecast window %s to %s", date,
			today.Format(models.DateLayout), today.AddDate(0, 0, SnapshotDays).Format(models.DateLayout)))
	}
	if s.Weather == nil {
		return nil, fmt.Errorf("%w: weather service not configured", models.ErrUpstream)
	}

	target := day.Add(snapshotHour * time.Hour)
	results := make([]*CityForecast, len(s.Cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, city := range s.Cities {
		g.Go(func() error {
			cf, err := s.cityForecast(gctx, city, target)
			if err != nil {
				return err
			}
			results[i] = cf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Date: date, Cities: []CityForecast{}}
	for _, r := range results {
		if r != nil {
			snap.Cities = append(snap.Cities, *r)
		}
	}
	return snap, nil
}

// cityForecast returns nil without error when the city cannot be located or
// the forecast does not reach target.
func (s *EventService) cityForecast(ctx context.Context, city config.City, target time.Time) (*CityForecast, error) {
	var lat, lon float64
	switch {
	case city.Lat != nil && city.Lon != nil:
		lat, lon = *city.Lat, *city.Lon
	case s.Geo != nil:
		var ok bool
		if lat, lon, ok = s.Geo.Resolve(city.Name, city.State); !ok {
			s.Logger.Warn("WEATHER", fmt.Sprintf("no coordinates for %s %s", city.Name, city.State))
			return nil, nil
		}
	default:
		return nil, nil
	}

	forecast, err := s.Weather.Forecast(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", city.Name, err)
	}
	idx, ok := ForecastIndex(forecast, target)
	if !ok {
		return nil, nil
	}

	p := forecast.Series[idx]
	return &CityForecast{
		City:        city.Name,
		State:       city.State,
		Temperature: p.Temp,
		Humidity:    p.Humidity,
		Weather:     weather.WeatherDescription(p.Weather),
		WindSpeed:   weather.WindDescription(p.WindSpeed),
	}, nil
}

// SnapshotImage renders the snapshot temperatures as a bar chart.
func SnapshotImage(snap *Snapshot) ([]byte, error) {
	labels := make([]string, 0, len(snap.Cities))
	values := make([]int, 0, len(snap.Cities))
	for _, c := range snap.Cities {
		labels = append(labels, c.City)
		values = append(values, c.Temperature)
	}
	return chart.RenderBarChart(fmt.Sprintf("Temperature at noon, %s (C)", snap.Date), labels, values)
}
