package service_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/events/service"
	"ms-events/internal/models"
)

func TestStatistics(t *testing.T) {
	svc := setupService(t)
	// Wednesday.
	svc.Now = func() time.Time { return time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for _, date := range []string{"2024-05-13", "2024-05-15", "2024-05-19", "2024-05-20", "2024-05-31", "2024-06-01"} {
		_, err := svc.Create(ctx, payload("E", date, "10:00:00", "11:00:00"))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, payload("E2", "2024-05-15", "12:00:00", "13:00:00"))
	require.NoError(t, err)

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 3, stats.CurrentWeek)
	assert.Equal(t, 6, stats.CurrentMonth)

	assert.Len(t, stats.PerDays, 20)
	assert.Equal(t, 1, stats.PerDays["13-05-2024"])
	assert.Equal(t, 0, stats.PerDays["14-05-2024"])
	assert.Equal(t, 2, stats.PerDays["15-05-2024"])
	assert.Equal(t, 1, stats.PerDays["01-06-2024"])
	assert.NotContains(t, stats.PerDays, "12-05-2024")
}

func TestStatistics_PerDaysWideRange(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	for _, date := range []string{"0001-01-01", "9999-12-31"} {
		_, err := svc.Create(ctx, payload("E", date, "10:00:00", "11:00:00"))
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"01-01-0001": 1, "31-12-9999": 1}, stats.PerDays)
}

func TestStatistics_PerDaysAtSpanLimit(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 0, service.MaxPerDaysSpan-1)
	for _, d := range []time.Time{first, last} {
		_, err := svc.Create(ctx, payload("E", d.Format(models.DateLayout), "10:00:00", "11:00:00"))
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.PerDays, service.MaxPerDaysSpan)
	assert.Equal(t, 0, stats.PerDays[first.AddDate(0, 0, 1).Format("02-01-2006")])
}

func TestStatistics_NoEvents(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Statistics(context.Background())
	assert.ErrorIs(t, err, models.ErrNoEvents)

	_, err = svc.MonthlyHistogram(context.Background())
	assert.ErrorIs(t, err, models.ErrNoEvents)
}

func TestStatistics_UsesServiceTimezone(t *testing.T) {
	svc := setupService(t)
	// 2024-05-19 20:00 UTC is already Monday the 20th at UTC+10.
	svc.Now = func() time.Time { return time.Date(2024, 5, 19, 20, 0, 0, 0, time.UTC) }
	svc.Location = time.FixedZone("AEST", 10*3600)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("E", "2024-05-19", "10:00:00", "11:00:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, payload("E", "2024-05-20", "10:00:00", "11:00:00"))
	require.NoError(t, err)

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentWeek)
}

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		today string
		end   string
	}{
		{"2024-05-13", "2024-05-19"}, // Monday
		{"2024-05-15", "2024-05-19"},
		{"2024-05-18", "2024-05-19"},
		{"2024-05-19", "2024-05-19"}, // Sunday: just today
	}
	for _, tt := range tests {
		today, _ := time.Parse(models.DateLayout, tt.today)
		from, to := service.WeekWindow(today)
		assert.Equal(t, tt.today, from.Format(models.DateLayout))
		assert.Equal(t, tt.end, to.Format(models.DateLayout), tt.today)
	}
}

func TestMonthWindow(t *testing.T) {
	tests := map[string][2]string{
		"2024-02-10": {"2024-02-01", "2024-02-29"},
		"2023-02-10": {"2023-02-01", "2023-02-28"},
		"2024-12-31": {"2024-12-01", "2024-12-31"},
		"2024-04-01": {"2024-04-01", "2024-04-30"},
	}
	for day, want := range tests {
		today, _ := time.Parse(models.DateLayout, day)
		from, to := service.MonthWindow(today)
		assert.Equal(t, want[0], from.Format(models.DateLayout), day)
		assert.Equal(t, want[1], to.Format(models.DateLayout), day)
	}
}

func TestMonthlyHistogram(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	for _, date := range []string{"2023-12-31", "2024-01-26", "2024-01-27", "2024-05-04"} {
		_, err := svc.Create(ctx, payload("E", date, "10:00:00", "11:00:00"))
		require.NoError(t, err)
	}

	series, err := svc.MonthlyHistogram(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2024, series.Year)
	assert.Equal(t, []int{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, series.Values)
	m := series.AsMap()
	assert.Len(t, m, 12)
	assert.Equal(t, 2, m["Jan"])
	assert.Equal(t, 0, m["Dec"])

	img, err := svc.StatisticsImage(ctx)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	assert.NoError(t, err)
}
