package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"ms-events/internal/models"
)

// Count returns the total number of events
func (d *DB) Count(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Count(ctx)
}

// CountBetween counts events dated within [from, to], both inclusive
func (d *DB) CountBetween(ctx context.Context, from, to string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("date >= ?", from).
		Where("date <= ?", to).
		Count(ctx)
}

// MinMaxDate returns the earliest and latest event dates; both are empty when
// the table is empty
func (d *DB) MinMaxDate(ctx context.Context) (string, string, error) {
	var minDate, maxDate sql.NullString
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("MIN(date) AS min_date").
		ColumnExpr("MAX(date) AS max_date").
		Scan(ctx, &minDate, &maxDate)
	if err != nil {
		return "", "", err
	}
	return minDate.String, maxDate.String, nil
}

type dayCount struct {
	Date  string `bun:"date"`
	Count int    `bun:"count"`
}

// CountPerDay returns date -> number of events for every date that has one
func (d *DB) CountPerDay(ctx context.Context) (map[string]int, error) {
	var rows []dayCount
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("date").
		ColumnExpr("COUNT(*) AS count").
		Group("date").
		Order("date").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Date] = r.Count
	}
	return counts, nil
}

type monthCount struct {
	Month string `bun:"month"`
	Count int    `bun:"count"`
}

// CountPerMonth returns month (1-12) -> number of events in the given year
func (d *DB) CountPerMonth(ctx context.Context, year int) (map[int]int, error) {
	var rows []monthCount
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("substr(date, 6, 2) AS month").
		ColumnExpr("COUNT(*) AS count").
		Where("date >= ?", fmt.Sprintf("%04d-01-01", year)).
		Where("date <= ?", fmt.Sprintf("%04d-12-31", year)).
		GroupExpr("substr(date, 6, 2)").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		m, err := strconv.Atoi(r.Month)
		if err != nil {
			return nil, fmt.Errorf("unexpected month value %q: %w", r.Month, err)
		}
		counts[m] = r.Count
	}
	return counts, nil
}
