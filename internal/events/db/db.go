package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
	// Now is the write clock; nil means time.Now.
	Now func() time.Time
}

func (d *DB) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ---------------- EVENTS ----------------

// Insert → persist a new event; the store assigns the id.
// Insert is a raw write that does not look for overlapping events. Request
// paths go through CreateIfFree, which keeps same-date intervals disjoint.
func (d *DB) Insert(ctx context.Context, event *models.Event) error {
	event.LastUpdate = d.now().Truncate(time.Second)
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// Get → fetch one event by id
func (d *DB) Get(ctx context.Context, id int64) (*models.Event, error) {
	return get(ctx, d.Bun, id)
}

func get(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error) {
	var event models.Event
	err := idb.NewSelect().
		Model(&event).
		Where("event_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Delete → hard delete by id
func (d *DB) Delete(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("event_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// ---------------- OVERLAP ----------------

// FindOverlap returns the first event on date whose interval intersects
// [from, to). Touching endpoints do not intersect. excludeID > 0 removes that
// event from the candidates.
func (d *DB) FindOverlap(ctx context.Context, date, from, to string, excludeID int64) (*models.Event, error) {
	return findOverlap(ctx, d.Bun, date, from, to, excludeID)
}

func findOverlap(ctx context.Context, idb bun.IDB, date, from, to string, excludeID int64) (*models.Event, error) {
	var conflict models.Event
	q := idb.NewSelect().
		Model(&conflict).
		Where("date = ?", date).
		Where("time_from < ?", to).
		Where("time_to > ?", from)
	if excludeID > 0 {
		q = q.Where("event_id != ?", excludeID)
	}
	err := q.OrderExpr("time_from ASC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

// CreateIfFree inserts event only if no stored event overlaps it. The check
// and the insert share one transaction.
func (d *DB) CreateIfFree(ctx context.Context, event *models.Event) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		conflict, err := findOverlap(ctx, tx, event.Date, event.TimeFrom, event.TimeTo, 0)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if conflict != nil {
			return &models.OverlapError{ConflictID: conflict.ID}
		}
		event.LastUpdate = d.now().Truncate(time.Second)
		_, err = tx.NewInsert().Model(event).Exec(ctx)
		return err
	})
}

// UpdateIfFree loads event id, lets mutate apply the patch, re-checks the
// merged interval against every other event and writes the row, all in one
// transaction.
func (d *DB) UpdateIfFree(ctx context.Context, id int64, mutate func(*models.Event) error) (*models.Event, error) {
	var updated *models.Event
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = d.update(ctx, tx, id, mutate)
		return err
	})
	return updated, err
}

func (d *DB) update(ctx context.Context, tx bun.Tx, id int64, mutate func(*models.Event) error) (*models.Event, error) {
	event, err := get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(event); err != nil {
		return nil, err
	}
	conflict, err := findOverlap(ctx, tx, event.Date, event.TimeFrom, event.TimeTo, id)
	if err != nil {
		return nil, fmt.Errorf("overlap check failed: %w", err)
	}
	if conflict != nil {
		return nil, &models.OverlapError{ConflictID: conflict.ID}
	}
	event.ID = id
	event.LastUpdate = d.now().Truncate(time.Second)
	_, err = tx.NewUpdate().
		Model(event).
		Column("name", "date", "time_from", "time_to", "street", "suburb", "state", "post_code", "description", "last_update").
		Where("event_id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ---------------- LISTING ----------------

// Scan → ordered, paginated read of the given columns
func (d *DB) Scan(ctx context.Context, columns []string, order []string, limit, offset int) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)
	if len(columns) > 0 {
		q = q.Column(columns...)
	}
	if len(order) > 0 {
		q = q.Order(order...)
	}
	err := q.Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// All → every event in chronological order
func (d *DB) All(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Order("date ASC", "time_from ASC").
		Scan(ctx)
	return events, err
}

// ---------------- NAVIGATION ----------------

// Neighbors returns the chronologically previous and next events of e across
// the whole table.
func (d *DB) Neighbors(ctx context.Context, e *models.Event) (models.Neighbors, error) {
	var n models.Neighbors

	prev, err := d.neighbor(ctx,
		"date < ? OR (date = ? AND time_to < ?)", []interface{}{e.Date, e.Date, e.TimeTo},
		"date DESC", "time_to DESC")
	if err != nil {
		return n, err
	}
	next, err := d.neighbor(ctx,
		"date > ? OR (date = ? AND time_from > ?)", []interface{}{e.Date, e.Date, e.TimeFrom},
		"date ASC", "time_from ASC")
	if err != nil {
		return n, err
	}
	n.Previous, n.Next = prev, next
	return n, nil
}

func (d *DB) neighbor(ctx context.Context, where string, args []interface{}, order ...string) (*int64, error) {
	var id int64
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("event_id").
		Where(where, args...).
		Order(order...).
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
