package db

import (
	"context"
	"fmt"

	"ms-events/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// SQLite only guarantees ids are never reused with AUTOINCREMENT, so the
// table is declared explicitly there. PostgreSQL gets BIGSERIAL from bun.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	event_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	time_from TEXT NOT NULL,
	time_to TEXT NOT NULL,
	street TEXT NOT NULL,
	suburb TEXT NOT NULL,
	state TEXT NOT NULL,
	post_code TEXT NOT NULL,
	description TEXT NOT NULL,
	last_update TIMESTAMP NOT NULL
)`

// Migrate creates the events table and the index backing overlap and
// neighbour lookups. Safe to run on every start.
func Migrate(ctx context.Context, db *bun.DB) error {
	var err error
	if db.Dialect().Name() == dialect.SQLite {
		_, err = db.ExecContext(ctx, sqliteSchema)
	} else {
		_, err = db.NewCreateTable().
			Model((*models.Event)(nil)).
			IfNotExists().
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("create events table failed: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.Event)(nil)).
		Index("events_date_time_idx").
		Column("date", "time_from", "time_to").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create events index failed: %w", err)
	}
	return nil
}
