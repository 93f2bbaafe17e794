// Package cache persists the last accepted reading in a single sqlite row so
// a restarted process has something to show before its first poll.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"feedwatch/internal/clock"
	"feedwatch/internal/types"
)

const slot = 1

// Store is the single-slot last-reading cache.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(db *sql.DB, clk clock.Clock) *Store {
	return &Store{db: db, clock: clock.OrReal(clk)}
}

// Save overwrites the slot with r.
func (s *Store) Save(ctx context.Context, r types.Reading) error {
	args := []any{slot, r.CreatedAt, r.EntryID}
	for _, v := range r.Fields {
		args = append(args, nullFloat(v))
	}
	args = append(args, s.clock.Now().UTC().Format(time.RFC3339Nano))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_reading (slot, created_at, entry_id, field1, field2, field3, field4, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			created_at = excluded.created_at,
			entry_id   = excluded.entry_id,
			field1     = excluded.field1,
			field2     = excluded.field2,
			field3     = excluded.field3,
			field4     = excluded.field4,
			saved_at   = excluded.saved_at
	`, args...)
	if err != nil {
		return fmt.Errorf("save last reading: %w", err)
	}
	return nil
}

// Load returns the cached reading. ok is false when nothing has been saved.
func (s *Store) Load(ctx context.Context) (r types.Reading, ok bool, err error) {
	var fields [types.FieldCount]sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `
		SELECT created_at, entry_id, field1, field2, field3, field4
		FROM last_reading
		WHERE slot = ?
	`, slot)
	if err := row.Scan(&r.CreatedAt, &r.EntryID, &fields[0], &fields[1], &fields[2], &fields[3]); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Reading{}, false, nil
		}
		return types.Reading{}, false, fmt.Errorf("load last reading: %w", err)
	}
	for i, f := range fields {
		if f.Valid {
			r.Fields[i] = types.Float(f.Float64)
		}
	}
	return r, true, nil
}

// Ping checks that the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
