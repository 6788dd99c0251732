package snapshot

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"elevator_dispatch/internal/elevator"
	"elevator_dispatch/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const upsertCar = `
INSERT INTO cars (id, current_floor, direction, capacity, current_load, ascending, descending, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    current_floor = EXCLUDED.current_floor,
    direction = EXCLUDED.direction,
    capacity = EXCLUDED.capacity,
    current_load = EXCLUDED.current_load,
    ascending = EXCLUDED.ascending,
    descending = EXCLUDED.descending,
    updated_at = EXCLUDED.updated_at`

// PostgresSink upserts one row per car into the cars table. It holds a
// single connection, so Publish must not be called concurrently.
type PostgresSink struct {
	conn *pgx.Conn
	now  func() time.Time
}

func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed connecting to postgres: %w", err)
	}

	schema, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	if err := migrations.Run(ctx, conn, schema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresSink{conn: conn, now: time.Now}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Publish(ctx context.Context, snapshots []elevator.Snapshot) error {
	updatedAt := pgtype.Timestamptz{Time: s.now(), Valid: true}

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(upsertCar,
			snap.ID,
			snap.CurrentFloor,
			snap.Direction.String(),
			snap.Capacity,
			snap.CurrentLoad,
			nonNil(snap.Ascending),
			nonNil(snap.Descending),
			updatedAt,
		)
	}

	results := s.conn.SendBatch(ctx, batch)
	for _, snap := range snapshots {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert car %s: %w", snap.ID, err)
		}
	}
	return results.Close()
}

func (s *PostgresSink) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func nonNil(floors []int) []int {
	if floors == nil {
		return []int{}
	}
	return floors
}
