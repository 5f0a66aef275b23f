// Package audit archives resource usage events into a DuckDB database for
// offline analysis. The archive subscribes as an event sink; a write failure
// is the caller's to log and never blocks the allocation path.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"resman/internal/events"
	"resman/pkg/resman"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS resource_usage_events (
    id            VARCHAR PRIMARY KEY,
    ts            TIMESTAMP NOT NULL,
    allocation_id VARCHAR NOT NULL,
    resource_type VARCHAR NOT NULL,
    amount        DOUBLE NOT NULL,
    operation     VARCHAR NOT NULL,
    context       VARCHAR
);
`

// Compile-time interface check.
var _ events.Publisher = (*Archive)(nil)

// Archive appends usage events to a DuckDB file.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database and ensures the schema.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("resman/audit: path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("resman/audit: open duckdb: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("resman/audit: ensure schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Publish archives usage events; other event types are ignored.
func (a *Archive) Publish(ctx context.Context, ev events.Event) error {
	if ev.Type != events.TypeResourceUsage {
		return nil
	}
	usage, ok := ev.Data.(resman.ResourceUsageEvent)
	if !ok {
		return nil
	}
	return a.Append(ctx, usage)
}

// Append writes one usage event row.
func (a *Archive) Append(ctx context.Context, ev resman.ResourceUsageEvent) error {
	contextJSON, err := json.Marshal(ev.Context)
	if err != nil {
		return fmt.Errorf("resman/audit: marshal context: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO resource_usage_events (id, ts, allocation_id, resource_type, amount, operation, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, ev.AllocationID, string(ev.ResourceType), ev.Amount, string(ev.Operation), string(contextJSON),
	)
	if err != nil {
		return fmt.Errorf("resman/audit: insert event: %w", err)
	}
	return nil
}

// Count returns the number of archived events, for tests and tooling.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resource_usage_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("resman/audit: count events: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
