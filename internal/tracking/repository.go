package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE events (
//	  id             uuid PRIMARY KEY,
//	  component_name text NOT NULL,
//	  variant        text NOT NULL DEFAULT 'default',
//	  action         text NOT NULL,
//	  project_id     text NOT NULL DEFAULT '',
//	  user_id        text NOT NULL DEFAULT '',
//	  metadata       jsonb,
//	  timestamp      timestamptz NOT NULL
//	);
//	CREATE INDEX events_component_ts ON events (component_name, timestamp DESC);
//	CREATE INDEX events_component_action ON events (component_name, action);
//	CREATE INDEX events_project_ts ON events (project_id, timestamp DESC);
//
// The table is INSERT-only; an UPDATE/DELETE-blocking trigger is recommended.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, e Event) error {
	var meta []byte
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = b
	}

	const q = `
INSERT INTO events (id, component_name, variant, action, project_id, user_id, metadata, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.ComponentName,
		e.Variant,
		string(e.Action),
		e.ProjectID,
		e.UserID,
		meta,
		e.Timestamp,
	)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM events"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepo) Stream(ctx context.Context, f Filter, fn func(Event) error) error {
	where, args := whereClause(f)
	q := `
SELECT id, component_name, variant, action, project_id, user_id, metadata, timestamp
FROM events` + where + `
ORDER BY timestamp DESC
`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e    Event
			meta []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.ComponentName,
			&e.Variant,
			&e.Action,
			&e.ProjectID,
			&e.UserID,
			&meta,
			&e.Timestamp,
		); err != nil {
			return err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if !f.From.IsZero() {
		add("timestamp >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("timestamp <= $%d", f.To)
	}
	if f.ComponentName != "" {
		add("component_name = $%d", f.ComponentName)
	}
	if f.ProjectID != "" {
		add("project_id = $%d", f.ProjectID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
