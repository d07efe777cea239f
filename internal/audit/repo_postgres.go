package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresRepo writes to the audit_events table created by the embedded migrations.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const insertEvent = `
INSERT INTO audit_events
	(id, tenant_id, type, actor_id, actor_role, ip_address, device, path, module, message, created_at)
VALUES
	($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11)`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEvent,
		e.ID, e.TenantID, string(e.Type), e.ActorID, e.ActorRole,
		e.IPAddress, e.Device, e.Path, e.Module, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

const selectEvents = `
SELECT id::text, COALESCE(tenant_id, ''), type, COALESCE(actor_id, ''), COALESCE(actor_role, ''),
	COALESCE(ip_address, ''), COALESCE(device, ''), COALESCE(path, ''), COALESCE(module, ''), message, created_at
FROM audit_events`

// findQuery builds the SELECT for f with positional args.
func findQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.Type != "" {
		add("type", string(f.Type))
	}
	if f.ActorID != "" {
		add("actor_id", f.ActorID)
	}
	if f.TenantID != "" {
		add("tenant_id", f.TenantID)
	}

	var b strings.Builder
	b.WriteString(selectEvents)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, f.limit())
	fmt.Fprintf(&b, "\nORDER BY created_at DESC\nLIMIT $%d", len(args))
	return b.String(), args
}

func (r *PostgresRepo) Find(ctx context.Context, f Filter) ([]Event, error) {
	q, args := findQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e   Event
			typ string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &typ, &e.ActorID, &e.ActorRole,
			&e.IPAddress, &e.Device, &e.Path, &e.Module, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return out, nil
}
