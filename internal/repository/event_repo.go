package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"birdsbuddy/internal/models"
)

// sqliteTimeLayout is the TIMESTAMP text format used for every time column.
const sqliteTimeLayout = "2006-01-02 15:04:05"

const (
	insertEventSQL = `
		INSERT INTO device_events (id, seq, occurred_at, severity, badge, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	insertCommandSQL = `
		INSERT INTO command_records (request_id, kind, mode, issued_at, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			mode=excluded.mode,
			error=excluded.error
	`

	selectEventsSQL = `SELECT seq, occurred_at, severity, badge, message FROM device_events`
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

func formatSQLiteTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// Append archives a session log entry under a fresh row id.
func (r *EventSQLite) Append(ctx context.Context, e models.EventLogEntry) error {
	var badge *string
	if e.Badge != models.BadgeNone {
		b := string(e.Badge)
		badge = &b
	}
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		uuid.NewString(),
		e.ID,
		formatSQLiteTime(e.OccurredAt),
		string(e.Severity),
		badge,
		e.Message,
	)
	return err
}

// AppendCommand records the outcome of one dispatched command.
func (r *EventSQLite) AppendCommand(ctx context.Context, c models.CommandRecord) error {
	if c.RequestID == "" {
		c.RequestID = uuid.NewString()
	}
	var errText *string
	if c.Err != "" {
		errText = &c.Err
	}
	_, err := r.db.ExecContext(ctx, insertCommandSQL,
		c.RequestID,
		string(c.Kind),
		string(c.Mode),
		formatSQLiteTime(c.IssuedAt),
		errText,
	)
	return err
}

// List returns archived entries filtered by [from, to] (inclusive) and/or
// severity, oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, severity string) ([]models.EventLogEntry, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimeLayout))
	}
	if severity = strings.ToLower(strings.TrimSpace(severity)); severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, severity)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC, seq ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.EventLogEntry, 0, 64)
	for rows.Next() {
		var (
			e        models.EventLogEntry
			occurred string
			severity string
			badge    sql.NullString
		)
		if err := rows.Scan(&e.ID, &occurred, &severity, &badge, &e.Message); err != nil {
			return nil, err
		}
		e.OccurredAt, err = time.ParseInLocation(sqliteTimeLayout, occurred, time.UTC)
		if err != nil {
			return nil, err
		}
		e.Severity = models.Severity(severity)
		if badge.Valid {
			e.Badge = models.Badge(badge.String)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
