package repository

import (
	"context"
	"database/sql"
	"time"

	"birdsbuddy/internal/models"
)

const (
	upsertPushSQL = `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			p256dh=excluded.p256dh,
			auth=excluded.auth
	`
	deletePushSQL = `DELETE FROM push_subscriptions WHERE endpoint = ?`
	selectPushSQL = `SELECT endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY created_at ASC`
)

type PushSQLite struct {
	db *sql.DB
}

func NewPushSQLite(db *sql.DB) *PushSQLite {
	return &PushSQLite{db: db}
}

// Save registers or refreshes the keys of a browser subscription.
func (r *PushSQLite) Save(ctx context.Context, s models.PushSubscription) error {
	_, err := r.db.ExecContext(ctx, upsertPushSQL, s.Endpoint, s.P256DH, s.Auth, formatSQLiteTime(s.CreatedAt))
	return err
}

func (r *PushSQLite) Delete(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx, deletePushSQL, endpoint)
	return err
}

func (r *PushSQLite) List(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, selectPushSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PushSubscription
	for rows.Next() {
		var (
			s       models.PushSubscription
			created string
		)
		if err := rows.Scan(&s.Endpoint, &s.P256DH, &s.Auth, &created); err != nil {
			return nil, err
		}
		// unparseable timestamps leave CreatedAt zero
		if t, err := time.ParseInLocation(sqliteTimeLayout, created, time.UTC); err == nil {
			s.CreatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
