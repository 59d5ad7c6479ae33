package repository

import (
	"context"
	"database/sql"
	"time"

	"birdsbuddy/internal/models"
)

// EventLog is the bounded, newest-first session log.
type EventLog interface {
	Insert(e models.EventLogEntry)
	List() []models.EventLogEntry
	Len() int
}

// EventArchive keeps every session log entry and command record beyond the
// session log cap. It is write-behind only.
type EventArchive interface {
	Append(ctx context.Context, e models.EventLogEntry) error
	AppendCommand(ctx context.Context, c models.CommandRecord) error
	List(ctx context.Context, from, to time.Time, severity string) ([]models.EventLogEntry, error)
}

// TelemetryRepo stores reservoir samples and serves hourly averages.
type TelemetryRepo interface {
	Record(ctx context.Context, s models.TelemetrySample) error
	Hourly(ctx context.Context, from, to time.Time) ([]models.HistoryPoint, error)
}

type PushSubscriptionRepo interface {
	Save(ctx context.Context, s models.PushSubscription) error
	Delete(ctx context.Context, endpoint string) error
	List(ctx context.Context) ([]models.PushSubscription, error)
}

type Repository struct {
	EventLog  EventLog
	Archive   EventArchive
	Telemetry TelemetryRepo
	Push      PushSubscriptionRepo
}

// NewRepository always provides the session log. The SQLite stores are only
// wired when db is non-nil; Telemetry can be replaced afterwards by another
// driver.
func NewRepository(db *sql.DB) *Repository {
	r := &Repository{EventLog: NewEventRing(EventLogCapacity)}
	if db != nil {
		r.Archive = NewEventSQLite(db)
		r.Telemetry = NewTelemetrySQLite(db)
		r.Push = NewPushSQLite(db)
	}
	return r
}
