package models

import "time"

// Severity classifies an event log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityDanger:
		return true
	}
	return false
}

// Badge marks the origin of an event.
type Badge string

const (
	BadgeNone   Badge = ""
	BadgeManual Badge = "MANUAL"
	BadgeAuto   Badge = "AUTO"
)

// EventLogEntry is a single immutable log record.
type EventLogEntry struct {
	ID         uint64    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Time       string    `json:"time"` // display label
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	Badge      Badge     `json:"badge,omitempty"`
}

// EventDraft is an entry before the session stamps it with an id and time.
type EventDraft struct {
	Message  string
	Severity Severity
	Badge    Badge
}
