package models

import "time"

// NotificationSeverity is the toast level shown to the operator.
type NotificationSeverity string

const (
	NotifySuccess NotificationSeverity = "success"
	NotifyError   NotificationSeverity = "error"
	NotifyInfo    NotificationSeverity = "info"
)

// Notification is the single live, self-expiring operator alert.
type Notification struct {
	ID       uint64               `json:"id"`
	Message  string               `json:"message"`
	Severity NotificationSeverity `json:"severity"`
	RaisedAt time.Time            `json:"raised_at"`
}

// NotificationDraft is a notification before the session assigns an id.
type NotificationDraft struct {
	Message  string
	Severity NotificationSeverity
}
