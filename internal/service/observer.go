package service

import "birdsbuddy/internal/models"

// Snapshot sources reported to the Observer.
const (
	SourceChannel   = "channel"
	SourceSimulator = "simulator"
	SourceCommand   = "command"
)

// Observer receives session activity for metrics. Calls may happen with the
// session lock held and must not call back into the session.
type Observer interface {
	EventLogged(severity models.Severity)
	NotificationRaised(severity models.NotificationSeverity)
	SnapshotApplied(source string)
	SimulatorTicked()
	ConnectivityChanged(connected bool)
	PendingChanged(kind models.ActionKind, pending bool)
	CommandCompleted(rec models.CommandRecord, writeSeconds float64)
}

type nopObserver struct{}

func (nopObserver) EventLogged(models.Severity) {}
func (nopObserver) NotificationRaised(models.NotificationSeverity) {}
func (nopObserver) SnapshotApplied(string) {}
func (nopObserver) SimulatorTicked() {}
func (nopObserver) ConnectivityChanged(bool) {}
func (nopObserver) PendingChanged(models.ActionKind, bool) {}
func (nopObserver) CommandCompleted(models.CommandRecord, float64) {}
