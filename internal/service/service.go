package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"birdsbuddy/internal/channel"
	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

// Monitoring exposes the read-only console state.
type Monitoring interface {
	GetState(ctx context.Context) (StateView, error)
}

// Commands dispatches manual operator actions.
type Commands interface {
	Dispatch(ctx context.Context, kind models.ActionKind) (bool, error)
}

// EventLog exposes the bounded session log and the optional archive.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.EventLogEntry, error)
	Archive(ctx context.Context, f ArchiveFilter) ([]models.EventLogEntry, error)
}

// History exposes hourly reservoir averages.
type History interface {
	Hourly(ctx context.Context, hours int) ([]models.HistoryPoint, error)
}

// Push manages web push registrations.
type Push interface {
	VAPIDPublicKey() (string, error)
	Subscribe(ctx context.Context, sub models.PushSubscription) error
	Unsubscribe(ctx context.Context, endpoint string) error
}

// Simulator runs the background loop that drives the synthetic device.
// Stop via context cancellation in main() for graceful shutdown.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates all sub-services around one session.
type Service struct {
	Monitoring
	Commands
	EventLog
	History
	Push
	Simulator

	Session  *Session
	Sampler  *HistoryService
	Archiver *ArchiveService
	Notifier *PushService
}

// Options carries the optional collaborators of NewService.
type Options struct {
	// Channel is nil when the console runs on the simulator only.
	Channel      channel.Channel
	Breaker      *gobreaker.CircuitBreaker
	WriteTimeout time.Duration
	Rand         *rand.Rand
	PushKey      string
	PushQueue    NotificationQueue
	Observer     Observer
	Log          *logger.Logger
}

// NewService wires the repository layer and the session into concrete services.
func NewService(session *Session, repos *repository.Repository, o Options) *Service {
	log := o.Log
	if log == nil {
		log = logger.Nop()
	}

	var recorder commandRecorder
	if repos.Archive != nil {
		recorder = repos.Archive
	}
	history := NewHistoryService(session, repos.Telemetry, log.Named("history"))
	push := NewPushService(repos.Push, o.PushKey, o.PushQueue, log.Named("push"))

	return &Service{
		Monitoring: NewMonitoringService(session),
		Commands: NewDispatcherService(session, DispatcherOptions{
			Channel:      o.Channel,
			Breaker:      o.Breaker,
			WriteTimeout: o.WriteTimeout,
			Recorder:     recorder,
			Observer:     o.Observer,
			Log:          log.Named("dispatcher"),
		}),
		EventLog:  NewEventLogService(session, repos.Archive),
		History:   history,
		Push:      push,
		Simulator: NewSimulatorService(session, o.Rand, log.Named("simulator")),

		Session:  session,
		Sampler:  history,
		Archiver: NewArchiveService(repos.Archive, log.Named("archive")),
		Notifier: push,
	}
}
