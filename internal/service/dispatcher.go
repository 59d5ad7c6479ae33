package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"birdsbuddy/internal/channel"
	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
)

const (
	// SimulatedCommandDelay is how long a simulated command takes to land.
	SimulatedCommandDelay = 1500 * time.Millisecond
	// RealPendingWindow is how long a real command stays pending, counted
	// from issuance and independent of the write outcome.
	RealPendingWindow = 2 * time.Second

	defaultWriteTimeout = 5 * time.Second
)

// commandRecorder persists command outcomes. repository.EventArchive
// satisfies it.
type commandRecorder interface {
	AppendCommand(ctx context.Context, c models.CommandRecord) error
}

type DispatcherOptions struct {
	// Channel is nil when the session runs on the simulator only.
	Channel      channel.Channel
	Breaker      *gobreaker.CircuitBreaker
	WriteTimeout time.Duration
	Recorder     commandRecorder
	Observer     Observer
	Log          *logger.Logger
}

// DispatcherService turns operator actions into device commands, or into
// local simulated effects when no real device is attached.
type DispatcherService struct {
	session      *Session
	ch           channel.Channel
	breaker      *gobreaker.CircuitBreaker
	writeTimeout time.Duration
	recorder     commandRecorder
	obs          Observer
	log          *logger.Logger
}

func NewDispatcherService(session *Session, o DispatcherOptions) *DispatcherService {
	if o.Breaker == nil {
		o.Breaker = NewCommandBreaker(5, 30*time.Second)
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	return &DispatcherService{
		session:      session,
		ch:           o.Channel,
		breaker:      o.Breaker,
		writeTimeout: o.WriteTimeout,
		recorder:     o.Recorder,
		obs:          o.Observer,
		log:          o.Log,
	}
}

// NewCommandBreaker opens after maxFailures consecutive write failures and
// half-opens after openTimeout. Zero maxFailures never opens, so every
// dispatch makes its write attempt.
func NewCommandBreaker(maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	if maxFailures == 0 {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "device-commands",
			ReadyToTrip: func(gobreaker.Counts) bool { return false },
		})
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "device-commands",
		Timeout: openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
	})
}

// Dispatch requests kind. It returns false without error when the same
// action is already pending. The outcome is reported asynchronously through
// the session's notification slot and event log.
func (d *DispatcherService) Dispatch(ctx context.Context, kind models.ActionKind) (bool, error) {
	if kind.CommandName() == "" {
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	accepted, real := d.session.beginDispatch(kind)
	if !accepted {
		d.log.Debugw("dispatch_ignored", "kind", kind, "reason", "pending")
		return false, nil
	}

	clock := d.session.clock
	rec := models.CommandRecord{
		RequestID: uuid.NewString(),
		Kind:      kind,
		IssuedAt:  clock.Now().UTC(),
	}

	if real && d.ch != nil {
		rec.Mode = models.ModeReal
		d.log.Infow("dispatch_real", "request_id", rec.RequestID, "kind", kind, "command", kind.CommandName())
		clock.AfterFunc(RealPendingWindow, func() { d.session.clearPending(kind) })
		go d.write(rec)
		return true, nil
	}

	rec.Mode = models.ModeSimulated
	d.log.Infow("dispatch_simulated", "request_id", rec.RequestID, "kind", kind)
	clock.AfterFunc(SimulatedCommandDelay, func() {
		d.session.completeSimulated(kind)
		d.finish(rec, 0)
	})
	return true, nil
}

func (d *DispatcherService) write(rec models.CommandRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	start := time.Now()
	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, d.ch.SetCommand(ctx, rec.Kind.CommandName())
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		rec.Err = err.Error()
		d.log.Warnw("command_write_failed", "request_id", rec.RequestID, "kind", rec.Kind, "err", err)
		d.session.commandFailed(rec.Kind, err)
	} else {
		d.log.Infow("command_written", "request_id", rec.RequestID, "kind", rec.Kind, "seconds", elapsed)
		d.session.commandSucceeded(rec.Kind)
	}
	d.finish(rec, elapsed)
}

func (d *DispatcherService) finish(rec models.CommandRecord, writeSeconds float64) {
	d.obs.CommandCompleted(rec, writeSeconds)
	if d.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()
	if err := d.recorder.AppendCommand(ctx, rec); err != nil {
		d.log.Warnw("command_record_failed", "request_id", rec.RequestID, "err", err)
	}
}
