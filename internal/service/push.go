package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

// NotificationQueue accepts notifications for background push delivery.
// pushnotify.WorkerPool satisfies it.
type NotificationQueue interface {
	Dispatch(n models.Notification) bool
}

// PushService manages browser push subscriptions and forwards error
// notifications to them.
type PushService struct {
	repo      repository.PushSubscriptionRepo
	publicKey string
	queue     NotificationQueue
	log       *logger.Logger
}

// NewPushService returns a service that reports ErrPushDisabled when repo
// or queue is nil.
func NewPushService(repo repository.PushSubscriptionRepo, publicKey string, queue NotificationQueue, log *logger.Logger) *PushService {
	if log == nil {
		log = logger.Nop()
	}
	return &PushService{repo: repo, publicKey: publicKey, queue: queue, log: log}
}

func (s *PushService) enabled() bool {
	return s.repo != nil && s.queue != nil && s.publicKey != ""
}

// VAPIDPublicKey is the application server key browsers subscribe with.
func (s *PushService) VAPIDPublicKey() (string, error) {
	if !s.enabled() {
		return "", ErrPushDisabled
	}
	return s.publicKey, nil
}

func (s *PushService) Subscribe(ctx context.Context, sub models.PushSubscription) error {
	if !s.enabled() {
		return ErrPushDisabled
	}
	if err := validateSubscription(sub); err != nil {
		return err
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	s.log.Infow("push_subscribed", "endpoint", sub.Endpoint)
	return nil
}

func (s *PushService) Unsubscribe(ctx context.Context, endpoint string) error {
	if !s.enabled() {
		return ErrPushDisabled
	}
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	if err := s.repo.Delete(ctx, endpoint); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	s.log.Infow("push_unsubscribed", "endpoint", endpoint)
	return nil
}

// Forward pushes every error notification raised by session. The returned
// func stops forwarding.
func (s *PushService) Forward(session *Session) (cancel func()) {
	if !s.enabled() {
		return func() {}
	}
	return session.Subscribe(func(u Update) {
		if u.Kind != UpdateNotification || u.Notification == nil {
			return
		}
		if u.Notification.Severity != models.NotifyError {
			return
		}
		s.queue.Dispatch(*u.Notification)
	})
}

func validateSubscription(sub models.PushSubscription) error {
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an https URL", ErrInvalidSubscription)
	}
	if sub.P256DH == "" || sub.Auth == "" {
		return fmt.Errorf("%w: p256dh and auth keys are required", ErrInvalidSubscription)
	}
	return nil
}
