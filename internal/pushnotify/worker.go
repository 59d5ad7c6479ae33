// Package pushnotify fans operator notifications out to browser push
// subscriptions.
package pushnotify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the subscription repository the pool needs.
type SubscriptionStore interface {
	List(ctx context.Context) ([]models.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
}

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title    string                      `json:"title"`
	Body     string                      `json:"body"`
	Severity models.NotificationSeverity `json:"severity"`
}

const payloadTitle = "Birds Buddy"

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan models.Notification
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *logger.Logger
}

// NewWorkerPool creates a pool of size workers with a job buffer of the same size.
func NewWorkerPool(size int, store SubscriptionStore, opts *webpush.Options, log *logger.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan models.Notification, size),
		store:   store,
		webpush: opts,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debugw("push_worker_started", "worker", id)
	for {
		select {
		case n := <-wp.jobs:
			wp.sendAll(ctx, n)
		case <-ctx.Done():
			wp.log.Debugw("push_worker_stopped", "worker", id)
			return
		}
	}
}

// Dispatch queues n for delivery. It never blocks: when the buffer is full
// the notification is dropped and false is returned.
func (wp *WorkerPool) Dispatch(n models.Notification) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		wp.log.Warnw("push_queue_full", "notification_id", n.ID)
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan models.Notification {
	return wp.jobs
}

func (wp *WorkerPool) sendAll(ctx context.Context, n models.Notification) {
	subs, err := wp.store.List(ctx)
	if err != nil {
		wp.log.Errorw("push_subscriptions_list_failed", "err", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(Payload{Title: payloadTitle, Body: n.Message, Severity: n.Severity})
	if err != nil {
		wp.log.Errorw("push_payload_encode_failed", "err", err)
		return
	}
	wp.log.Infow("push_sending", "notification_id", n.ID, "subscriptions", len(subs))
	for _, sub := range subs {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub models.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warnw("push_send_failed", "endpoint", sub.Endpoint, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Infow("push_subscription_expired", "endpoint", sub.Endpoint)
		if err := wp.store.Delete(ctx, sub.Endpoint); err != nil {
			wp.log.Warnw("push_subscription_delete_failed", "endpoint", sub.Endpoint, "err", err)
		}
	}
}
