package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birdsbuddy/internal/models"
)

type pushRepoStub struct {
	saved   []models.PushSubscription
	deleted []string
}

func (r *pushRepoStub) Save(_ context.Context, s models.PushSubscription) error {
	r.saved = append(r.saved, s)
	return nil
}

func (r *pushRepoStub) Delete(_ context.Context, endpoint string) error {
	r.deleted = append(r.deleted, endpoint)
	return nil
}

func (r *pushRepoStub) List(context.Context) ([]models.PushSubscription, error) {
	return r.saved, nil
}

type queueStub struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (q *queueStub) Dispatch(n models.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
	return true
}

func TestPushService_Disabled(t *testing.T) {
	svc := NewPushService(nil, "", nil, nil)

	_, err := svc.VAPIDPublicKey()
	assert.ErrorIs(t, err, ErrPushDisabled)
	assert.ErrorIs(t, svc.Subscribe(context.Background(), models.PushSubscription{}), ErrPushDisabled)
	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), "x"), ErrPushDisabled)
}

func TestPushService_SubscribeValidates(t *testing.T) {
	repo := &pushRepoStub{}
	svc := NewPushService(repo, "BPUB", &queueStub{}, nil)

	key, err := svc.VAPIDPublicKey()
	require.NoError(t, err)
	assert.Equal(t, "BPUB", key)

	bad := []models.PushSubscription{
		{Endpoint: "http://push.example/a", P256DH: "k", Auth: "a"},
		{Endpoint: "https://push.example/a"},
		{Endpoint: "::", P256DH: "k", Auth: "a"},
	}
	for _, sub := range bad {
		assert.ErrorIs(t, svc.Subscribe(context.Background(), sub), ErrInvalidSubscription, "%+v", sub)
	}

	good := models.PushSubscription{Endpoint: "https://push.example/a", P256DH: "k", Auth: "a"}
	require.NoError(t, svc.Subscribe(context.Background(), good))
	require.Len(t, repo.saved, 1)
	assert.False(t, repo.saved[0].CreatedAt.IsZero())

	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), " "), ErrInvalidSubscription)
	require.NoError(t, svc.Unsubscribe(context.Background(), good.Endpoint))
	assert.Equal(t, []string{good.Endpoint}, repo.deleted)
}

func TestPushService_ForwardsErrorNotificationsOnly(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock)
	q := &queueStub{}
	svc := NewPushService(&pushRepoStub{}, "BPUB", q, nil)
	stop := svc.Forward(s)
	defer stop()

	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	d := NewDispatcherService(s, DispatcherOptions{})
	_, err := d.Dispatch(context.Background(), models.ActionFeed)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	q.mu.Lock()
	defer q.mu.Unlock()
	require.Len(t, q.sent, 1)
	assert.Equal(t, notifyGasDetected, q.sent[0].Message)
}
