package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"birdsbuddy/internal/models"
	"birdsbuddy/internal/service"
)

// ---- Service Mocks ----

type mockMonitoring struct {
	state service.StateView
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (service.StateView, error) {
	return m.state, m.err
}

type mockCommands struct {
	accepted bool
	err      error
	calls    []models.ActionKind
}

func (m *mockCommands) Dispatch(ctx context.Context, kind models.ActionKind) (bool, error) {
	m.calls = append(m.calls, kind)
	return m.accepted, m.err
}

type mockEventLog struct {
	resp        []models.EventLogEntry
	err         error
	lastList    service.LogFilter
	lastArchive service.ArchiveFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.EventLogEntry, error) {
	m.lastList = f
	return m.resp, m.err
}

func (m *mockEventLog) Archive(ctx context.Context, f service.ArchiveFilter) ([]models.EventLogEntry, error) {
	m.lastArchive = f
	return m.resp, m.err
}

type mockHistory struct {
	points    []models.HistoryPoint
	err       error
	calls     int
	lastHours int
}

func (m *mockHistory) Hourly(ctx context.Context, hours int) ([]models.HistoryPoint, error) {
	m.calls++
	m.lastHours = hours
	return m.points, m.err
}

type mockPush struct {
	key       string
	keyErr    error
	subErr    error
	unsubErr  error
	lastSub   models.PushSubscription
	lastUnsub string
}

func (m *mockPush) VAPIDPublicKey() (string, error) { return m.key, m.keyErr }

func (m *mockPush) Subscribe(ctx context.Context, sub models.PushSubscription) error {
	m.lastSub = sub
	return m.subErr
}

func (m *mockPush) Unsubscribe(ctx context.Context, endpoint string) error {
	m.lastUnsub = endpoint
	return m.unsubErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts...)
	return h.InitRoutes()
}
