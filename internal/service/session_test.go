package service

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birdsbuddy/internal/channel"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

func TestSession_Defaults(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	st := s.State()

	assert.True(t, st.Simulating)
	assert.False(t, st.Connected)
	assert.Nil(t, st.Notification)
	assert.Equal(t, models.PendingActions{models.ActionFeed: false, models.ActionRefill: false}, st.Pending)
	assert.Equal(t, 100.0, st.Snapshot.FoodReservoirPct)
	assert.True(t, st.Snapshot.WaterBowlWet)
	assert.Equal(t, "06:30:00", st.Snapshot.Timestamp)
	assert.Empty(t, s.Events())
}

func TestSession_LogCapKeepsNewestFirst(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	for i := 0; i < 60; i++ {
		s.DeclareChannelUnavailable()
	}

	events := s.Events()
	require.Len(t, events, repository.EventLogCapacity)
	assert.Equal(t, uint64(60), events[0].ID)
	assert.Equal(t, uint64(11), events[len(events)-1].ID)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i-1].ID, events[i].ID)
	}
}

func TestSession_EventLabelUsesLocation(t *testing.T) {
	clock := newFakeClock()
	loc := time.FixedZone("IST", 5*3600+1800)
	s := NewSession(SessionOptions{Clock: clock, Location: loc})

	s.DeclareChannelUnavailable()
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Mon, 3 Mar 12:00:00", events[0].Time)
	assert.Equal(t, msgSimulationMode, events[0].Message)
	assert.Equal(t, models.SeverityInfo, events[0].Severity)
	assert.Equal(t, "12:00:00", s.State().Snapshot.Timestamp)
}

func TestSession_ConnectivityEdgesOnly(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	s.HandleConnectivity(false) // initial value, no edge
	s.HandleConnectivity(true)
	s.HandleConnectivity(true)
	s.HandleConnectivity(false)

	events := s.Events()
	require.Equal(t, []string{msgUplinkLost, msgUplinkEstablished}, messages(events))
	assert.Equal(t, models.SeverityDanger, events[0].Severity)
	assert.Equal(t, models.SeveritySuccess, events[1].Severity)
	assert.False(t, s.State().Connected)
}

func TestSession_GasSnapshotLogsOnceAndNotifies(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})

	events := s.Events()
	assert.Equal(t, 1, countEvents(events, msgGasDetected))
	st := s.State()
	require.NotNil(t, st.Notification)
	assert.Equal(t, notifyGasDetected, st.Notification.Message)
	assert.Equal(t, models.NotifyError, st.Notification.Severity)
	assert.True(t, st.Snapshot.IsCritical())
}

func TestSession_NilSnapshotIgnored(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	s.HandleSnapshot(nil)

	assert.True(t, s.State().Simulating)
}

func TestSession_NotificationDwellIgnoresStaleTimer(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock)

	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	first := s.State().Notification
	require.NotNil(t, first)

	clock.Advance(3 * time.Second)
	s.HandleSnapshot(&models.SnapshotPatch{MotionDetected: ptr(true)})
	second := s.State().Notification
	require.NotNil(t, second)
	require.NotEqual(t, first.ID, second.ID)

	// first timer fires at t=4s and must leave the newer notification alone
	clock.Advance(time.Second)
	got := s.State().Notification
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	clock.Advance(3 * time.Second)
	assert.Nil(t, s.State().Notification)
}

func TestSession_NotificationExpiresOnClockworkClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 3, 6, 30, 0, 0, time.UTC))
	s := NewSession(SessionOptions{Clock: clock})

	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	require.NotNil(t, s.State().Notification)

	clock.Advance(NotificationDwell - time.Millisecond)
	require.Never(t, func() bool { return s.State().Notification == nil }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return s.State().Notification == nil }, time.Second, 5*time.Millisecond)
}

func TestSession_FirstRealSnapshotEndsSimulation(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	simulating, stopped := s.simulationSignal()
	require.True(t, simulating)

	s.HandleSnapshot(&models.SnapshotPatch{FoodWeightGrams: ptr(42.0)})

	select {
	case <-stopped:
	default:
		t.Fatal("simulation signal not closed")
	}
	simulating, resumed := s.simulationSignal()
	assert.False(t, simulating)
	assert.Nil(t, resumed, "one-way fallback never resumes")

	ticked := s.applySimulatorTick(func(p models.DeviceSnapshot) models.DeviceSnapshot {
		p.FoodWeightGrams = 0
		return p
	})
	assert.False(t, ticked)
	assert.Equal(t, 42.0, s.State().Snapshot.FoodWeightGrams)
}

func TestSession_ResumeOnDisconnect(t *testing.T) {
	s := NewSession(SessionOptions{Clock: newFakeClock(), ResumeOnDisconnect: true})

	s.HandleConnectivity(true)
	s.HandleSnapshot(&models.SnapshotPatch{PumpActive: ptr(false)})
	simulating, resumed := s.simulationSignal()
	require.False(t, simulating)
	require.NotNil(t, resumed)

	s.HandleConnectivity(false)

	select {
	case <-resumed:
	default:
		t.Fatal("resume signal not closed")
	}
	assert.True(t, s.State().Simulating)
}

func TestSession_AttachChannel(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	ch := channel.NewMemory()
	detach := s.AttachChannel(ch)

	ch.EmitConnectivity(true)
	ch.EmitSnapshot(&models.SnapshotPatch{FoodReservoirPct: ptr(55.0)})

	st := s.State()
	assert.True(t, st.Connected)
	assert.False(t, st.Simulating)
	assert.Equal(t, 55.0, st.Snapshot.FoodReservoirPct)

	detach()
	ch.EmitConnectivity(false)
	assert.True(t, s.State().Connected, "detached session must not see updates")
}

func TestSession_SubscribersSeeUpdatesInOrder(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	var mu sync.Mutex
	var kinds []UpdateKind
	cancel := s.Subscribe(func(u Update) {
		mu.Lock()
		kinds = append(kinds, u.Kind)
		mu.Unlock()
	})

	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	cancel()
	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(false)})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []UpdateKind{UpdateEvent, UpdateNotification, UpdateState}, kinds)
}

func TestSession_CloseStopsMutations(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	_, stopped := s.simulationSignal()

	s.Close()
	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})

	select {
	case <-stopped:
	default:
		t.Fatal("close must stop the simulator")
	}
	assert.Empty(t, s.Events())
	accepted, _ := s.beginDispatch(models.ActionFeed)
	assert.False(t, accepted)
}
