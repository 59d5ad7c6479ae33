package service

import (
	"sync"
	"time"

	"birdsbuddy/internal/channel"
	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

// NotificationDwell is how long a notification stays in the slot.
const NotificationDwell = 4 * time.Second

const (
	msgUplinkEstablished = "Telemetry uplink established"
	msgUplinkLost        = "Telemetry uplink lost"
	msgSimulationMode    = "System initializing in simulation mode"
	msgRationDispensed   = "Ration dispensed successfully"
)

// UpdateKind tags what changed in a session Update.
type UpdateKind string

const (
	UpdateState        UpdateKind = "state"
	UpdateEvent        UpdateKind = "event"
	UpdateNotification UpdateKind = "notification"
)

// Update is delivered to subscribers after every mutation. Event and
// Notification are set for their kinds only.
type Update struct {
	Kind         UpdateKind
	Event        *models.EventLogEntry
	Notification *models.Notification
}

type SessionOptions struct {
	Clock    Clock
	Location *time.Location
	Log      *logger.Logger
	Observer Observer
	EventLog repository.EventLog
	// ResumeOnDisconnect re-enters simulation when the channel drops after
	// real telemetry was seen. Off by default: leaving simulation is final.
	ResumeOnDisconnect bool
}

// SessionState is a copy of the observable session fields.
type SessionState struct {
	Snapshot     models.DeviceSnapshot
	Connected    bool
	Simulating   bool
	Pending      models.PendingActions
	Notification *models.Notification
}

// Session owns the snapshot, event log, notification slot, pending map and
// connectivity of one console. Every mutation takes mu, so mutations from the
// channel, the simulator, timers and command completions are totally ordered.
type Session struct {
	mu sync.Mutex
	// pubMu keeps subscriber delivery in mutation order.
	pubMu sync.Mutex

	clock  Clock
	loc    *time.Location
	log    *logger.Logger
	obs    Observer
	events repository.EventLog
	resume bool

	snapshot     models.DeviceSnapshot
	connected    bool
	hasChannel   bool
	realSeen     bool
	closed       bool
	notification *models.Notification
	pending      models.PendingActions
	manualTag    *models.ActionKind

	simulating bool
	simStopped chan struct{} // closed when the current simulation run ends
	simResumed chan struct{} // closed when simulation resumes; nil if it never will

	nextEventID        uint64
	nextNotificationID uint64

	outbox []Update
	subs   map[int]func(Update)
	subID  int
}

func NewSession(o SessionOptions) *Session {
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.EventLog == nil {
		o.EventLog = repository.NewEventRing(repository.EventLogCapacity)
	}

	s := &Session{
		clock:      o.Clock,
		loc:        o.Location,
		log:        o.Log,
		obs:        o.Observer,
		events:     o.EventLog,
		resume:     o.ResumeOnDisconnect,
		pending:    models.PendingActions{},
		simulating: true,
		simStopped: make(chan struct{}),
		subs:       map[int]func(Update){},
	}
	for _, k := range models.ActionKinds {
		s.pending[k] = false
	}
	s.snapshot = models.DefaultSnapshot(s.label(s.clock.Now(), snapshotLabelLayout))
	return s
}

func (s *Session) label(t time.Time, layout string) string {
	return t.In(s.loc).Format(layout)
}

// unlockAndPublish releases mu and hands the collected updates to
// subscribers. Must be called with mu held.
func (s *Session) unlockAndPublish() {
	out := s.outbox
	s.outbox = nil
	if len(out) == 0 {
		s.mu.Unlock()
		return
	}
	s.pubMu.Lock()
	subs := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, u := range out {
		for _, fn := range subs {
			fn(u)
		}
	}
}

// Subscribe registers fn for session updates. fn must not mutate the session.
func (s *Session) Subscribe(fn func(Update)) (cancel func()) {
	s.mu.Lock()
	id := s.subID
	s.subID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// subscribeEvents registers fn like Subscribe and returns the log entries
// already recorded, oldest first. Every entry reaches the caller exactly once:
// either in the backlog or through fn.
func (s *Session) subscribeEvents(fn func(Update)) (backlog []models.EventLogEntry, cancel func()) {
	s.mu.Lock()
	list := s.events.List()
	backlog = make([]models.EventLogEntry, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		backlog = append(backlog, list[i])
	}
	id := s.subID
	s.subID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return backlog, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// AttachChannel subscribes the session to ch. The returned func detaches it.
func (s *Session) AttachChannel(ch channel.Channel) (detach func()) {
	s.mu.Lock()
	s.hasChannel = true
	s.mu.Unlock()

	cancelConn := ch.OnConnectivity(s.HandleConnectivity)
	cancelSnap := ch.OnSnapshot(s.HandleSnapshot)
	return func() {
		cancelSnap()
		cancelConn()
	}
}

// DeclareChannelUnavailable records that the session runs on the simulator
// for its whole lifetime.
func (s *Session) DeclareChannelUnavailable() {
	s.mu.Lock()
	if !s.closed {
		s.hasChannel = false
		s.appendEventLocked(models.EventDraft{Message: msgSimulationMode, Severity: models.SeverityInfo})
	}
	s.unlockAndPublish()
}

// HandleConnectivity logs connected/disconnected edges.
func (s *Session) HandleConnectivity(connected bool) {
	s.mu.Lock()
	if s.closed || connected == s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	s.obs.ConnectivityChanged(connected)
	if connected {
		s.appendEventLocked(models.EventDraft{Message: msgUplinkEstablished, Severity: models.SeveritySuccess})
	} else {
		s.appendEventLocked(models.EventDraft{Message: msgUplinkLost, Severity: models.SeverityDanger})
		if s.resume && s.realSeen && !s.simulating {
			s.enterSimulationLocked()
			s.log.Infow("simulation_resumed", "reason", "uplink_lost")
		}
	}
	s.outbox = append(s.outbox, Update{Kind: UpdateState})
	s.unlockAndPublish()
}

// HandleSnapshot merges a device document. A nil patch (no data yet) is
// ignored. The first real document ends simulation.
func (s *Session) HandleSnapshot(p *models.SnapshotPatch) {
	if p == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.simulating {
		s.exitSimulationLocked()
		s.log.Infow("simulation_stopped", "reason", "real_telemetry")
	}
	s.realSeen = true
	s.applyLocked(s.snapshot.Merge(*p), SourceChannel)
	s.unlockAndPublish()
}

// applySimulatorTick replaces the snapshot with step(snapshot). It is a
// no-op returning false once simulation has ended.
func (s *Session) applySimulatorTick(step func(models.DeviceSnapshot) models.DeviceSnapshot) bool {
	s.mu.Lock()
	if s.closed || !s.simulating {
		s.mu.Unlock()
		return false
	}
	next := step(s.snapshot)
	next.Timestamp = s.label(s.clock.Now(), snapshotLabelLayout)
	s.obs.SimulatorTicked()
	s.applyLocked(next.Clamped(), SourceSimulator)
	s.unlockAndPublish()
	return true
}

// simulationSignal reports whether the session is simulating. While it is,
// ch closes when simulation ends; otherwise ch closes when simulation
// resumes and is nil if it never will.
func (s *Session) simulationSignal() (simulating bool, ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulating {
		return true, s.simStopped
	}
	if s.simResumed == nil {
		return false, nil
	}
	return false, s.simResumed
}

func (s *Session) exitSimulationLocked() {
	s.simulating = false
	close(s.simStopped)
	if s.resume && !s.closed {
		s.simResumed = make(chan struct{})
	}
}

func (s *Session) enterSimulationLocked() {
	s.simulating = true
	s.simStopped = make(chan struct{})
	if s.simResumed != nil {
		close(s.simResumed)
		s.simResumed = nil
	}
}

func (s *Session) applyLocked(next models.DeviceSnapshot, source string) {
	prev := s.snapshot
	s.snapshot = next

	out := Reconcile(prev, next, s.manualTag)
	if out.ManualTagConsumed {
		s.manualTag = nil
	}
	for _, d := range out.Events {
		s.appendEventLocked(d)
	}
	if out.Notification != nil {
		s.raiseLocked(*out.Notification)
	}
	s.obs.SnapshotApplied(source)
	s.outbox = append(s.outbox, Update{Kind: UpdateState})
}

func (s *Session) appendEventLocked(d models.EventDraft) {
	s.nextEventID++
	now := s.clock.Now()
	e := models.EventLogEntry{
		ID:         s.nextEventID,
		OccurredAt: now.UTC(),
		Time:       s.label(now, eventLabelLayout),
		Message:    d.Message,
		Severity:   d.Severity,
		Badge:      d.Badge,
	}
	s.events.Insert(e)
	s.obs.EventLogged(e.Severity)
	s.log.Debugw("event_logged", "id", e.ID, "severity", e.Severity, "badge", e.Badge, "message", e.Message)
	s.outbox = append(s.outbox, Update{Kind: UpdateEvent, Event: &e})
}

// raiseLocked puts d in the notification slot and schedules its expiry. The
// expiry timer only clears the slot if it still holds this notification.
func (s *Session) raiseLocked(d models.NotificationDraft) {
	s.nextNotificationID++
	n := models.Notification{
		ID:       s.nextNotificationID,
		Message:  d.Message,
		Severity: d.Severity,
		RaisedAt: s.clock.Now().UTC(),
	}
	s.notification = &n
	s.obs.NotificationRaised(n.Severity)
	s.outbox = append(s.outbox, Update{Kind: UpdateNotification, Notification: &n})

	id := n.ID
	s.clock.AfterFunc(NotificationDwell, func() { s.expireNotification(id) })
}

func (s *Session) expireNotification(id uint64) {
	s.mu.Lock()
	if s.notification != nil && s.notification.ID == id {
		s.notification = nil
		s.outbox = append(s.outbox, Update{Kind: UpdateState})
	}
	s.unlockAndPublish()
}

// beginDispatch marks kind pending and sets the manual tag. It reports
// whether the command was accepted and whether it should go to the device.
func (s *Session) beginDispatch(kind models.ActionKind) (accepted, real bool) {
	s.mu.Lock()
	if s.closed || s.pending[kind] {
		s.mu.Unlock()
		return false, false
	}
	s.pending[kind] = true
	tag := kind
	s.manualTag = &tag
	s.obs.PendingChanged(kind, true)
	s.outbox = append(s.outbox, Update{Kind: UpdateState})
	real = s.hasChannel && s.realSeen && !s.simulating
	s.unlockAndPublish()
	return true, real
}

func (s *Session) clearPendingLocked(kind models.ActionKind) {
	if !s.pending[kind] {
		return
	}
	s.pending[kind] = false
	s.obs.PendingChanged(kind, false)
	s.outbox = append(s.outbox, Update{Kind: UpdateState})
}

func (s *Session) clearPending(kind models.ActionKind) {
	s.mu.Lock()
	s.clearPendingLocked(kind)
	s.unlockAndPublish()
}

// completeSimulated applies the local effect of a simulated command.
func (s *Session) completeSimulated(kind models.ActionKind) {
	s.mu.Lock()
	s.clearPendingLocked(kind)
	if s.closed {
		s.unlockAndPublish()
		return
	}
	next := s.snapshot
	switch kind {
	case models.ActionFeed:
		next.FoodWeightGrams += 50
	case models.ActionRefill:
		next.WaterBowlWet = true
		next.PumpActive = true
	}
	s.applyLocked(next, SourceCommand)
	if kind == models.ActionFeed {
		s.appendEventLocked(models.EventDraft{Message: msgRationDispensed, Severity: models.SeveritySuccess, Badge: models.BadgeManual})
	}
	s.raiseLocked(models.NotificationDraft{Message: "SIMULATION: " + kind.DisplayName() + " CONFIRMED", Severity: models.NotifySuccess})
	s.unlockAndPublish()
}

func (s *Session) commandSucceeded(kind models.ActionKind) {
	s.mu.Lock()
	if !s.closed {
		s.raiseLocked(models.NotificationDraft{Message: kind.DisplayName() + " INITIATED", Severity: models.NotifySuccess})
		if kind == models.ActionFeed {
			s.appendEventLocked(models.EventDraft{Message: msgRationDispensed, Severity: models.SeveritySuccess, Badge: models.BadgeManual})
		}
	}
	s.unlockAndPublish()
}

func (s *Session) commandFailed(kind models.ActionKind, err error) {
	s.mu.Lock()
	if !s.closed {
		s.raiseLocked(models.NotificationDraft{Message: "ERROR: " + kind.DisplayName() + " FAILED", Severity: models.NotifyError})
		s.appendEventLocked(models.EventDraft{Message: "Command failed: " + err.Error(), Severity: models.SeverityDanger})
	}
	s.unlockAndPublish()
}

// State returns a copy of the observable fields.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{
		Snapshot:   s.snapshot,
		Connected:  s.connected,
		Simulating: s.simulating,
		Pending:    make(models.PendingActions, len(s.pending)),
	}
	for k, v := range s.pending {
		st.Pending[k] = v
	}
	if s.notification != nil {
		n := *s.notification
		st.Notification = &n
	}
	return st
}

// Events returns the session log, newest first.
func (s *Session) Events() []models.EventLogEntry {
	return s.events.List()
}

// ManualTag returns the pending manual-origin tag, if any.
func (s *Session) ManualTag() (models.ActionKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manualTag == nil {
		return "", false
	}
	return *s.manualTag, true
}

// Location is the zone display labels are rendered in.
func (s *Session) Location() *time.Location { return s.loc }

// Close stops the simulator for good and turns later mutations into no-ops.
// Outstanding timers still fire but change nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.simulating {
		s.simulating = false
		close(s.simStopped)
	}
	if s.simResumed != nil {
		close(s.simResumed)
		s.simResumed = nil
	}
}
