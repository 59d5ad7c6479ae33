// Package channel adapts the hosted realtime store that carries the device
// document. The session only consumes the Channel contract; drivers differ in
// transport (MQTT broker, Firebase Realtime Database streaming, in-memory).
package channel

import (
	"context"
	"errors"
	"sync"

	"birdsbuddy/internal/models"
)

// ErrClosed is returned by SetCommand after Close.
var ErrClosed = errors.New("channel closed")

// Channel is the remote state channel contract.
type Channel interface {
	// OnConnectivity registers fn for link status changes. The current status
	// is delivered immediately. The returned func unregisters fn.
	OnConnectivity(fn func(connected bool)) (cancel func())

	// OnSnapshot registers fn for device documents. A nil patch means the
	// document has no data yet. The latest known document, if any, is
	// delivered immediately.
	OnSnapshot(fn func(patch *models.SnapshotPatch)) (cancel func())

	// SetCommand sets commands/<name> to true. It makes exactly one attempt
	// and returns the transport error unchanged.
	SetCommand(ctx context.Context, name string) error

	Close() error
}

// listeners is a small registry of callbacks keyed by registration id.
type listeners[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// emit calls every registered fn with v outside the registry lock.
func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// state holds the last delivered values so late subscribers get them, and
// fans out updates. Every driver embeds one.
type state struct {
	mu        sync.Mutex
	connected bool
	doc       *models.SnapshotPatch
	hasDoc    bool

	conn listeners[bool]
	snap listeners[*models.SnapshotPatch]
}

func (s *state) OnConnectivity(fn func(bool)) func() {
	cancel := s.conn.add(fn)
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	fn(connected)
	return cancel
}

func (s *state) OnSnapshot(fn func(*models.SnapshotPatch)) func() {
	cancel := s.snap.add(fn)
	s.mu.Lock()
	doc, has := s.doc, s.hasDoc
	s.mu.Unlock()
	if has {
		fn(doc)
	}
	return cancel
}

func (s *state) setConnected(v bool) {
	s.mu.Lock()
	changed := s.connected != v
	s.connected = v
	s.mu.Unlock()
	if changed {
		s.conn.emit(v)
	}
}

func (s *state) setDocument(p *models.SnapshotPatch) {
	s.mu.Lock()
	s.doc, s.hasDoc = p, true
	s.mu.Unlock()
	s.snap.emit(p)
}

func (s *state) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
