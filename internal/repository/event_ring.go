package repository

import (
	"sync"

	"birdsbuddy/internal/models"
)

// EventLogCapacity is the number of entries kept in the session log.
const EventLogCapacity = 50

// EventRing is a fixed-capacity log. Inserting past capacity evicts the
// oldest entry.
type EventRing struct {
	mu    sync.RWMutex
	buf   []models.EventLogEntry
	head  int // index of the next write
	count int
}

func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = EventLogCapacity
	}
	return &EventRing{buf: make([]models.EventLogEntry, capacity)}
}

func (r *EventRing) Insert(e models.EventLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// List returns a copy of the log, newest first.
func (r *EventRing) List() []models.EventLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.EventLogEntry, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.head - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

func (r *EventRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
