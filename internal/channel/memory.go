package channel

import (
	"context"
	"sync"

	"birdsbuddy/internal/models"
)

// Memory is an in-process channel. Tests and demos drive it with
// EmitConnectivity and EmitSnapshot and inspect Writes afterwards.
type Memory struct {
	state

	mu       sync.Mutex
	writes   []string
	writeErr error
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) EmitConnectivity(connected bool) {
	m.setConnected(connected)
}

// EmitSnapshot delivers p as the whole current document. Pass nil for an
// empty document.
func (m *Memory) EmitSnapshot(p *models.SnapshotPatch) {
	m.setDocument(p)
}

// FailWrites makes every later SetCommand return err. Nil restores success.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Writes returns the command names written so far, oldest first.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *Memory) SetCommand(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.writes = append(m.writes, name)
	return m.writeErr
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
