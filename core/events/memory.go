package events

import "sync"

const defaultMemoryCapacity = 1024

// MemoryEmitter retains emitted events in a bounded ring so that services
// and tests can inspect the event stream after the fact. When the capacity
// is exceeded the oldest events are discarded first.
type MemoryEmitter struct {
	mu       sync.Mutex
	capacity int
	buf      []Event
}

// NewMemoryEmitter constructs a memory emitter with the supplied capacity.
// A non-positive capacity falls back to the default.
func NewMemoryEmitter(capacity int) *MemoryEmitter {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryEmitter{capacity: capacity}
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = append(m.buf, evt)
	if overflow := len(m.buf) - m.capacity; overflow > 0 {
		m.buf = append([]Event(nil), m.buf[overflow:]...)
	}
}

// Events returns a copy of the retained events in emission order.
func (m *MemoryEmitter) Events() []Event {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.buf))
	copy(out, m.buf)
	return out
}

// Reset discards all retained events.
func (m *MemoryEmitter) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = nil
}

// Tee fans a single event stream out to multiple emitters. Nil members are
// skipped.
type Tee []Emitter

// Emit implements the Emitter interface.
func (t Tee) Emit(evt Event) {
	for _, emitter := range t {
		if emitter == nil {
			continue
		}
		emitter.Emit(evt)
	}
}
