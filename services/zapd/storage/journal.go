package storage

import (
	"context"
	"log/slog"
	"time"

	"poolzap/core/events"
	"poolzap/core/types"
)

// eventCarrier is satisfied by events that expose their canonical payload.
type eventCarrier interface {
	Event() *types.Event
}

// Journal persists every emitted event carrying a canonical payload. It
// satisfies the events.Emitter interface so it can be wired straight into
// the engine, typically fanned out through events.Tee.
type Journal struct {
	store  *Storage
	logger *slog.Logger
	nowFn  func() int64
}

// NewJournal constructs a journal emitter on top of the storage layer.
func NewJournal(store *Storage, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		store:  store,
		logger: logger,
		nowFn:  func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the journal clock, primarily for tests.
func (j *Journal) SetNowFunc(now func() int64) {
	if now == nil {
		j.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	j.nowFn = now
}

// Emit implements the events.Emitter interface. Journal failures are logged
// rather than propagated: the journal is an observer, not a participant, of
// the flow that emitted the event.
func (j *Journal) Emit(evt events.Event) {
	if j == nil || j.store == nil || evt == nil {
		return
	}
	carrier, ok := evt.(eventCarrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	if err := j.store.AppendEvent(context.Background(), payload, j.nowFn()); err != nil {
		j.logger.Error("journal event", "type", payload.Type, "error", err)
	}
}
