package services

import (
	"context"
	"log/slog"
	"sync/atomic"

	"festival-ledger/models"
)

// eventQueue decouples the ledger's commit path from slow delivery targets.
// Record never blocks: when the buffer is full the event is dropped and
// counted. Delivery happens on the goroutine running Run, in commit order.
type eventQueue struct {
	name    string
	events  chan models.LedgerEvent
	dropped atomic.Uint64
	deliver func(ctx context.Context, ev models.LedgerEvent) error
}

func newEventQueue(name string, size int, deliver func(context.Context, models.LedgerEvent) error) *eventQueue {
	if size <= 0 {
		size = 1
	}
	return &eventQueue{
		name:    name,
		events:  make(chan models.LedgerEvent, size),
		deliver: deliver,
	}
}

func (q *eventQueue) Record(ev models.LedgerEvent) {
	select {
	case q.events <- ev:
	default:
		q.dropped.Add(1)
		slog.Warn("event queue full, dropping event", "sink", q.name, "seq", ev.Seq, "kind", ev.Kind)
	}
}

// Dropped is the number of events discarded because the buffer was full.
func (q *eventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Pending is the number of buffered events not yet delivered.
func (q *eventQueue) Pending() int {
	return len(q.events)
}

// Run delivers buffered events until ctx is cancelled, then flushes what is
// already buffered.
func (q *eventQueue) Run(ctx context.Context) {
	slog.Info("event sink started", "sink", q.name)
	for {
		select {
		case <-ctx.Done():
			q.flush()
			slog.Info("event sink stopped", "sink", q.name, "dropped", q.Dropped())
			return
		case ev := <-q.events:
			q.handle(ctx, ev)
		}
	}
}

func (q *eventQueue) flush() {
	ctx := context.Background()
	for {
		select {
		case ev := <-q.events:
			q.handle(ctx, ev)
		default:
			return
		}
	}
}

func (q *eventQueue) handle(ctx context.Context, ev models.LedgerEvent) {
	if err := q.deliver(ctx, ev); err != nil {
		slog.Error("deliver ledger event", "sink", q.name, "seq", ev.Seq, "kind", ev.Kind, "error", err)
	}
}
