package ledger

import (
	"festival-ledger/models"
)

type eventLog struct {
	events []models.LedgerEvent
	sinks  []EventSink
}

// emit must be called with the write lock held, after the state change it
// describes has been applied.
func (l *Ledger) emit(ev models.LedgerEvent) {
	ev.Seq = uint64(len(l.events.events)) + 1
	ev.OccurredAt = l.now().UTC()
	l.events.events = append(l.events.events, ev)
	for _, s := range l.events.sinks {
		s.Record(ev)
	}
}

// Events returns up to limit events with Seq greater than after, oldest
// first. A non-positive limit returns everything after the cursor.
func (l *Ledger) Events(after uint64, limit int) []models.LedgerEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.events.events
	if after >= uint64(len(all)) {
		return []models.LedgerEvent{}
	}
	page := all[after:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return append(make([]models.LedgerEvent, 0, len(page)), page...)
}

// LastSeq is the sequence number of the most recent event.
func (l *Ledger) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.events.events))
}
