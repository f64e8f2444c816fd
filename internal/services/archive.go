package services

import (
	"context"
	"fmt"

	"festival-ledger/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

const LedgerEventsCollection = "ledger_events"

// RecordStore is the slice of core.App the archive needs.
type RecordStore interface {
	FindCollectionByNameOrId(nameOrId string) (*core.Collection, error)
	FindRecordsByFilter(collectionModelOrIdentifier any, filter string, sort string, limit int, offset int, params ...dbx.Params) ([]*core.Record, error)
	SaveWithContext(ctx context.Context, model core.Model) error
}

// Archiver persists every ledger event as a record of the ledger_events
// collection so history survives restarts and is browsable from the admin UI.
// Sequence numbers restart with the process, so records are keyed by run and seq.
type Archiver struct {
	*eventQueue
	store RecordStore
	run   string
}

func NewArchiver(store RecordStore, run string, buffer int) *Archiver {
	a := &Archiver{store: store, run: run}
	a.eventQueue = newEventQueue("archiver", buffer, a.Save)
	return a
}

func (a *Archiver) Save(ctx context.Context, ev models.LedgerEvent) error {
	collection, err := a.store.FindCollectionByNameOrId(LedgerEventsCollection)
	if err != nil {
		return fmt.Errorf("find %s collection: %w", LedgerEventsCollection, err)
	}

	record := core.NewRecord(collection)
	record.Set("run", a.run)
	record.Set("seq", ev.Seq)
	record.Set("kind", string(ev.Kind))
	record.Set("festival_id", ev.FestivalID)
	record.Set("ticket_id", ev.TicketID)
	record.Set("actor", ev.Actor)
	record.Set("from_account", ev.From)
	record.Set("to_account", ev.To)
	record.Set("role", ev.Role)
	record.Set("amount", ev.Amount.String())
	record.Set("occurred_at", ev.OccurredAt)

	if err := a.store.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("archive event #%d: %w", ev.Seq, err)
	}
	return nil
}

// RunID identifies the process whose events this archiver writes.
func (a *Archiver) RunID() string {
	return a.run
}

// Since returns events archived by run with seq greater than after, oldest
// first. An empty run means the current one.
func (a *Archiver) Since(run string, after uint64, limit int) ([]models.LedgerEvent, error) {
	if run == "" {
		run = a.run
	}
	records, err := a.store.FindRecordsByFilter(
		LedgerEventsCollection,
		"run = {:run} && seq > {:after}",
		"seq",
		limit,
		0,
		dbx.Params{"run": run, "after": after},
	)
	if err != nil {
		return nil, fmt.Errorf("load archived events: %w", err)
	}

	out := make([]models.LedgerEvent, 0, len(records))
	for _, r := range records {
		amount, err := decimal.NewFromString(r.GetString("amount"))
		if err != nil {
			amount = decimal.Zero
		}
		out = append(out, models.LedgerEvent{
			Seq:        uint64(r.GetInt("seq")),
			Kind:       models.EventKind(r.GetString("kind")),
			FestivalID: uint64(r.GetInt("festival_id")),
			TicketID:   uint64(r.GetInt("ticket_id")),
			Actor:      r.GetString("actor"),
			From:       r.GetString("from_account"),
			To:         r.GetString("to_account"),
			Role:       r.GetString("role"),
			Amount:     amount,
			OccurredAt: r.GetDateTime("occurred_at").Time(),
		})
	}
	return out, nil
}
