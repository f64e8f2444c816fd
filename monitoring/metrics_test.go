package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeQueue struct {
	pending int
	dropped uint64
}

func (q fakeQueue) Pending() int    { return q.pending }
func (q fakeQueue) Dropped() uint64 { return q.dropped }

func TestMonitor_RecordListedTickets(t *testing.T) {
	m := NewMonitor()
	before := testutil.ToFloat64(listedTickets)

	m.Record(models.LedgerEvent{Kind: models.EventTicketListed, TicketID: 101})
	m.Record(models.LedgerEvent{Kind: models.EventTicketListed, TicketID: 101}) // relist
	m.Record(models.LedgerEvent{Kind: models.EventTicketListed, TicketID: 102})
	assert.Equal(t, before+2, testutil.ToFloat64(listedTickets))

	m.Record(models.LedgerEvent{Kind: models.EventTicketTransferred, TicketID: 101})
	m.Record(models.LedgerEvent{Kind: models.EventTicketUnlisted, TicketID: 103})
	assert.Equal(t, before+1, testutil.ToFloat64(listedTickets))
}

func TestMonitor_RecordIssuedAndCommission(t *testing.T) {
	m := NewMonitor()
	issued := ticketsIssued.WithLabelValues("77")
	beforeIssued := testutil.ToFloat64(issued)
	beforeCommission := testutil.ToFloat64(commissionCollected)
	beforeEvents := testutil.ToFloat64(ledgerEvents.WithLabelValues(string(models.EventTicketMinted)))

	m.Record(models.LedgerEvent{Kind: models.EventTicketMinted, FestivalID: 77, TicketID: 1})
	m.Record(models.LedgerEvent{Kind: models.EventTicketMinted, FestivalID: 77, TicketID: 2})
	m.Record(models.LedgerEvent{Kind: models.EventCommissionCredited, Amount: decimal.NewFromInt(15)})

	assert.Equal(t, beforeIssued+2, testutil.ToFloat64(issued))
	assert.Equal(t, beforeCommission+15, testutil.ToFloat64(commissionCollected))
	assert.Equal(t, beforeEvents+2, testutil.ToFloat64(ledgerEvents.WithLabelValues(string(models.EventTicketMinted))))
}

func TestMonitor_TrackOperation(t *testing.T) {
	m := NewMonitor()
	soldOut := ledgerOperations.WithLabelValues("purchase_test", "sold_out")
	ok := ledgerOperations.WithLabelValues("purchase_test", "ok")
	beforeSoldOut, beforeOK := testutil.ToFloat64(soldOut), testutil.ToFloat64(ok)

	m.TrackOperation("purchase_test", time.Now(), nil)
	m.TrackOperation("purchase_test", time.Now(), fmt.Errorf("purchase festival 1: %w", status.ErrSoldOut))
	m.TrackOperation("purchase_test", time.Now(), errors.New("boom"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeSoldOut+1, testutil.ToFloat64(soldOut))
	assert.Equal(t, float64(1), testutil.ToFloat64(ledgerOperations.WithLabelValues("purchase_test", "internal")))
}

func TestMonitor_CollectSinkMetrics(t *testing.T) {
	m := NewMonitor()
	m.Watch("projector_test", fakeQueue{pending: 3, dropped: 9})

	m.collectSinkMetrics()

	assert.Equal(t, float64(3), testutil.ToFloat64(sinkPending.WithLabelValues("projector_test")))
	assert.Equal(t, float64(9), testutil.ToFloat64(sinkDropped.WithLabelValues("projector_test")))
}
