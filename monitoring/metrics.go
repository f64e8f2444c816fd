package monitoring

import (
	"context"
	"strconv"
	"sync"
	"time"

	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations including payment settlement",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"},
	)

	ledgerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Committed ledger events by kind",
		},
		[]string{"kind"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "festival_tickets_issued_total",
			Help: "Tickets taken from festival supply",
		},
		[]string{"festival_id"},
	)

	listedTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "market_listed_tickets",
			Help: "Tickets currently listed on the secondary market",
		},
	)

	commissionCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_commission_collected_total",
			Help: "Commission credited by resales, in base units",
		},
	)

	sinkPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_sink_pending",
			Help: "Events buffered for delivery per sink",
		},
		[]string{"sink"},
	)

	sinkDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_sink_dropped",
			Help: "Events dropped because the sink buffer was full",
		},
		[]string{"sink"},
	)
)

// QueueStats is implemented by the asynchronous event sinks.
type QueueStats interface {
	Pending() int
	Dropped() uint64
}

// Monitor turns ledger events into metrics. It is itself an event sink.
type Monitor struct {
	mu     sync.Mutex
	listed map[uint64]struct{}
	sinks  map[string]QueueStats
}

func NewMonitor() *Monitor {
	return &Monitor{
		listed: make(map[uint64]struct{}),
		sinks:  make(map[string]QueueStats),
	}
}

// Watch registers a sink whose queue depth is collected periodically.
func (m *Monitor) Watch(name string, q QueueStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks[name] = q
}

func (m *Monitor) Record(ev models.LedgerEvent) {
	ledgerEvents.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case models.EventTicketMinted:
		ticketsIssued.WithLabelValues(strconv.FormatUint(ev.FestivalID, 10)).Inc()
	case models.EventTicketListed:
		m.setListed(ev.TicketID, true)
	case models.EventTicketUnlisted, models.EventTicketTransferred:
		m.setListed(ev.TicketID, false)
	case models.EventCommissionCredited:
		commissionCollected.Add(ev.Amount.InexactFloat64())
	}
}

func (m *Monitor) setListed(ticketID uint64, listed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, was := m.listed[ticketID]
	switch {
	case listed && !was:
		m.listed[ticketID] = struct{}{}
		listedTickets.Inc()
	case !listed && was:
		delete(m.listed, ticketID)
		listedTickets.Dec()
	}
}

// Run collects sink queue metrics until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectSinkMetrics()
		}
	}
}

func (m *Monitor) collectSinkMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, q := range m.sinks {
		sinkPending.WithLabelValues(name).Set(float64(q.Pending()))
		sinkDropped.WithLabelValues(name).Set(float64(q.Dropped()))
	}
}

// TrackOperation counts one ledger call and its latency.
func (m *Monitor) TrackOperation(operation string, started time.Time, err error) {
	ledgerOperations.WithLabelValues(operation, status.Kind(err)).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
