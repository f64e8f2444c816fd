// Package ledger is the festival ticket ledger: role-gated festival creation,
// primary ticket sales, and commissioned resale between holders.
//
// A Ledger is a single-writer state machine. Every mutating method holds the
// write lock for its whole duration, validates, settles payment through the
// injected payment.Asset, and only then commits; a failed settlement leaves
// no trace. Read methods take the read lock and return copies.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"festival-ledger/internal/payment"
	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is the platform's cut of a resale.
var DefaultCommissionRate = decimal.NewFromFloat(0.10)

type Config struct {
	// Admin is bootstrapped as the first administrator.
	Admin string
	// Treasury receives commission payments.
	Treasury string
	// CommissionRate must satisfy 0 <= rate < 1. Zero value means DefaultCommissionRate;
	// use ZeroCommission to disable commission explicitly.
	CommissionRate decimal.Decimal
	ZeroCommission bool
	// RequireFacePrice rejects listings whose price differs from the ticket's purchase price.
	RequireFacePrice bool

	Logger *slog.Logger
	Clock  func() time.Time
}

// EventSink receives every committed event in commit order. Record is called
// with the ledger lock held and must not block.
type EventSink interface {
	Record(ev models.LedgerEvent)
}

type Ledger struct {
	mu sync.RWMutex

	access     accessControl
	festivals  festivalRegistry
	tickets    ticketLedger
	commission commissionLedger
	events     eventLog

	asset            payment.Asset
	treasury         string
	requireFacePrice bool

	logger *slog.Logger
	now    func() time.Time
}

// New creates a ledger owning empty registries and grants cfg.Admin the
// administrator role.
func New(cfg Config, asset payment.Asset, sinks ...EventSink) (*Ledger, error) {
	if cfg.Admin == "" {
		return nil, fmt.Errorf("new ledger: %w: admin", status.ErrInvalidAccount)
	}
	if cfg.Treasury == "" {
		return nil, fmt.Errorf("new ledger: %w: treasury", status.ErrInvalidAccount)
	}
	if asset == nil {
		return nil, fmt.Errorf("new ledger: payment asset is required")
	}

	rate := cfg.CommissionRate
	if rate.IsZero() && !cfg.ZeroCommission {
		rate = DefaultCommissionRate
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("new ledger: commission rate %s outside [0, 1)", rate)
	}

	l := &Ledger{
		access:           newAccessControl(),
		festivals:        newFestivalRegistry(),
		tickets:          newTicketLedger(),
		commission:       commissionLedger{rate: rate, total: decimal.Zero},
		events:           eventLog{sinks: sinks},
		asset:            asset,
		treasury:         cfg.Treasury,
		requireFacePrice: cfg.RequireFacePrice,
		logger:           cfg.Logger,
		now:              cfg.Clock,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.access.add(models.RoleAdmin, cfg.Admin)
	l.emit(models.LedgerEvent{
		Kind: models.EventRoleGranted,
		To:   cfg.Admin,
		Role: models.RoleAdmin.String(),
	})

	return l, nil
}

// PaymentAsset returns the asset the markets settle through.
func (l *Ledger) PaymentAsset() payment.Asset {
	return l.asset
}

func (l *Ledger) Treasury() string {
	return l.treasury
}

// validAmount reports whether d is a non-negative whole number of base units.
func validAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.IsInteger()
}
