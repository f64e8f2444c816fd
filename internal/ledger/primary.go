package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"festival-ledger/internal/payment"
	"festival-ledger/internal/status"
	"festival-ledger/models"
	"festival-ledger/utils"

	"github.com/shopspring/decimal"
)

const (
	settlementRefBytes = 6
	settleTimeout      = 10 * time.Second
)

// Purchase sells the next ticket of a festival to buyer for exactly its
// ticket price, paid to the organizer.
func (l *Ledger) Purchase(ctx context.Context, festivalID uint64, buyer string, tendered decimal.Decimal) (uint64, error) {
	if buyer == "" {
		return 0, fmt.Errorf("purchase: %w", status.ErrInvalidAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.festivals.get(festivalID)
	if err != nil {
		return 0, err
	}
	if !f.IsActive {
		return 0, fmt.Errorf("purchase festival %d: %w", festivalID, status.ErrFestivalInactive)
	}
	if f.SoldOut() {
		return 0, fmt.Errorf("purchase festival %d: %w", festivalID, status.ErrSoldOut)
	}
	if !tendered.Equal(f.TicketPrice) {
		return 0, fmt.Errorf("purchase festival %d: tendered %s, price %s: %w",
			festivalID, tendered, f.TicketPrice, status.ErrIncorrectPayment)
	}

	if !f.TicketPrice.IsZero() {
		err := l.settle(ctx, payment.Settlement{
			From: buyer,
			Legs: []payment.Leg{{To: f.Organizer, Amount: f.TicketPrice}},
		})
		if err != nil {
			l.logger.Warn("primary sale payment failed", "festival_id", festivalID, "buyer", buyer, "error", err)
			return 0, fmt.Errorf("purchase festival %d: %w", festivalID, err)
		}
	}

	tk := l.issue(f, buyer)
	l.logger.Info("ticket sold", "festival_id", festivalID, "ticket_id", tk.ID, "buyer", buyer, "price", f.TicketPrice.String())
	l.emit(models.LedgerEvent{
		Kind:       models.EventTicketMinted,
		FestivalID: festivalID,
		TicketID:   tk.ID,
		Actor:      buyer,
		From:       f.Organizer,
		To:         buyer,
		Amount:     f.TicketPrice,
	})
	return tk.ID, nil
}

// BulkMint allocates count tickets of a festival to an account without
// payment. All tickets are minted or none.
func (l *Ledger) BulkMint(ctx context.Context, caller string, festivalID uint64, count uint64, to string) ([]uint64, error) {
	if to == "" {
		return nil, fmt.Errorf("bulk mint: %w", status.ErrInvalidAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.has(models.RoleIssuer, caller) {
		return nil, fmt.Errorf("bulk mint: %w", status.ErrUnauthorized)
	}
	if count == 0 {
		return nil, fmt.Errorf("bulk mint: %w", status.ErrInvalidSupply)
	}
	f, err := l.festivals.get(festivalID)
	if err != nil {
		return nil, err
	}
	if !f.IsActive {
		return nil, fmt.Errorf("bulk mint festival %d: %w", festivalID, status.ErrFestivalInactive)
	}
	if count > f.AvailableTickets {
		return nil, fmt.Errorf("bulk mint %d of festival %d, %d left: %w",
			count, festivalID, f.AvailableTickets, status.ErrSoldOut)
	}

	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		tk := l.issue(f, to)
		ids = append(ids, tk.ID)
		l.emit(models.LedgerEvent{
			Kind:       models.EventTicketMinted,
			FestivalID: festivalID,
			TicketID:   tk.ID,
			Actor:      caller,
			From:       f.Organizer,
			To:         to,
			Amount:     tk.PurchasePrice,
		})
	}

	l.logger.Info("tickets allocated", "festival_id", festivalID, "count", count, "to", to, "by", caller)
	return ids, nil
}

// issue takes one ticket from the festival supply.
func (l *Ledger) issue(f *models.Festival, owner string) *models.Ticket {
	f.AvailableTickets--
	metadata := fmt.Sprintf("%s #%d", f.Name, f.Issued())
	return l.tickets.mint(f.ID, owner, f.TicketPrice, metadata)
}

// settle tags s with a fresh reference and moves the funds. Any asset error
// is reported as ErrFailedPayment.
func (l *Ledger) settle(ctx context.Context, s payment.Settlement) error {
	if s.Reference == "" {
		ref, err := utils.GenerateCode(settlementRefBytes)
		if err != nil {
			return fmt.Errorf("%w: settlement reference: %w", status.ErrFailedPayment, err)
		}
		s.Reference = ref
	}

	// A settlement that has started runs to completion even if the caller goes away.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	err := l.asset.Settle(settleCtx, s)
	if err == nil {
		l.logger.Debug("settled", "ref", s.Reference, "from", s.From, "total", s.Total().String())
		return nil
	}
	if errors.Is(err, status.ErrFailedPayment) {
		return fmt.Errorf("settlement %s: %w", s.Reference, err)
	}
	return fmt.Errorf("%w: settlement %s: %w", status.ErrFailedPayment, s.Reference, err)
}
