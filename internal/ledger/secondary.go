package ledger

import (
	"context"
	"fmt"

	"festival-ledger/internal/payment"
	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/shopspring/decimal"
)

// SecondaryPurchase buys a listed ticket at its selling price. The seller
// receives the price less commission, the treasury receives the commission.
func (l *Ledger) SecondaryPurchase(ctx context.Context, ticketID uint64, buyer string, tendered decimal.Decimal) error {
	if buyer == "" {
		return fmt.Errorf("secondary purchase: %w", status.ErrInvalidAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tk, err := l.tickets.get(ticketID)
	if err != nil {
		return err
	}
	if !tk.ForSale {
		return fmt.Errorf("secondary purchase ticket %d: %w", ticketID, status.ErrNotListed)
	}
	if tk.Owner == buyer {
		return fmt.Errorf("secondary purchase ticket %d: %w", ticketID, status.ErrSelfPurchase)
	}
	price := tk.SellingPrice
	if !tendered.Equal(price) {
		return fmt.Errorf("secondary purchase ticket %d: tendered %s, price %s: %w",
			ticketID, tendered, price, status.ErrIncorrectPayment)
	}

	seller := tk.Owner
	commission, proceeds := l.commission.split(price)

	err = l.settle(ctx, payment.Settlement{
		From: buyer,
		Legs: []payment.Leg{
			{To: seller, Amount: proceeds},
			{To: l.treasury, Amount: commission},
		},
	})
	if err != nil {
		l.logger.Warn("resale payment failed", "ticket_id", ticketID, "buyer", buyer, "error", err)
		return fmt.Errorf("secondary purchase ticket %d: %w", ticketID, err)
	}

	if err := l.tickets.transfer(ticketID, seller, buyer); err != nil {
		// Checked above under the same lock; unreachable unless the ledger is corrupt.
		panic(fmt.Sprintf("ledger: transfer after settlement: %v", err))
	}
	l.commission.credit(commission)

	l.logger.Info("ticket resold", "ticket_id", ticketID, "seller", seller, "buyer", buyer,
		"price", price.String(), "commission", commission.String())
	l.emit(models.LedgerEvent{
		Kind:       models.EventTicketTransferred,
		FestivalID: tk.FestivalID,
		TicketID:   ticketID,
		Actor:      buyer,
		From:       seller,
		To:         buyer,
		Amount:     price,
	})
	if commission.IsPositive() {
		l.emit(models.LedgerEvent{
			Kind:       models.EventCommissionCredited,
			FestivalID: tk.FestivalID,
			TicketID:   ticketID,
			Actor:      buyer,
			To:         l.treasury,
			Amount:     commission,
		})
	}
	return nil
}
