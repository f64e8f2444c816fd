package ledger

import (
	"context"
	"fmt"
	"slices"

	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/shopspring/decimal"
)

type ticketLedger struct {
	byID    map[uint64]*models.Ticket
	byOwner map[string]map[uint64]struct{}
	forSale []uint64 // listing order
	nextID  uint64
}

func newTicketLedger() ticketLedger {
	return ticketLedger{
		byID:    make(map[uint64]*models.Ticket),
		byOwner: make(map[string]map[uint64]struct{}),
		nextID:  1,
	}
}

func (t *ticketLedger) get(id uint64) (*models.Ticket, error) {
	tk, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, status.ErrNotFound)
	}
	return tk, nil
}

// mint is only reachable from the primary market.
func (t *ticketLedger) mint(festivalID uint64, owner string, purchasePrice decimal.Decimal, metadata string) *models.Ticket {
	id := t.nextID
	t.nextID++

	tk := &models.Ticket{
		ID:            id,
		FestivalID:    festivalID,
		Owner:         owner,
		PurchasePrice: purchasePrice,
		SellingPrice:  decimal.Zero,
		Metadata:      metadata,
	}
	t.byID[id] = tk
	t.own(owner, id)
	return tk
}

// transfer reassigns ownership and always delists.
func (t *ticketLedger) transfer(id uint64, from, to string) error {
	tk, err := t.get(id)
	if err != nil {
		return err
	}
	if tk.Owner != from {
		return fmt.Errorf("transfer ticket %d: %w", id, status.ErrNotOwner)
	}

	t.delist(tk)
	delete(t.byOwner[from], id)
	if len(t.byOwner[from]) == 0 {
		delete(t.byOwner, from)
	}
	tk.Owner = to
	t.own(to, id)
	return nil
}

func (t *ticketLedger) own(owner string, id uint64) {
	if t.byOwner[owner] == nil {
		t.byOwner[owner] = make(map[uint64]struct{})
	}
	t.byOwner[owner][id] = struct{}{}
}

// list keeps an already listed ticket at its position in the market.
func (t *ticketLedger) list(tk *models.Ticket, price decimal.Decimal) {
	if !tk.ForSale {
		t.forSale = append(t.forSale, tk.ID)
	}
	tk.ForSale = true
	tk.SellingPrice = price
}

func (t *ticketLedger) delist(tk *models.Ticket) bool {
	if !tk.ForSale {
		return false
	}
	tk.ForSale = false
	tk.SellingPrice = decimal.Zero
	if i := slices.Index(t.forSale, tk.ID); i >= 0 {
		t.forSale = slices.Delete(t.forSale, i, i+1)
	}
	return true
}

// ListForSale offers a ticket on the secondary market at price.
func (l *Ledger) ListForSale(ctx context.Context, ticketID uint64, caller string, price decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tk, err := l.tickets.get(ticketID)
	if err != nil {
		return err
	}
	if tk.Owner != caller {
		return fmt.Errorf("list ticket %d: %w", ticketID, status.ErrNotOwner)
	}
	if !price.IsPositive() || !price.IsInteger() {
		return fmt.Errorf("list ticket %d at %s: %w", ticketID, price, status.ErrInvalidPrice)
	}
	if l.requireFacePrice && !price.Equal(tk.PurchasePrice) {
		return fmt.Errorf("list ticket %d at %s, face value %s: %w", ticketID, price, tk.PurchasePrice, status.ErrInvalidPrice)
	}

	l.tickets.list(tk, price)
	l.emit(models.LedgerEvent{
		Kind:       models.EventTicketListed,
		FestivalID: tk.FestivalID,
		TicketID:   ticketID,
		Actor:      caller,
		Amount:     price,
	})
	return nil
}

// Unlist withdraws a ticket from the secondary market. Unlisting a ticket
// that is not for sale succeeds without change.
func (l *Ledger) Unlist(ctx context.Context, ticketID uint64, caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tk, err := l.tickets.get(ticketID)
	if err != nil {
		return err
	}
	if tk.Owner != caller {
		return fmt.Errorf("unlist ticket %d: %w", ticketID, status.ErrNotOwner)
	}
	if !l.tickets.delist(tk) {
		return nil
	}

	l.emit(models.LedgerEvent{
		Kind:       models.EventTicketUnlisted,
		FestivalID: tk.FestivalID,
		TicketID:   ticketID,
		Actor:      caller,
	})
	return nil
}

func (l *Ledger) GetTicket(id uint64) (models.Ticket, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tk, err := l.tickets.get(id)
	if err != nil {
		return models.Ticket{}, err
	}
	return *tk, nil
}

// TicketsOf returns the ids owned by account in ascending order.
func (l *Ledger) TicketsOf(account string) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]uint64, 0, len(l.tickets.byOwner[account]))
	for id := range l.tickets.byOwner[account] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// TicketsForSale returns listed ticket ids in the order they were listed.
func (l *Ledger) TicketsForSale() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append(make([]uint64, 0, len(l.tickets.forSale)), l.tickets.forSale...)
}
