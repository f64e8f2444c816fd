package ledger

import (
	"context"
	"fmt"
	"strings"

	"festival-ledger/internal/status"
	"festival-ledger/models"
)

type festivalRegistry struct {
	byID   map[uint64]*models.Festival
	order  []uint64
	nextID uint64
}

func newFestivalRegistry() festivalRegistry {
	return festivalRegistry{byID: make(map[uint64]*models.Festival), nextID: 1}
}

func (r *festivalRegistry) get(id uint64) (*models.Festival, error) {
	f, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("festival %d: %w", id, status.ErrNotFound)
	}
	return f, nil
}

// CreateFestival registers a new active festival organized by caller.
func (l *Ledger) CreateFestival(ctx context.Context, caller string, in models.FestivalInput) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.has(models.RoleIssuer, caller) {
		return 0, fmt.Errorf("create festival: %w", status.ErrUnauthorized)
	}
	if in.TotalTickets == 0 {
		return 0, fmt.Errorf("create festival: %w", status.ErrInvalidSupply)
	}
	if !validAmount(in.TicketPrice) {
		return 0, fmt.Errorf("create festival: ticket price %s: %w", in.TicketPrice, status.ErrInvalidPrice)
	}

	id := l.festivals.nextID
	l.festivals.nextID++
	l.festivals.byID[id] = &models.Festival{
		ID:               id,
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		Date:             in.Date,
		Venue:            in.Venue,
		TicketPrice:      in.TicketPrice,
		TotalTickets:     in.TotalTickets,
		AvailableTickets: in.TotalTickets,
		Organizer:        caller,
		IsActive:         true,
	}
	l.festivals.order = append(l.festivals.order, id)

	l.logger.Info("festival created", "festival_id", id, "organizer", caller, "supply", in.TotalTickets, "price", in.TicketPrice.String())
	l.emit(models.LedgerEvent{
		Kind:       models.EventFestivalCreated,
		FestivalID: id,
		Actor:      caller,
		Amount:     in.TicketPrice,
	})
	return id, nil
}

func (l *Ledger) GetFestival(id uint64) (models.Festival, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, err := l.festivals.get(id)
	if err != nil {
		return models.Festival{}, err
	}
	return *f, nil
}

// ListActiveFestivals returns active festival ids in creation order.
func (l *Ledger) ListActiveFestivals() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]uint64, 0, len(l.festivals.order))
	for _, id := range l.festivals.order {
		if l.festivals.byID[id].IsActive {
			out = append(out, id)
		}
	}
	return out
}

// Deactivate stops primary sales for a festival. Issued tickets are untouched
// and remain resellable.
func (l *Ledger) Deactivate(ctx context.Context, caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.has(models.RoleAdmin, caller) {
		return fmt.Errorf("deactivate festival %d: %w", id, status.ErrUnauthorized)
	}
	f, err := l.festivals.get(id)
	if err != nil {
		return err
	}
	if !f.IsActive {
		return nil
	}

	f.IsActive = false
	l.logger.Info("festival deactivated", "festival_id", id, "by", caller)
	l.emit(models.LedgerEvent{
		Kind:       models.EventFestivalDeactivated,
		FestivalID: id,
		Actor:      caller,
	})
	return nil
}
