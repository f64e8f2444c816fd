package handlers

import (
	"net/http"
	"time"

	"festival-ledger/internal/ledger"
	"festival-ledger/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type TicketHandler struct {
	base
}

func NewTicketHandler(l *ledger.Ledger, tracker Tracker) *TicketHandler {
	return &TicketHandler{base: newBase(l, tracker)}
}

func (h *TicketHandler) tickets(ids []uint64) []models.Ticket {
	out := make([]models.Ticket, 0, len(ids))
	for _, id := range ids {
		if t, err := h.ledger.GetTicket(id); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// ListByOwner - Tickets held by ?owner=, defaulting to the caller
func (h *TicketHandler) ListByOwner(e *core.RequestEvent) error {
	owner := e.Request.URL.Query().Get("owner")
	if owner == "" {
		account, err := caller(e)
		if err != nil {
			return err
		}
		owner = account
	}

	return e.JSON(http.StatusOK, map[string]any{
		"owner":   owner,
		"tickets": h.tickets(h.ledger.TicketsOf(owner)),
	})
}

// Get - Ticket details
func (h *TicketHandler) Get(e *core.RequestEvent) error {
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	t, err := h.ledger.GetTicket(id)
	if err != nil {
		return ledgerError(err)
	}
	return e.JSON(http.StatusOK, t)
}

// Market - Listed tickets in listing order
func (h *TicketHandler) Market(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{
		"tickets": h.tickets(h.ledger.TicketsForSale()),
	})
}

// List - Offer an owned ticket for resale
func (h *TicketHandler) List(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	started := time.Now()
	err = h.ledger.ListForSale(e.Request.Context(), id, account, req.Price)
	h.tracker.TrackOperation("list_ticket", started, err)
	if err != nil {
		return ledgerError(err)
	}

	commission, proceeds := h.ledger.CommissionFor(req.Price)
	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id":       id,
		"selling_price":   req.Price,
		"commission":      commission,
		"seller_proceeds": proceeds,
	})
}

// Unlist - Withdraw a ticket from the market
func (h *TicketHandler) Unlist(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	started := time.Now()
	err = h.ledger.Unlist(e.Request.Context(), id, account)
	h.tracker.TrackOperation("unlist_ticket", started, err)
	if err != nil {
		return ledgerError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"ticket_id": id, "for_sale": false})
}

// Buy - Purchase a listed ticket from its holder
func (h *TicketHandler) Buy(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	started := time.Now()
	err = h.ledger.SecondaryPurchase(e.Request.Context(), id, account, req.Amount)
	h.tracker.TrackOperation("secondary_purchase", started, err)
	if err != nil {
		return ledgerError(err)
	}

	t, _ := h.ledger.GetTicket(id)
	return e.JSON(http.StatusOK, t)
}
