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

type FestivalHandler struct {
	base
}

func NewFestivalHandler(l *ledger.Ledger, tracker Tracker) *FestivalHandler {
	return &FestivalHandler{base: newBase(l, tracker)}
}

// ListActive - Active festivals in creation order
func (h *FestivalHandler) ListActive(e *core.RequestEvent) error {
	ids := h.ledger.ListActiveFestivals()

	festivals := make([]models.Festival, 0, len(ids))
	for _, id := range ids {
		f, err := h.ledger.GetFestival(id)
		if err != nil {
			continue
		}
		festivals = append(festivals, f)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"festival_ids": ids,
		"festivals":    festivals,
	})
}

// Get - Festival details
func (h *FestivalHandler) Get(e *core.RequestEvent) error {
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	f, err := h.ledger.GetFestival(id)
	if err != nil {
		return ledgerError(err)
	}
	return e.JSON(http.StatusOK, f)
}

// Create - Register a festival; caller needs the issuer role
func (h *FestivalHandler) Create(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}

	var req models.FestivalInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" {
		return apis.NewBadRequestError("name is required", nil)
	}

	started := time.Now()
	id, err := h.ledger.CreateFestival(e.Request.Context(), account, req)
	h.tracker.TrackOperation("create_festival", started, err)
	if err != nil {
		return ledgerError(err)
	}

	f, _ := h.ledger.GetFestival(id)
	return e.JSON(http.StatusCreated, f)
}

// Deactivate - Stop primary sales; admin only
func (h *FestivalHandler) Deactivate(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	started := time.Now()
	err = h.ledger.Deactivate(e.Request.Context(), account, id)
	h.tracker.TrackOperation("deactivate_festival", started, err)
	if err != nil {
		return ledgerError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"festival_id": id, "is_active": false})
}

// Purchase - Buy the next ticket at face value
func (h *FestivalHandler) Purchase(e *core.RequestEvent) error {
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
	ticketID, err := h.ledger.Purchase(e.Request.Context(), id, account, req.Amount)
	h.tracker.TrackOperation("purchase", started, err)
	if err != nil {
		return ledgerError(err)
	}

	t, _ := h.ledger.GetTicket(ticketID)
	return e.JSON(http.StatusCreated, t)
}

// BulkMint - Allocate tickets without payment; issuer only
func (h *FestivalHandler) BulkMint(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}
	id, err := pathID(e, "id")
	if err != nil {
		return err
	}

	var req struct {
		Count uint64 `json:"count"`
		To    string `json:"to"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.To == "" {
		req.To = account
	}

	started := time.Now()
	ids, err := h.ledger.BulkMint(e.Request.Context(), account, id, req.Count, req.To)
	h.tracker.TrackOperation("bulk_mint", started, err)
	if err != nil {
		return ledgerError(err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"festival_id": id,
		"ticket_ids":  ids,
		"to":          req.To,
	})
}
