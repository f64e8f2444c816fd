package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"festival-ledger/internal/ledger"
	"festival-ledger/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// Tracker records the outcome of a ledger call.
type Tracker interface {
	TrackOperation(operation string, started time.Time, err error)
}

type noopTracker struct{}

func (noopTracker) TrackOperation(string, time.Time, error) {}

type base struct {
	ledger  *ledger.Ledger
	tracker Tracker
}

func newBase(l *ledger.Ledger, tracker Tracker) base {
	if tracker == nil {
		tracker = noopTracker{}
	}
	return base{ledger: l, tracker: tracker}
}

// caller returns the authenticated account id.
func caller(e *core.RequestEvent) (string, error) {
	if e.Auth == nil {
		return "", apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return e.Auth.Id, nil
}

func pathID(e *core.RequestEvent, name string) (uint64, error) {
	id, err := strconv.ParseUint(e.Request.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apis.NewBadRequestError("Invalid "+name, nil)
	}
	return id, nil
}

// ledgerError maps a ledger error kind onto an API error. A failed mutation
// always reaches the client.
func ledgerError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError(msg, nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(msg, nil)
	case errors.Is(err, status.ErrFailedPayment),
		errors.Is(err, status.ErrInsufficientFunds),
		errors.Is(err, status.ErrInsufficientAllowance):
		return apis.NewApiError(http.StatusPaymentRequired, msg, nil)
	case errors.Is(err, status.ErrSoldOut),
		errors.Is(err, status.ErrFestivalInactive),
		errors.Is(err, status.ErrNotListed):
		return apis.NewApiError(http.StatusConflict, msg, nil)
	case status.Kind(err) != "internal":
		return apis.NewBadRequestError(msg, nil)
	default:
		slog.Error("unexpected ledger error", "error", err)
		return apis.NewInternalServerError("Something went wrong while processing your request.", nil)
	}
}
