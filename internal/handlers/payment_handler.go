package handlers

import (
	"log/slog"
	"net/http"

	"festival-ledger/internal/payment"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	asset payment.Asset
}

func NewPaymentHandler(asset payment.Asset) *PaymentHandler {
	return &PaymentHandler{asset: asset}
}

// Balance - Payment asset balance of an account
func (h *PaymentHandler) Balance(e *core.RequestEvent) error {
	account := e.Request.PathValue("account")
	if account == "" {
		return apis.NewBadRequestError("account is required", nil)
	}

	balance, err := h.asset.BalanceOf(e.Request.Context(), account)
	if err != nil {
		slog.Error("h.asset.BalanceOf()", "account", account, "error", err)
		return apis.NewBadRequestError("Failed to read balance", nil)
	}

	resp := map[string]any{
		"asset":   h.asset.Name(),
		"account": account,
		"balance": balance,
	}
	if approver, ok := payment.Unwrap(h.asset).(payment.Approver); ok {
		resp["allowance"] = approver.Allowance(account, approver.Operator())
	}
	return e.JSON(http.StatusOK, resp)
}

// Deposit - Credit the caller's balance (for testing)
func (h *PaymentHandler) Deposit(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}

	funder, ok := payment.Unwrap(h.asset).(payment.Funder)
	if !ok {
		return apis.NewBadRequestError("Payment asset does not accept deposits", nil)
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !req.Amount.IsPositive() {
		return apis.NewBadRequestError("amount must be positive", nil)
	}

	if err := funder.Deposit(e.Request.Context(), account, req.Amount); err != nil {
		slog.Error("funder.Deposit()", "account", account, "error", err)
		return apis.NewBadRequestError("Failed to deposit", nil)
	}

	balance, _ := h.asset.BalanceOf(e.Request.Context(), account)
	return e.JSON(http.StatusOK, map[string]any{"account": account, "balance": balance})
}

// Approve - Let the ledger operator spend the caller's tokens
func (h *PaymentHandler) Approve(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}

	approver, ok := payment.Unwrap(h.asset).(payment.Approver)
	if !ok {
		return apis.NewBadRequestError("Payment asset does not use approvals", nil)
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Amount.IsNegative() {
		return apis.NewBadRequestError("amount must not be negative", nil)
	}

	if err := approver.Approve(account, approver.Operator(), req.Amount); err != nil {
		return apis.NewBadRequestError(err.Error(), nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"owner":     account,
		"spender":   approver.Operator(),
		"allowance": approver.Allowance(account, approver.Operator()),
	})
}
