package handlers

import (
	"context"
	"net/http"
	"time"

	"festival-ledger/internal/ledger"
	"festival-ledger/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RoleHandler struct {
	base
}

func NewRoleHandler(l *ledger.Ledger, tracker Tracker) *RoleHandler {
	return &RoleHandler{base: newBase(l, tracker)}
}

func pathRole(e *core.RequestEvent) (models.Role, error) {
	role, err := models.ParseRole(e.Request.PathValue("role"))
	if err != nil {
		return 0, apis.NewBadRequestError(err.Error(), nil)
	}
	return role, nil
}

// HasRole - Whether an account holds a role
func (h *RoleHandler) HasRole(e *core.RequestEvent) error {
	role, err := pathRole(e)
	if err != nil {
		return err
	}
	account := e.Request.PathValue("account")

	return e.JSON(http.StatusOK, map[string]any{
		"role":      role,
		"role_hash": role.HexHash(),
		"account":   account,
		"has_role":  h.ledger.HasRole(role, account),
	})
}

// Members - Holders of a role
func (h *RoleHandler) Members(e *core.RequestEvent) error {
	role, err := pathRole(e)
	if err != nil {
		return err
	}

	return e.JSON(http.StatusOK, map[string]any{
		"role":      role,
		"role_hash": role.HexHash(),
		"members":   h.ledger.RoleMembers(role),
	})
}

type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

func bindRoleRequest(e *core.RequestEvent) (models.Role, string, error) {
	var req roleRequest
	if err := e.BindBody(&req); err != nil {
		return 0, "", apis.NewBadRequestError("Invalid request", err)
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return 0, "", apis.NewBadRequestError(err.Error(), nil)
	}
	return role, req.Account, nil
}

// Grant - Add an account to a role; admin only
func (h *RoleHandler) Grant(e *core.RequestEvent) error {
	return h.change(e, "grant_role", h.ledger.GrantRole)
}

// Revoke - Remove an account from a role; admin only
func (h *RoleHandler) Revoke(e *core.RequestEvent) error {
	return h.change(e, "revoke_role", h.ledger.RevokeRole)
}

func (h *RoleHandler) change(e *core.RequestEvent, op string, apply func(context.Context, string, models.Role, string) error) error {
	account, err := caller(e)
	if err != nil {
		return err
	}

	role, target, err := bindRoleRequest(e)
	if err != nil {
		return err
	}

	started := time.Now()
	err = apply(e.Request.Context(), account, role, target)
	h.tracker.TrackOperation(op, started, err)
	if err != nil {
		return ledgerError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"role":     role,
		"account":  target,
		"has_role": h.ledger.HasRole(role, target),
	})
}

// Renounce - Drop one of the caller's own roles
func (h *RoleHandler) Renounce(e *core.RequestEvent) error {
	account, err := caller(e)
	if err != nil {
		return err
	}

	role, _, err := bindRoleRequest(e)
	if err != nil {
		return err
	}

	started := time.Now()
	err = h.ledger.RenounceRole(e.Request.Context(), account, role)
	h.tracker.TrackOperation("renounce_role", started, err)
	if err != nil {
		return ledgerError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"role":     role,
		"account":  account,
		"has_role": false,
	})
}
