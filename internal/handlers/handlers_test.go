package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"festival-ledger/internal/ledger"
	"festival-ledger/internal/payment"
	"festival-ledger/internal/status"
	"festival-ledger/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	admin  = "u_admin"
	issuer = "u_issuer"
	alice  = "u_alice"
	bob    = "u_bob"
)

type testServer struct {
	ledger   *ledger.Ledger
	asset    *payment.NativeAsset
	festival *FestivalHandler
	ticket   *TicketHandler
	role     *RoleHandler
	admin    *AdminHandler
	payment  *PaymentHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	asset := payment.NewNativeAsset("eth")
	l, err := ledger.New(ledger.Config{Admin: admin, Treasury: "treasury"}, asset)
	require.NoError(t, err)
	require.NoError(t, l.GrantRole(context.Background(), admin, models.RoleIssuer, issuer))

	return &testServer{
		ledger:   l,
		asset:    asset,
		festival: NewFestivalHandler(l, nil),
		ticket:   NewTicketHandler(l, nil),
		role:     NewRoleHandler(l, nil),
		admin:    NewAdminHandler(l, nil, nil, nil),
		payment:  NewPaymentHandler(asset),
	}
}

type call struct {
	method string
	target string
	auth   string
	body   any
	path   map[string]string
}

func (c call) event(t *testing.T) (*core.RequestEvent, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.target, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.path {
		req.SetPathValue(k, v)
	}

	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	if c.auth != "" {
		e.Auth = core.NewRecord(core.NewAuthCollection("users"))
		e.Auth.Id = c.auth
	}
	return e, rec
}

func do(t *testing.T, h func(*core.RequestEvent) error, c call) (map[string]any, error) {
	t.Helper()

	e, rec := c.event(t)
	if err := h(e); err != nil {
		return nil, err
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out, nil
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	return apiErr.Status
}

func idPath(id any) map[string]string {
	return map[string]string{"id": fmt.Sprint(id)}
}

func (s *testServer) createFestival(t *testing.T, supply int, price string) uint64 {
	t.Helper()
	out, err := do(t, s.festival.Create, call{
		method: http.MethodPost, target: "/api/v1/festivals", auth: issuer,
		body: map[string]any{"name": "Summer Sound", "venue": "Riverside", "ticket_price": price, "total_tickets": supply},
	})
	require.NoError(t, err)
	return uint64(out["id"].(float64))
}

func TestFestivalHandler_PurchaseAndResaleFlow(t *testing.T) {
	s := newTestServer(t)
	festID := s.createFestival(t, 5, "100")

	purchase := call{
		method: http.MethodPost, auth: alice, path: idPath(festID),
		target: fmt.Sprintf("/api/v1/festivals/%d/purchase", festID),
		body:   map[string]any{"amount": "100"},
	}

	_, err := do(t, s.festival.Purchase, purchase)
	assert.Equal(t, http.StatusPaymentRequired, apiStatus(t, err))

	_, err = do(t, s.payment.Deposit, call{method: http.MethodPost, target: "/api/v1/dev/deposit", auth: alice, body: map[string]any{"amount": "100"}})
	require.NoError(t, err)

	ticket, err := do(t, s.festival.Purchase, purchase)
	require.NoError(t, err)
	assert.Equal(t, alice, ticket["owner"])
	ticketID := uint64(ticket["id"].(float64))

	fest, err := do(t, s.festival.Get, call{method: http.MethodGet, target: "/api/v1/festivals/1", path: idPath(festID)})
	require.NoError(t, err)
	assert.Equal(t, float64(4), fest["available_tickets"])

	listed, err := do(t, s.ticket.List, call{
		method: http.MethodPost, auth: alice, path: idPath(ticketID),
		target: "/api/v1/tickets/1/list", body: map[string]any{"price": "150"},
	})
	require.NoError(t, err)
	assert.Equal(t, "15", listed["commission"])
	assert.Equal(t, "135", listed["seller_proceeds"])

	market, err := do(t, s.ticket.Market, call{method: http.MethodGet, target: "/api/v1/market/tickets"})
	require.NoError(t, err)
	assert.Len(t, market["tickets"], 1)

	require.NoError(t, s.asset.Deposit(context.Background(), bob, decimal.NewFromInt(150)))
	bought, err := do(t, s.ticket.Buy, call{
		method: http.MethodPost, auth: bob, path: idPath(ticketID),
		target: "/api/v1/tickets/1/buy", body: map[string]any{"amount": "150"},
	})
	require.NoError(t, err)
	assert.Equal(t, bob, bought["owner"])
	assert.Equal(t, false, bought["for_sale"])

	commission, err := do(t, s.admin.Commission, call{method: http.MethodGet, target: "/api/v1/commission"})
	require.NoError(t, err)
	assert.Equal(t, "15", commission["total"])

	balance, err := do(t, s.payment.Balance, call{method: http.MethodGet, target: "/api/v1/balances/u_alice", path: map[string]string{"account": alice}})
	require.NoError(t, err)
	assert.Equal(t, "135", balance["balance"])

	owned, err := do(t, s.ticket.ListByOwner, call{method: http.MethodGet, target: "/api/v1/tickets", auth: bob})
	require.NoError(t, err)
	assert.Len(t, owned["tickets"], 1)
}

func TestFestivalHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	festID := s.createFestival(t, 1, "0")

	tests := []struct {
		name    string
		handler func(*core.RequestEvent) error
		call    call
		want    int
	}{
		{
			name:    "create without auth",
			handler: s.festival.Create,
			call:    call{method: http.MethodPost, target: "/api/v1/festivals", body: map[string]any{"name": "x", "total_tickets": 1}},
			want:    http.StatusUnauthorized,
		},
		{
			name:    "create without issuer role",
			handler: s.festival.Create,
			call:    call{method: http.MethodPost, target: "/api/v1/festivals", auth: alice, body: map[string]any{"name": "x", "total_tickets": 1}},
			want:    http.StatusForbidden,
		},
		{
			name:    "create with zero supply",
			handler: s.festival.Create,
			call:    call{method: http.MethodPost, target: "/api/v1/festivals", auth: issuer, body: map[string]any{"name": "x"}},
			want:    http.StatusBadRequest,
		},
		{
			name:    "unknown festival",
			handler: s.festival.Get,
			call:    call{method: http.MethodGet, target: "/api/v1/festivals/99", path: idPath(99)},
			want:    http.StatusNotFound,
		},
		{
			name:    "malformed id",
			handler: s.festival.Get,
			call:    call{method: http.MethodGet, target: "/api/v1/festivals/abc", path: idPath("abc")},
			want:    http.StatusBadRequest,
		},
		{
			name:    "deactivate by non-admin",
			handler: s.festival.Deactivate,
			call:    call{method: http.MethodPost, target: "/api/v1/festivals/1/deactivate", auth: issuer, path: idPath(festID)},
			want:    http.StatusForbidden,
		},
		{
			name:    "wrong amount",
			handler: s.festival.Purchase,
			call:    call{method: http.MethodPost, target: "/api/v1/festivals/1/purchase", auth: alice, path: idPath(festID), body: map[string]any{"amount": "5"}},
			want:    http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := do(t, tt.handler, tt.call)
			assert.Equal(t, tt.want, apiStatus(t, err))
		})
	}

	purchase := call{method: http.MethodPost, target: "/api/v1/festivals/1/purchase", auth: alice, path: idPath(festID), body: map[string]any{"amount": "0"}}
	_, err := do(t, s.festival.Purchase, purchase)
	require.NoError(t, err)
	_, err = do(t, s.festival.Purchase, purchase)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))
}

func TestFestivalHandler_BulkMintAndDeactivate(t *testing.T) {
	s := newTestServer(t)
	festID := s.createFestival(t, 5, "100")

	out, err := do(t, s.festival.BulkMint, call{
		method: http.MethodPost, target: "/api/v1/festivals/1/bulk-mint", auth: issuer, path: idPath(festID),
		body: map[string]any{"count": 3},
	})
	require.NoError(t, err)
	assert.Len(t, out["ticket_ids"], 3)
	assert.Equal(t, issuer, out["to"])

	_, err = do(t, s.festival.BulkMint, call{
		method: http.MethodPost, target: "/api/v1/festivals/1/bulk-mint", auth: issuer, path: idPath(festID),
		body: map[string]any{"count": 3, "to": alice},
	})
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))

	_, err = do(t, s.festival.Deactivate, call{method: http.MethodPost, target: "/api/v1/festivals/1/deactivate", auth: admin, path: idPath(festID)})
	require.NoError(t, err)

	active, err := do(t, s.festival.ListActive, call{method: http.MethodGet, target: "/api/v1/festivals/active"})
	require.NoError(t, err)
	assert.Empty(t, active["festival_ids"])
}

func TestTicketHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	festID := s.createFestival(t, 5, "0")
	ticketID, err := s.ledger.Purchase(context.Background(), festID, alice, decimal.Zero)
	require.NoError(t, err)

	_, err = do(t, s.ticket.List, call{method: http.MethodPost, target: "/x", auth: bob, path: idPath(ticketID), body: map[string]any{"price": "10"}})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "not owner")

	_, err = do(t, s.ticket.Buy, call{method: http.MethodPost, target: "/x", auth: bob, path: idPath(ticketID), body: map[string]any{"amount": "10"}})
	assert.Equal(t, http.StatusConflict, apiStatus(t, err), "not listed")

	_, err = do(t, s.ticket.Get, call{method: http.MethodGet, target: "/x", path: idPath(42)})
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))

	_, err = do(t, s.ticket.ListByOwner, call{method: http.MethodGet, target: "/api/v1/tickets"})
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))

	out, err := do(t, s.ticket.ListByOwner, call{method: http.MethodGet, target: "/api/v1/tickets?owner=" + alice})
	require.NoError(t, err)
	assert.Len(t, out["tickets"], 1)

	_, err = do(t, s.ticket.List, call{method: http.MethodPost, target: "/x", auth: alice, path: idPath(ticketID), body: map[string]any{"price": "10"}})
	require.NoError(t, err)
	_, err = do(t, s.ticket.Buy, call{method: http.MethodPost, target: "/x", auth: alice, path: idPath(ticketID), body: map[string]any{"amount": "10"}})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "self purchase")

	out, err = do(t, s.ticket.Unlist, call{method: http.MethodPost, target: "/x", auth: alice, path: idPath(ticketID)})
	require.NoError(t, err)
	assert.Equal(t, false, out["for_sale"])
}

func TestRoleHandler(t *testing.T) {
	s := newTestServer(t)

	out, err := do(t, s.role.Grant, call{method: http.MethodPost, target: "/api/v1/roles/grant", auth: admin, body: map[string]any{"role": "issuer", "account": alice}})
	require.NoError(t, err)
	assert.Equal(t, true, out["has_role"])
	assert.Equal(t, "MINTER_ROLE", out["role"])

	_, err = do(t, s.role.Grant, call{method: http.MethodPost, target: "/api/v1/roles/grant", auth: alice, body: map[string]any{"role": "admin", "account": alice}})
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	_, err = do(t, s.role.Grant, call{method: http.MethodPost, target: "/api/v1/roles/grant", auth: admin, body: map[string]any{"account": alice}})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "role is required")

	_, err = do(t, s.role.Revoke, call{method: http.MethodPost, target: "/api/v1/roles/revoke", auth: admin, body: map[string]any{"role": "DEFAULT_ADMIN_ROLE", "account": admin}})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "last admin")
	assert.True(t, s.ledger.HasRole(models.RoleAdmin, admin))

	out, err = do(t, s.role.HasRole, call{
		method: http.MethodGet, target: "/api/v1/roles/MINTER_ROLE/u_alice",
		path: map[string]string{"role": models.RoleIssuer.HexHash(), "account": alice},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["has_role"])

	_, err = do(t, s.role.Renounce, call{method: http.MethodPost, target: "/api/v1/roles/renounce", auth: alice, body: map[string]any{"role": "minter"}})
	require.NoError(t, err)
	assert.False(t, s.ledger.HasRole(models.RoleIssuer, alice))

	out, err = do(t, s.role.Members, call{method: http.MethodGet, target: "/api/v1/roles/issuer", path: map[string]string{"role": "issuer"}})
	require.NoError(t, err)
	assert.Equal(t, []any{issuer}, out["members"])
}

func TestAdminHandler_Events(t *testing.T) {
	s := newTestServer(t)
	s.createFestival(t, 5, "100")

	out, err := do(t, s.admin.Events, call{method: http.MethodGet, target: "/api/v1/events?after=1&limit=1"})
	require.NoError(t, err)
	events := out["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, float64(2), events[0].(map[string]any)["seq"])
	assert.Equal(t, float64(2), out["next"])
	assert.Equal(t, float64(3), out["last_seq"])

	_, err = do(t, s.admin.Events, call{method: http.MethodGet, target: "/api/v1/events?limit=-4"})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	_, err = do(t, s.admin.ArchivedEvents, call{method: http.MethodGet, target: "/api/v1/events/archive"})
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))

	health, err := do(t, s.admin.Health, call{method: http.MethodGet, target: "/health"})
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}

func TestLedgerError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", status.ErrUnauthorized), http.StatusForbidden},
		{fmt.Errorf("x: %w", status.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", status.ErrFailedPayment, status.ErrInsufficientFunds), http.StatusPaymentRequired},
		{fmt.Errorf("x: %w", status.ErrSoldOut), http.StatusConflict},
		{fmt.Errorf("x: %w", status.ErrFestivalInactive), http.StatusConflict},
		{fmt.Errorf("x: %w", status.ErrNotListed), http.StatusConflict},
		{fmt.Errorf("x: %w", status.ErrSelfPurchase), http.StatusBadRequest},
		{fmt.Errorf("x: %w", status.ErrLastAdminProtected), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, apiStatus(t, ledgerError(tt.err)), tt.err.Error())
	}
}
