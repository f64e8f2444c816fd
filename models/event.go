package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventFestivalCreated     EventKind = "festival_created"
	EventFestivalDeactivated EventKind = "festival_deactivated"
	EventTicketMinted        EventKind = "ticket_minted"
	EventTicketTransferred   EventKind = "ticket_transferred"
	EventTicketListed        EventKind = "ticket_listed"
	EventTicketUnlisted      EventKind = "ticket_unlisted"
	EventRoleGranted         EventKind = "role_granted"
	EventRoleRevoked         EventKind = "role_revoked"
	EventCommissionCredited  EventKind = "commission_credited"
)

// LedgerEvent is the record emitted for every committed mutation.
// Fields that do not apply to a kind are left zero.
type LedgerEvent struct {
	Seq        uint64          `json:"seq"`
	Kind       EventKind       `json:"kind"`
	FestivalID uint64          `json:"festival_id,omitempty"`
	TicketID   uint64          `json:"ticket_id,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Role       string          `json:"role,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
