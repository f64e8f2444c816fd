package models

import (
	"github.com/shopspring/decimal"
)

type Festival struct {
	ID               uint64          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Date             int64           `json:"date"` // unix seconds
	Venue            string          `json:"venue"`
	TicketPrice      decimal.Decimal `json:"ticket_price"`
	TotalTickets     uint64          `json:"total_tickets"`
	AvailableTickets uint64          `json:"available_tickets"`
	Organizer        string          `json:"organizer"`
	IsActive         bool            `json:"is_active"`
}

// SoldOut reports whether the festival has no supply left.
func (f Festival) SoldOut() bool {
	return f.AvailableTickets == 0
}

// Issued is the number of tickets taken from the supply so far.
func (f Festival) Issued() uint64 {
	return f.TotalTickets - f.AvailableTickets
}

type FestivalInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Date         int64           `json:"date"`
	Venue        string          `json:"venue"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	TotalTickets uint64          `json:"total_tickets"`
}
