package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset is the payment capability the markets settle through. Settle must be
// all-or-nothing: either every leg is credited and the payer debited, or
// nothing moves and an error is returned.
type Asset interface {
	Name() string
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
	Settle(ctx context.Context, s Settlement) error
}

// Funder is implemented by assets that can be topped up from outside the ledger.
type Funder interface {
	Deposit(ctx context.Context, account string, amount decimal.Decimal) error
}

// Approver is implemented by assets that require spending approval.
// Operator is the spender the ledger settles as.
type Approver interface {
	Approve(owner, spender string, amount decimal.Decimal) error
	Allowance(owner, spender string) decimal.Decimal
	Operator() string
}

// Unwrap returns the innermost asset beneath any decorators such as WithBreaker.
func Unwrap(a Asset) Asset {
	for {
		w, ok := a.(interface{ Unwrap() Asset })
		if !ok {
			return a
		}
		a = w.Unwrap()
	}
}

// Leg credits one payee.
type Leg struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Settlement debits From by the sum of its legs. Reference tags the
// settlement in logs and external ledgers.
type Settlement struct {
	Reference string `json:"reference,omitempty"`
	From      string `json:"from"`
	Legs      []Leg  `json:"legs"`
}

func (s Settlement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Legs {
		total = total.Add(l.Amount)
	}
	return total
}

// Normalize validates the settlement and drops zero-amount legs.
func (s Settlement) Normalize() (Settlement, error) {
	if s.From == "" {
		return s, fmt.Errorf("settlement: payer is required")
	}
	out := Settlement{Reference: s.Reference, From: s.From, Legs: make([]Leg, 0, len(s.Legs))}
	for _, l := range s.Legs {
		if l.To == "" {
			return s, fmt.Errorf("settlement: payee is required")
		}
		if l.Amount.IsNegative() {
			return s, fmt.Errorf("settlement: negative amount %s for %s", l.Amount, l.To)
		}
		if l.Amount.IsZero() {
			continue
		}
		out.Legs = append(out.Legs, l)
	}
	return out, nil
}

// Empty reports whether nothing would move.
func (s Settlement) Empty() bool {
	return len(s.Legs) == 0
}
