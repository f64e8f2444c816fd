package payment

import (
	"context"
	"fmt"
	"sync"

	"festival-ledger/internal/status"

	"github.com/shopspring/decimal"
)

// book is an in-memory balance sheet. Callers hold the owning asset's lock.
type book struct {
	balances map[string]decimal.Decimal
}

func newBook() book {
	return book{balances: make(map[string]decimal.Decimal)}
}

func (b book) balance(account string) decimal.Decimal {
	if v, ok := b.balances[account]; ok {
		return v
	}
	return decimal.Zero
}

func (b book) credit(account string, amount decimal.Decimal) {
	b.balances[account] = b.balance(account).Add(amount)
}

func (b book) apply(s Settlement) error {
	total := s.Total()
	if have := b.balance(s.From); have.LessThan(total) {
		return fmt.Errorf("%w: %s has %s, needs %s", status.ErrInsufficientFunds, s.From, have, total)
	}
	b.balances[s.From] = b.balance(s.From).Sub(total)
	for _, l := range s.Legs {
		b.credit(l.To, l.Amount)
	}
	return nil
}

// NativeAsset models the chain's native currency: plain balances, no approvals.
type NativeAsset struct {
	name string

	mu   sync.Mutex
	book book
}

func NewNativeAsset(name string) *NativeAsset {
	return &NativeAsset{name: name, book: newBook()}
}

func (a *NativeAsset) Name() string {
	return a.name
}

// Deposit funds an account from outside the ledger.
func (a *NativeAsset) Deposit(_ context.Context, account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("deposit: negative amount %s", amount)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.book.credit(account, amount)
	return nil
}

func (a *NativeAsset) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.book.balance(account), nil
}

func (a *NativeAsset) Settle(_ context.Context, s Settlement) error {
	s, err := s.Normalize()
	if err != nil {
		return err
	}
	if s.Empty() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.book.apply(s)
}
