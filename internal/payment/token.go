package payment

import (
	"context"
	"fmt"
	"sync"

	"festival-ledger/internal/status"

	"github.com/shopspring/decimal"
)

// TokenAsset is a fungible token with ERC-20 style allowances. The ledger
// settles as Operator, so a payer must first Approve the operator for at
// least the amount being charged.
type TokenAsset struct {
	name     string
	operator string

	mu         sync.Mutex
	book       book
	allowances map[string]map[string]decimal.Decimal // owner -> spender -> amount
}

func NewTokenAsset(name, operator string) *TokenAsset {
	return &TokenAsset{
		name:       name,
		operator:   operator,
		book:       newBook(),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
}

func (a *TokenAsset) Name() string {
	return a.name
}

func (a *TokenAsset) Operator() string {
	return a.operator
}

// Mint creates new tokens for an account.
func (a *TokenAsset) Mint(to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("mint: negative amount %s", amount)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.book.credit(to, amount)
	return nil
}

// Approve sets (not adds to) the amount spender may move on owner's behalf.
func (a *TokenAsset) Approve(owner, spender string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("approve: negative amount %s", amount)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.allowances[owner] == nil {
		a.allowances[owner] = make(map[string]decimal.Decimal)
	}
	a.allowances[owner][spender] = amount
	return nil
}

// Deposit mints to account; it lets the token stand in wherever a Funder is expected.
func (a *TokenAsset) Deposit(_ context.Context, account string, amount decimal.Decimal) error {
	return a.Mint(account, amount)
}

func (a *TokenAsset) Allowance(owner, spender string) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowance(owner, spender)
}

func (a *TokenAsset) allowance(owner, spender string) decimal.Decimal {
	if v, ok := a.allowances[owner][spender]; ok {
		return v
	}
	return decimal.Zero
}

func (a *TokenAsset) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.book.balance(account), nil
}

func (a *TokenAsset) Settle(_ context.Context, s Settlement) error {
	s, err := s.Normalize()
	if err != nil {
		return err
	}
	if s.Empty() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	total := s.Total()
	allowed := a.allowance(s.From, a.operator)
	if allowed.LessThan(total) {
		return fmt.Errorf("%w: %s approved %s for %s, needs %s",
			status.ErrInsufficientAllowance, s.From, allowed, a.operator, total)
	}
	if err := a.book.apply(s); err != nil {
		return err
	}
	a.allowances[s.From][a.operator] = allowed.Sub(total)
	return nil
}
