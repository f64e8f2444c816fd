package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"festival-ledger/internal/status"
	"festival-ledger/utils"

	"github.com/shopspring/decimal"
)

// breakerAsset stops hammering a failing backend. Business rejections
// (insufficient funds or allowance) are not counted as backend failures.
type breakerAsset struct {
	Asset
	cb *utils.CircuitBreaker
}

// WithBreaker wraps an asset so Settle and BalanceOf go through cb.
func WithBreaker(asset Asset, cb *utils.CircuitBreaker) Asset {
	return &breakerAsset{Asset: asset, cb: cb}
}

func (b *breakerAsset) Unwrap() Asset {
	return b.Asset
}

func (b *breakerAsset) BalanceOf(ctx context.Context, account string) (decimal.Decimal, error) {
	res, err := b.cb.Execute(ctx, func() (interface{}, error) {
		return b.Asset.BalanceOf(ctx, account)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.(decimal.Decimal), nil
}

func (b *breakerAsset) Settle(ctx context.Context, s Settlement) error {
	var rejected error
	_, err := b.cb.Execute(ctx, func() (interface{}, error) {
		err := b.Asset.Settle(ctx, s)
		if isRejection(err) {
			rejected = err
			return nil, nil
		}
		return nil, err
	})
	if rejected != nil {
		return rejected
	}
	if errors.Is(err, utils.ErrOpenState) || errors.Is(err, utils.ErrTooManyRequests) {
		slog.Warn("payment backend unavailable", "asset", b.Name(), "breaker", b.cb.Name(), "error", err)
		return fmt.Errorf("%w: %s: %w", status.ErrFailedPayment, b.Name(), err)
	}
	return err
}

func isRejection(err error) bool {
	return errors.Is(err, status.ErrInsufficientFunds) || errors.Is(err, status.ErrInsufficientAllowance)
}
