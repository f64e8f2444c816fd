package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const maxSettleRetries = 3

// RedisAsset keeps balances in one Redis hash per asset so a settlement can
// be applied under a single WATCH/MULTI.
type RedisAsset struct {
	name  string
	Redis *redis.Client
}

func NewRedisAsset(redisClient *redis.Client, name string) *RedisAsset {
	return &RedisAsset{name: name, Redis: redisClient}
}

func (a *RedisAsset) Name() string {
	return a.name
}

func (a *RedisAsset) key() string {
	return fmt.Sprintf("balances:%s", a.name)
}

func (a *RedisAsset) BalanceOf(ctx context.Context, account string) (decimal.Decimal, error) {
	v, err := a.Redis.HGet(ctx, a.key(), account).Result()
	if err == redis.Nil {
		return decimal.Zero, nil
	} else if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(v)
}

// Deposit funds an account from outside the ledger.
func (a *RedisAsset) Deposit(ctx context.Context, account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("deposit: negative amount %s", amount)
	}
	return a.update(ctx, []string{account}, func(b book) error {
		b.credit(account, amount)
		return nil
	})
}

func (a *RedisAsset) Settle(ctx context.Context, s Settlement) error {
	s, err := s.Normalize()
	if err != nil {
		return err
	}
	if s.Empty() {
		return nil
	}

	accounts := []string{s.From}
	seen := map[string]bool{s.From: true}
	for _, l := range s.Legs {
		if !seen[l.To] {
			seen[l.To] = true
			accounts = append(accounts, l.To)
		}
	}

	return a.update(ctx, accounts, func(b book) error {
		return b.apply(s)
	})
}

// update loads the given accounts, lets fn mutate them, and writes them back
// only if the hash was not touched in between.
func (a *RedisAsset) update(ctx context.Context, accounts []string, fn func(book) error) error {
	key := a.key()

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, accounts...).Result()
		if err != nil {
			return err
		}

		b := newBook()
		for i, account := range accounts {
			raw, ok := vals[i].(string)
			if !ok {
				continue
			}
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", account, err)
			}
			b.balances[account] = amount
		}

		if err := fn(b); err != nil {
			return err
		}

		args := make([]interface{}, 0, len(accounts)*2)
		for _, account := range accounts {
			args = append(args, account, b.balance(account).String())
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, args...)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxSettleRetries; i++ {
		err = a.Redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		slog.Warn("balance update raced, retrying", "asset", a.name, "attempt", i+1)
	}
	return err
}
