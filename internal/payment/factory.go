package payment

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Kind selects a payment asset implementation.
type Kind string

const (
	KindNative Kind = "native"
	KindToken  Kind = "token"
	KindRedis  Kind = "redis"
)

// Options carries what the individual implementations need.
type Options struct {
	Name     string
	Operator string        // token: account the ledger spends allowances as
	Redis    *redis.Client // redis: balance store
}

// NewAsset creates an asset of the given kind.
func NewAsset(kind Kind, opts Options) (Asset, error) {
	name := opts.Name
	if name == "" {
		name = string(kind)
	}

	switch kind {
	case KindNative:
		return NewNativeAsset(name), nil

	case KindToken:
		if opts.Operator == "" {
			return nil, fmt.Errorf("token asset requires an operator account")
		}
		return NewTokenAsset(name, opts.Operator), nil

	case KindRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis asset requires a redis client")
		}
		return NewRedisAsset(opts.Redis, name), nil

	default:
		return nil, fmt.Errorf("unsupported payment asset: %s", kind)
	}
}

// SupportedKinds returns the asset kinds NewAsset understands.
func SupportedKinds() []Kind {
	return []Kind{KindNative, KindToken, KindRedis}
}
