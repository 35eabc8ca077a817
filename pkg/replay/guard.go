package replay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brewhouse/cafe-backend/pkg/redis"
)

// Store is the redis surface the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	PaymentCallbackKey(gateway, txnRef, transactionNo string) string
}

var _ Store = (*redis.Client)(nil)

// Guard remembers which gateway callbacks were already handled, using SETNX with a TTL.
// Keys follow the `cafe:callback:<gateway>:<txn_ref>:<transaction_no>` pattern.
type Guard struct {
	store   Store
	gateway string
	ttl     time.Duration
}

// NewGuard builds a replay guard for one gateway.
func NewGuard(store Store, gateway string, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("replay store is required")
	}
	if strings.TrimSpace(gateway) == "" {
		return nil, errors.New("gateway name is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, gateway: gateway, ttl: ttl}, nil
}

// CheckAndMark returns true when the callback was already seen and otherwise marks it.
func (g *Guard) CheckAndMark(ctx context.Context, txnRef, transactionNo string) (bool, error) {
	key, err := g.key(txnRef, transactionNo)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Forget clears a marker so a callback that failed mid-flight can be handled again.
func (g *Guard) Forget(ctx context.Context, txnRef, transactionNo string) error {
	key, err := g.key(txnRef, transactionNo)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(txnRef, transactionNo string) (string, error) {
	if strings.TrimSpace(txnRef) == "" {
		return "", errors.New("txn ref is required")
	}
	return g.store.PaymentCallbackKey(g.gateway, txnRef, transactionNo), nil
}
