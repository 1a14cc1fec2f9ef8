package cache

import "context"

// IdempotencyGuard refuses a second in-flight request carrying the same key.
// Claim reports false when the key is already held.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type NoopGuard struct{}

func (NoopGuard) Claim(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (NoopGuard) Release(_ context.Context, _ string) error {
	return nil
}
