package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopGuardAlwaysClaims(t *testing.T) {
	var g IdempotencyGuard = NoopGuard{}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := g.Claim(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, g.Release(ctx, "k"))
}

func TestRedisGuardRefusesSecondClaim(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	g := NewRedisGuard(addr, "", 0, time.Minute)
	defer g.Close()

	ctx := context.Background()
	if err := g.Ping(ctx); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	key := fmt.Sprintf("guard-test-%d", time.Now().UnixNano())
	ok, err := g.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, key))
	ok, err = g.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	_ = g.Release(ctx, key)
}
