package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWait_UnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/page"))
	}
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWait_ThrottlesPerDomain(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 20, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://slow.example.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://slow.example.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	// Separate domains use separate buckets.
	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://other.example.com/a"))
	require.Less(t, time.Since(start), 25*time.Millisecond)
}

func TestWait_RespectsContextCancel(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.001, DefaultBurst: 1})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://example.com/a"))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := l.Wait(cancelCtx, "https://example.com/b")
	require.Error(t, err)
}
