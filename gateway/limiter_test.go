package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBurstThenThrottle(t *testing.T) {
	l := NewTokenBucketLimiter(100, 2)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.Less(t, time.Since(start), 5*time.Millisecond, "突发额度内不应等待")

	// 第三个请求要等令牌
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiterContextCancel(t *testing.T) {
	l := NewTokenBucketLimiter(0.1, 1)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))

	canceled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := l.Wait(canceled)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterSetRate(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1)
	l.SetRate(50, 10)
	assert.Equal(t, float64(50), l.rate)
	assert.Equal(t, 10, l.burst)

	// 非法值不生效
	l.SetRate(0, -1)
	assert.Equal(t, float64(50), l.rate)
	assert.Equal(t, 10, l.burst)
}
