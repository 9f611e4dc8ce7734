package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleLimiter_EnforcesMinimumGap(t *testing.T) {
	limiter := NewSimpleLimiter(50*time.Millisecond, 50*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestSimpleLimiter_ContextCancellation(t *testing.T) {
	limiter := NewSimpleLimiter(5*time.Second, 5*time.Second)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimpleLimiter_SwapsInvertedBounds(t *testing.T) {
	limiter := NewSimpleLimiter(100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, limiter.minDelay, limiter.maxDelay)
}

func TestAdaptiveLimiter_BacksOffAfterErrors(t *testing.T) {
	limiter := NewAdaptiveLimiter(2*time.Second, 4*time.Second)

	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}

	assert.Equal(t, 3*time.Second, limiter.minDelay)
	assert.Equal(t, 6*time.Second, limiter.maxDelay)
	assert.Equal(t, 0, limiter.errorCount)
}

func TestAdaptiveLimiter_RecoversAfterSuccessStreak(t *testing.T) {
	limiter := NewAdaptiveLimiter(10*time.Second, 20*time.Second)

	for i := 0; i < 6; i++ {
		limiter.RecordSuccess()
	}

	assert.Equal(t, 9*time.Second, limiter.minDelay)
}

func TestAdaptiveLimiter_BackoffCapped(t *testing.T) {
	limiter := NewAdaptiveLimiter(50*time.Second, 110*time.Second)

	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}

	assert.Equal(t, 60*time.Second, limiter.minDelay)
	assert.Equal(t, 120*time.Second, limiter.maxDelay)
}

func TestAdaptiveLimiter_SuccessResetsErrorCount(t *testing.T) {
	limiter := NewAdaptiveLimiter(2*time.Second, 4*time.Second)

	limiter.RecordError()
	limiter.RecordError()
	limiter.RecordSuccess()
	limiter.RecordError()

	assert.Equal(t, 2*time.Second, limiter.minDelay)
}
