package middleware

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBudget(t *testing.T) {
	limiter := NewRateLimiter(10)

	// Burst capacity is twice the rate.
	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, limiter.Allow("1.2.3.4"))
}

func TestKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1)

	for i := 0; i < 2; i++ {
		assert.True(t, limiter.Allow("a"))
	}
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
}

func TestAllowIsSafeConcurrently(t *testing.T) {
	limiter := NewRateLimiter(1000)

	var wg sync.WaitGroup
	wg.Add(50)
	for i := 0; i < 50; i++ {
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%5))
			for j := 0; j < 100; j++ {
				limiter.Allow(key)
			}
		}(i)
	}
	wg.Wait()
}
