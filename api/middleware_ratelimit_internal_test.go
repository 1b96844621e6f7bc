package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiterSweepsStaleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	rl.clients["203.0.113.7"] = &rateLimitClient{
		lim:  rate.NewLimiter(rl.r, rl.burst),
		seen: time.Now().Add(-10 * time.Minute),
	}
	rl.clients["203.0.113.8"] = &rateLimitClient{
		lim:  rate.NewLimiter(rl.r, rl.burst),
		seen: time.Now(),
	}
	rl.lastSweep = time.Now().Add(-2 * time.Minute)

	rl.get("198.51.100.1")

	_, staleKept := rl.clients["203.0.113.7"]
	assert.False(t, staleKept)
	_, freshKept := rl.clients["203.0.113.8"]
	assert.True(t, freshKept)
	_, newKept := rl.clients["198.51.100.1"]
	assert.True(t, newKept)
}

func TestRateLimiterSweepWaitsForInterval(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	rl.clients["203.0.113.7"] = &rateLimitClient{
		lim:  rate.NewLimiter(rl.r, rl.burst),
		seen: time.Now().Add(-10 * time.Minute),
	}

	// lastSweep is fresh, so even a stale entry survives this call
	rl.get("198.51.100.1")

	_, staleKept := rl.clients["203.0.113.7"]
	assert.True(t, staleKept)
}
