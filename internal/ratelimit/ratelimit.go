package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter blocks until the next action may run.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

var (
	_ RateLimiter = (*JitteredLimiter)(nil)
	_ RateLimiter = (*AdaptiveLimiter)(nil)
)

// JitteredLimiter spaces actions by a random delay between min and max.
type JitteredLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(minDelay, maxDelay time.Duration) *JitteredLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &JitteredLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *JitteredLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		timer := time.NewTimer(delay - elapsed)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.lastAction = time.Now()
	return nil
}

// Delays returns the current bounds.
func (r *JitteredLimiter) Delays() (time.Duration, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minDelay, r.maxDelay
}

func (r *JitteredLimiter) calculateDelay() time.Duration {
	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}
	return r.minDelay + time.Duration(rand.Int63n(int64(r.maxDelay-r.minDelay)))
}

// AdaptiveLimiter widens its delays after repeated blocks and eases back towards the
// configured floor after a run of successful fetches.
type AdaptiveLimiter struct {
	*JitteredLimiter
	floor         time.Duration
	blockCount    int
	successCount  int
	maxBlockCount int
	backoffFactor float64
	maxMinDelay   time.Duration
	maxMaxDelay   time.Duration
}

func NewAdaptiveLimiter(minDelay, maxDelay time.Duration) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		JitteredLimiter: NewJitteredLimiter(minDelay, maxDelay),
		floor:           minDelay,
		maxBlockCount:   1,
		backoffFactor:   1.5,
		maxMinDelay:     60 * time.Second,
		maxMaxDelay:     120 * time.Second,
	}
}

func (a *AdaptiveLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.blockCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < a.floor {
			newMin = a.floor
		}
		a.minDelay = newMin
		if a.maxDelay < a.minDelay {
			a.maxDelay = a.minDelay
		}
		a.successCount = 0
	}
}

// RecordBlock registers an access-denied response.
func (a *AdaptiveLimiter) RecordBlock() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.blockCount++
	a.successCount = 0

	if a.blockCount >= a.maxBlockCount {
		a.minDelay = min(time.Duration(float64(a.minDelay)*a.backoffFactor), a.maxMinDelay)
		a.maxDelay = min(time.Duration(float64(a.maxDelay)*a.backoffFactor), a.maxMaxDelay)
		a.blockCount = 0
	}
}
