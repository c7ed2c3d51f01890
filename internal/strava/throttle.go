package strava

import (
	"context"
	"sync"
	"time"
)

// Throttle is a sliding-window request limiter. The client uses it to
// stay under Strava's 100 requests per 15 minute quota instead of
// running into 429 responses.
type Throttle struct {
	mu     sync.Mutex
	stamps []time.Time
	limit  int           // Maximum requests per window
	window time.Duration // Time window
}

// NewThrottle creates a throttle allowing limit requests per window.
func NewThrottle(limit int, window time.Duration) *Throttle {
	return &Throttle{limit: limit, window: window}
}

// Wait blocks until a request slot is available or the context is
// done. The slot is consumed on return.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()

		// Drop stamps that fell out of the window.
		valid := t.stamps[:0]
		for _, s := range t.stamps {
			if now.Sub(s) < t.window {
				valid = append(valid, s)
			}
		}
		t.stamps = valid

		if len(t.stamps) < t.limit {
			t.stamps = append(t.stamps, now)
			t.mu.Unlock()
			return nil
		}

		wait := t.window - now.Sub(t.stamps[0])
		t.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
