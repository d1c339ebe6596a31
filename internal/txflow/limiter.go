package txflow

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// SubmitLimiter applies a token bucket per account so a misbehaving
// caller cannot flood the network with submissions from one key.
type SubmitLimiter struct {
	limit rate.Limit
	burst int
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
}

// NewSubmitLimiter returns nil for non-positive arguments; a nil
// limiter allows everything.
func NewSubmitLimiter(rps float64, burst int) *SubmitLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &SubmitLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}
}

func (l *SubmitLimiter) Allow(accountID string) bool {
	if l == nil {
		return true
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.byKey[accountID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[accountID] = lim
	}
	return lim.Allow()
}
