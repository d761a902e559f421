package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate-limits inbound events per sender. Each sender gets its own
// token bucket; buckets idle for longer than the cleanup age are dropped.
type Limiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	senders map[string]*senderBucket
	now     func() time.Time
}

type senderBucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLimiter allows perMinute events per sender, with a burst of the same
// size. perMinute <= 0 disables limiting.
func NewLimiter(perMinute int) *Limiter {
	l := &Limiter{
		limit:   rate.Inf,
		senders: make(map[string]*senderBucket),
		now:     time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow reports whether one more event from sender may be processed now.
func (l *Limiter) Allow(sender string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.senders[sender]
	if !ok {
		b = &senderBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.senders[sender] = b
	}
	b.lastUsed = now
	return b.limiter.AllowN(now, 1)
}

// Cleanup removes buckets not used within maxAge to prevent memory leaks.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for sender, b := range l.senders {
		if now.Sub(b.lastUsed) > maxAge {
			delete(l.senders, sender)
		}
	}
}

// Len returns the number of tracked senders.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.senders)
}
