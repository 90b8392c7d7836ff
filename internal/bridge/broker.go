package bridge

import (
	"context"
	"sync"
	"time"

	"finanze/internal/core"
)

// DefaultResultTTL is how long a completed external login waits for a poller
// to pick it up.
const DefaultResultTTL = 5 * time.Minute

// Broker tracks external login attempts. A completed attempt keeps its result
// until exactly one waiter claims it or the result expires, so a completion
// that lands between two polls is not lost.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*attempt
	ttl     time.Duration
	now     func() time.Time
}

type attempt struct {
	done     chan struct{}
	result   *core.ExternalLoginResult
	finished bool
	claimed  bool
	expires  time.Time
}

func NewBroker() *Broker {
	return &Broker{
		pending: make(map[string]*attempt),
		ttl:     DefaultResultTTL,
		now:     time.Now,
	}
}

// Start registers an attempt for id. It reports false while an earlier
// attempt for id is still waiting for its completion. A completed result
// nobody claimed is discarded.
func (b *Broker) Start(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a := b.lookup(id); a != nil && !a.finished {
		return false
	}
	b.pending[id] = &attempt{done: make(chan struct{})}
	return true
}

// Wait returns a channel that yields the result of the attempt for id and is
// then closed. It is closed without a value when the attempt is cancelled,
// when there is no attempt, or when ctx ends first; in the last case the
// result stays available to the next waiter.
func (b *Broker) Wait(ctx context.Context, id string) <-chan core.ExternalLoginResult {
	out := make(chan core.ExternalLoginResult, 1)

	b.mu.Lock()
	a := b.lookup(id)
	b.mu.Unlock()
	if a == nil {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		select {
		case <-a.done:
		case <-ctx.Done():
			return
		}
		if result, ok := b.claim(id, a); ok {
			out <- result
		}
	}()
	return out
}

// Complete stores result for the attempt for id. It returns false when no
// attempt is waiting for a completion.
func (b *Broker) Complete(id string, result core.ExternalLoginResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.lookup(id)
	if a == nil || a.finished {
		return false
	}
	a.result = &result
	a.finished = true
	a.expires = b.now().Add(b.ttl)
	close(a.done)
	return true
}

// Cancel abandons the attempt for id, including a completed result nobody
// claimed yet. Waiters see their channel closed without a value.
func (b *Broker) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.lookup(id)
	if a == nil {
		return false
	}
	delete(b.pending, id)
	a.claimed = true
	if !a.finished {
		a.finished = true
		close(a.done)
	}
	return true
}

// Pending reports whether an attempt for id still waits for its completion.
func (b *Broker) Pending(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.lookup(id)
	return a != nil && !a.finished
}

func (b *Broker) claim(id string, a *attempt) (core.ExternalLoginResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.claimed || a.result == nil {
		return core.ExternalLoginResult{}, false
	}
	a.claimed = true
	if b.pending[id] == a {
		delete(b.pending, id)
	}
	return *a.result, true
}

// lookup returns the live attempt for id, dropping an expired result.
// Callers hold b.mu.
func (b *Broker) lookup(id string) *attempt {
	a, ok := b.pending[id]
	if !ok {
		return nil
	}
	if a.finished && b.now().After(a.expires) {
		delete(b.pending, id)
		return nil
	}
	return a
}
