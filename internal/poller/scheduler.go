// Package poller periodically refreshes repository scopes so snapshots
// track ledger state without user interaction.
package poller

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Default refresh cadences. Auctions move faster than listings, so their
// scope polls tighter.
const (
	DefaultListingsInterval = 15 * time.Second
	DefaultAuctionsInterval = 5 * time.Second
	DefaultOwnedInterval    = 30 * time.Second
)

// Refresher refreshes one repository scope.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler owns a set of named refresh loops.
type Scheduler struct {
	logger *log.Logger

	mu   sync.Mutex
	subs []*Subscription
}

// NewScheduler creates a scheduler. A nil logger falls back to a default
// stderr logger.
func NewScheduler(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(os.Stderr, "[poller] ", log.LstdFlags)
	}
	return &Scheduler{logger: logger}
}

// Subscription is one running refresh loop. Stop is idempotent.
type Subscription struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Name returns the scope name the subscription refreshes.
func (s *Subscription) Name() string { return s.name }

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe starts a refresh loop for the scope. The first refresh runs
// immediately; afterwards the loop ticks at the given interval until the
// subscription is stopped or the context is cancelled. Refresh errors are
// logged and the loop keeps going; the repository retains its stale
// snapshot until a later tick succeeds.
func (s *Scheduler) Subscribe(ctx context.Context, name string, interval time.Duration, r Refresher) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		defer close(sub.done)
		s.logger.Printf("%s: polling every %v", name, interval)

		// Run immediately on start
		s.runOnce(ctx, name, r)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Printf("%s: polling stopped", name)
				return
			case <-ticker.C:
				s.runOnce(ctx, name, r)
			}
		}
	}()

	return sub
}

func (s *Scheduler) runOnce(ctx context.Context, name string, r Refresher) {
	if err := r.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("%s: refresh failed: %v", name, err)
	}
}

// StopAll stops every subscription started through this scheduler.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
}
