package multileg

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// subscriptionKey identifies one pinned (pair, amount) streaming leg.
type subscriptionKey struct {
	pair   domain.TradePair
	amount uint64
}

// SubscriptionPlanner maps (pair, amount) keys onto available IPs, up to
// two assignments per IP, before the engine starts — spec.md §4.11's
// streaming-leg pinning requirement.
type SubscriptionPlanner struct {
	maxPerIP int
	assigned map[string]int
	plan     map[subscriptionKey]string
	mu       sync.Mutex
}

// NewSubscriptionPlanner builds a planner; maxPerIP <= 0 defaults to 2.
func NewSubscriptionPlanner(maxPerIP int) *SubscriptionPlanner {
	if maxPerIP <= 0 {
		maxPerIP = 2
	}
	return &SubscriptionPlanner{maxPerIP: maxPerIP, assigned: map[string]int{}, plan: map[subscriptionKey]string{}}
}

// Pin assigns pair/amount to the first IP (in ips order) with remaining
// capacity, returning it. Returns "" if every IP is saturated.
func (p *SubscriptionPlanner) Pin(pair domain.TradePair, amount uint64, ips []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := subscriptionKey{pair: pair, amount: amount}
	if ip, ok := p.plan[key]; ok {
		return ip
	}
	for _, ip := range ips {
		if p.assigned[ip] < p.maxPerIP {
			p.assigned[ip]++
			p.plan[key] = ip
			return ip
		}
	}
	return ""
}

// IPFor returns the previously pinned IP for a (pair, amount) key, if any.
func (p *SubscriptionPlanner) IPFor(pair domain.TradePair, amount uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ip, ok := p.plan[subscriptionKey{pair: pair, amount: amount}]
	return ip, ok
}

// Driver reacts to streaming quote pushes and converts them into dispatch
// triggers, bounded by an optional semaphore and a minimum inter-trigger
// interval — spec.md §4.11's "Titan-internal concurrency is bounded by an
// optional semaphore and a throttle".
type Driver struct {
	sem          *semaphore.Weighted
	minInterval  time.Duration
	mu           sync.Mutex
	lastTrigger  time.Time
}

// NewDriver builds a Driver. maxConcurrent <= 0 disables the semaphore
// bound (unlimited, gated only by minInterval).
func NewDriver(maxConcurrent int64, minInterval time.Duration) *Driver {
	d := &Driver{minInterval: minInterval}
	if maxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return d
}

// OnUpdate runs fn for one streaming quote update, respecting the
// throttle and semaphore bound. Returns false without running fn if the
// throttle window hasn't elapsed.
func (d *Driver) OnUpdate(ctx context.Context, fn func(context.Context)) (ran bool, err error) {
	d.mu.Lock()
	now := time.Now()
	if now.Sub(d.lastTrigger) < d.minInterval {
		d.mu.Unlock()
		return false, nil
	}
	d.lastTrigger = now
	d.mu.Unlock()

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return false, err
		}
		defer d.sem.Release(1)
	}
	fn(ctx)
	return true, nil
}
