package iplease

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dnavarro/cyclearb/internal/xerrors"
)

// slot is one source-IP's mutable state. Guarded by Pool.mu; a lease holds
// a pointer into Pool.slots so release() can find it back in O(1).
type slot struct {
	ip            string
	inflight      int
	cooldownUntil time.Time
	lastOutcome   Outcome
	lastUsedAt    time.Time
	limiter       *rate.Limiter
}

// Cooldowns configures how long a slot is benched after each outcome kind.
type Cooldowns struct {
	RateLimited time.Duration
	Timeout     time.Duration
	Network     time.Duration
}

// DefaultCooldowns mirrors the seed-test expectation of a 30s rate-limit
// cooldown (spec.md §8 scenario 2), with shorter benches for transient
// network/timeout trouble.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		RateLimited: 30 * time.Second,
		Timeout:     5 * time.Second,
		Network:     5 * time.Second,
	}
}

// Pool is the IP lease pool: a fixed set of source-IP slots shared across
// all task kinds, round-robin selected with per-slot inflight caps and
// outcome-keyed cooldowns.
type Pool struct {
	mu              sync.Mutex
	cond            *sync.Cond
	slots           []*slot
	perIPInflight   int
	cooldowns       Cooldowns
	rrCursor        int
	perIPRateLimit  rate.Limit
}

// Config configures pool construction.
type Config struct {
	IPs               []string
	PerIPInflightLimit int
	Cooldowns         Cooldowns
	// PerIPRateLimit, when positive, attaches a rate.Limiter to each slot;
	// Acquire does not wait on it, so admission is governed by the inflight
	// cap and cooldowns alone. Zero leaves the limiter unset.
	PerIPRateLimit rate.Limit
}

// New builds a Pool from cfg. A zero-length IPs list is valid — every
// subsequent Acquire returns a NetworkResource error, matching spec.md
// §4.1's "never errors under backpressure" contract for slot scarcity while
// still surfacing outright absence of slots as an error rather than a hang.
func New(cfg Config) *Pool {
	p := &Pool{
		perIPInflight: cfg.PerIPInflightLimit,
		cooldowns:     cfg.Cooldowns,
	}
	if p.perIPInflight <= 0 {
		p.perIPInflight = 1
	}
	p.cond = sync.NewCond(&p.mu)
	for _, ip := range cfg.IPs {
		s := &slot{ip: ip}
		if cfg.PerIPRateLimit > 0 {
			s.limiter = rate.NewLimiter(cfg.PerIPRateLimit, 1)
		}
		p.slots = append(p.slots, s)
	}
	return p
}

// TotalSlots returns the configured slot count.
func (p *Pool) TotalSlots() int { return len(p.slots) }

// Acquire blocks until a slot satisfying (inflight < limit) && (now >=
// cooldown_until) is available, honoring ctx cancellation.
func (p *Pool) Acquire(ctx context.Context, kind TaskKind) (*LeaseHandle, error) {
	return p.acquire(ctx, kind, "")
}

// AcquireExcluding is identical to Acquire but refuses to return excludeIP
// when any other eligible slot exists — used to spread a round trip's two
// legs across different source IPs.
func (p *Pool) AcquireExcluding(ctx context.Context, kind TaskKind, excludeIP string) (*LeaseHandle, error) {
	return p.acquire(ctx, kind, excludeIP)
}

// AcquireForLanding satisfies landing.LeaseAcquirer: it leases a slot
// tagged LandingSubmit and hands back a release closure that translates
// the caller's success/fail verdict into this pool's Outcome enum.
func (p *Pool) AcquireForLanding(ctx context.Context) (func(success bool), error) {
	handle, err := p.Acquire(ctx, LandingSubmit)
	if err != nil {
		return nil, err
	}
	return func(success bool) {
		if success {
			handle.Release(Success)
		} else {
			handle.Release(NetworkError)
		}
	}, nil
}

func (p *Pool) acquire(ctx context.Context, kind TaskKind, excludeIP string) (*LeaseHandle, error) {
	if len(p.slots) == 0 {
		return nil, xerrors.New("iplease.Acquire", xerrors.KindNetworkResource, errNoSlots)
	}

	// Wake blocked waiters when ctx is cancelled.
	done := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()
	}
	defer close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, xerrors.New("iplease.Acquire", xerrors.KindNetworkResource, ctx.Err())
			default:
			}
		}
		if s := p.pickEligibleLocked(excludeIP); s != nil {
			s.inflight++
			s.lastUsedAt = time.Now()
			return &LeaseHandle{pool: p, slot: s}, nil
		}
		p.cond.Wait()
	}
}

// pickEligibleLocked implements round-robin-over-eligible-slots with the
// most-recently-used slot least preferred, called with p.mu held.
func (p *Pool) pickEligibleLocked(excludeIP string) *slot {
	now := time.Now()
	n := len(p.slots)
	var fallback *slot // eligible but equal to excludeIP, used only if nothing else qualifies

	var best *slot
	var bestUsed time.Time
	for i := 0; i < n; i++ {
		idx := (p.rrCursor + i) % n
		s := p.slots[idx]
		if s.inflight >= p.perIPInflight || now.Before(s.cooldownUntil) {
			continue
		}
		if s.ip == excludeIP && excludeIP != "" {
			if fallback == nil {
				fallback = s
			}
			continue
		}
		if best == nil || s.lastUsedAt.Before(bestUsed) {
			best = s
			bestUsed = s.lastUsedAt
			p.rrCursor = (idx + 1) % n
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

func (p *Pool) release(s *slot, outcome Outcome) {
	p.mu.Lock()
	s.inflight--
	if s.inflight < 0 {
		s.inflight = 0
	}
	s.lastOutcome = outcome
	switch outcome {
	case RateLimited:
		s.cooldownUntil = time.Now().Add(p.cooldowns.RateLimited)
	case Timeout:
		s.cooldownUntil = time.Now().Add(p.cooldowns.Timeout)
	case NetworkError:
		s.cooldownUntil = time.Now().Add(p.cooldowns.Network)
	case Success:
		s.cooldownUntil = time.Time{}
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

type poolError string

func (e poolError) Error() string { return string(e) }

const errNoSlots = poolError("no IP slots configured for this pool")
