// Package iplease implements the IP lease pool: round-robin allocation of
// source IPs to outbound tasks under per-IP inflight caps and outcome-keyed
// cooldowns, grounded on the teacher's rate.Limiter-gated HTTP client
// (internal/adapters/polymarket/client.go) generalized from one shared
// limiter to N independently-cooled slots.
package iplease

import "sync"

// Outcome tags how an outbound request bound to a lease concluded. Recorded
// on Release to bias future slot selection.
type Outcome int

const (
	Success Outcome = iota
	RateLimited
	Timeout
	NetworkError
)

// TaskKind distinguishes the two legs of a round trip for lease-exclusion
// purposes (acquire_excluding spreads legs across different IPs).
type TaskKind int

const (
	QuoteBuy TaskKind = iota
	QuoteSell
	SwapInstructions
	LandingSubmit
)

// LeaseHandle grants the bearer exclusive use of one source IP slot for one
// outbound request. There is no destructor in Go, so callers must call
// Release exactly once — typically via defer immediately after Acquire
// returns, mirroring the scope-guard pattern spec.md §9 calls for in
// languages without deterministic destructors.
type LeaseHandle struct {
	pool     *Pool
	slot     *slot
	released bool
	mu       sync.Mutex
}

// IP returns the source IP bound to this lease.
func (h *LeaseHandle) IP() string { return h.slot.ip }

// Release returns the slot to the pool and records outcome for future
// cooldown/selection decisions. Safe to call more than once; only the first
// call has effect.
func (h *LeaseHandle) Release(outcome Outcome) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()
	h.pool.release(h.slot, outcome)
}
