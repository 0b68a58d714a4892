package txbuilder

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/ports"
)

// altEntry is one cached lookup-table resolution with a reference count.
// Acquire hands out copies of the resolution, so a later expiry or Store
// never changes a table an in-flight build already holds; nothing in this
// cache reads the count or evicts entries.
type altEntry struct {
	resolved   ports.LookupTableEntry
	resolvedAt time.Time
	refcount   int
}

// ALTCache is a TTL-bounded, reference-counted cache of resolved address
// lookup tables, grounded on internal/adapters/onchain/merge.go's
// gas-price TTL cache (cachedGasWei/gasUpdatedAt) generalized from one
// scalar to a keyed table.
type ALTCache struct {
	mu      sync.Mutex
	entries map[solana.PublicKey]*altEntry
	ttl     time.Duration
}

// NewALTCache builds a cache with the given TTL.
func NewALTCache(ttl time.Duration) *ALTCache {
	return &ALTCache{entries: make(map[solana.PublicKey]*altEntry), ttl: ttl}
}

// Acquire returns cached resolutions for keys that are still fresh, and the
// subset of keys that must be resolved via RPC. Each returned cached entry
// has its refcount incremented; callers must call Release with the full key
// list once the built transaction no longer needs them pinned.
func (c *ALTCache) Acquire(keys []solana.PublicKey, now time.Time) (fresh []ports.LookupTableEntry, missing []solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		e, ok := c.entries[k]
		if !ok || now.Sub(e.resolvedAt) > c.ttl || e.resolved.Deactivated {
			missing = append(missing, k)
			continue
		}
		e.refcount++
		fresh = append(fresh, e.resolved)
	}
	return fresh, missing
}

// Store writes freshly resolved entries into the cache with refcount 1,
// applying write-through-on-miss semantics.
func (c *ALTCache) Store(resolved []ports.LookupTableEntry, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resolved {
		c.entries[r.Key] = &altEntry{resolved: r, resolvedAt: now, refcount: 1}
	}
}

// Release decrements the refcount of every key a built transaction pinned.
// It never removes an entry: expired entries stay in the map until Store
// overwrites them.
func (c *ALTCache) Release(keys []solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok && e.refcount > 0 {
			e.refcount--
		}
	}
}
