package pureblind

import "time"

// SnapshotStore is the narrow persistence surface the route builder needs;
// satisfied by storage.JSONSnapshotStore.
type SnapshotStore interface {
	Save(name string, generatedAtUnixSecs int64, entries any) error
	Load(name string, ttl time.Duration, out any) (fresh bool, err error)
}

// Catalog is the persisted view of decoded pool accounts, refreshed on a
// TTL and reused across restarts.
type Catalog struct {
	Pools []DecodedPool
}

// Cache wraps a SnapshotStore with the pool/route catalog names and TTL
// pureblind uses, per spec.md §6's "configurable TTL invalidates stale
// snapshots on startup."
type Cache struct {
	Store SnapshotStore
	TTL   time.Duration
}

const poolCatalogName = "pool_catalog"
const routeCatalogName = "route_catalog"

// LoadPools returns the cached pool catalog if still fresh.
func (c *Cache) LoadPools() (Catalog, bool, error) {
	var cat Catalog
	fresh, err := c.Store.Load(poolCatalogName, c.TTL, &cat)
	return cat, fresh, err
}

// SavePools persists the pool catalog with generatedAtUnixSecs as its
// generation timestamp.
func (c *Cache) SavePools(cat Catalog, generatedAtUnixSecs int64) error {
	return c.Store.Save(poolCatalogName, generatedAtUnixSecs, cat)
}

// LoadRoutes returns the cached route catalog (built cycles) if fresh.
func (c *Cache) LoadRoutes(routes any) (bool, error) {
	return c.Store.Load(routeCatalogName, c.TTL, routes)
}

// SaveRoutes persists the route catalog.
func (c *Cache) SaveRoutes(routes any, generatedAtUnixSecs int64) error {
	return c.Store.Save(routeCatalogName, generatedAtUnixSecs, routes)
}
