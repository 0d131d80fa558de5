// Package cache provides a TTL display cache in front of the catalog.
// It serves product reads for browsing only: stock reservation always goes
// to the repository, so checkout never acts on a stale stock value.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
)

type entry struct {
	product  domain.Product
	expireAt time.Time
}

type CatalogCache struct {
	catalog port.CatalogRepository
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[uuid.UUID]entry
}

func NewCatalogCache(catalog port.CatalogRepository, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		catalog: catalog,
		ttl:     ttl,
		entries: make(map[uuid.UUID]entry),
	}
}

// GetProduct serves from cache within the TTL, falling back to the repository.
func (c *CatalogCache) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	c.mu.RLock()
	cached, ok := c.entries[productID]
	c.mu.RUnlock()

	if ok && time.Now().Before(cached.expireAt) {
		return cached.product, nil
	}

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	c.entries[productID] = entry{product: product, expireAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return product, nil
}

// Invalidate drops a product from the cache, called on any stock or price
// mutation so display reads converge immediately.
func (c *CatalogCache) Invalidate(productID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, productID)
	c.mu.Unlock()
}

// AdjustStock forwards to the repository and invalidates the display entry.
func (c *CatalogCache) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	stock, err := c.catalog.AdjustStock(ctx, productID, delta)
	if err != nil {
		return 0, err
	}

	c.Invalidate(productID)

	return stock, nil
}
