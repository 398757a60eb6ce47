package cloudsync

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"countdowntodo-sync/internal/identity"
)

// DefaultMappingTTL is how long a resolved identifier is trusted before the
// table is fetched again.
const DefaultMappingTTL = 7 * 24 * time.Hour

// MappingCache resolves raw app identifiers on the device, refreshing the
// whole table from the server when it meets an identifier it does not hold.
// Unknown identifiers are cached with their fallback identity so they do not
// trigger a fetch on every lookup.
type MappingCache struct {
	client *Client

	mu  sync.Mutex
	lru *expirable.LRU[string, identity.Identity]
}

func NewMappingCache(client *Client, size int, ttl time.Duration) *MappingCache {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = DefaultMappingTTL
	}
	return &MappingCache{client: client, lru: expirable.NewLRU[string, identity.Identity](size, nil, ttl)}
}

// Refresh replaces the cached entries with the server's current table.
func (m *MappingCache) Refresh(ctx context.Context) (int, error) {
	ms, err := m.client.Mappings(ctx)
	if err != nil {
		return 0, err
	}
	table := identity.NewTable(ms)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	for _, mp := range ms {
		m.lru.Add(mp.AppID, table.Resolve(mp.AppID))
	}
	return table.Len(), nil
}

// Resolve never fails: when the server cannot be reached the fallback
// identity is returned without being cached.
func (m *MappingCache) Resolve(ctx context.Context, appID string) identity.Identity {
	if id, ok := m.lru.Get(appID); ok {
		return id
	}
	if _, err := m.Refresh(ctx); err != nil {
		return identity.Fallback(appID)
	}
	if id, ok := m.lru.Get(appID); ok {
		return id
	}
	id := identity.Fallback(appID)
	m.lru.Add(appID, id)
	return id
}
