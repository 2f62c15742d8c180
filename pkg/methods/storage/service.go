// Package storage implements the storage.* leaf methods and the storage.Service
// capability they resolve from the DI container.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/morezero/method-pipe/pkg/di"
)

// Service persists JSON-compatible values per business namespace. An empty
// biz is the default namespace.
type Service interface {
	// SetItem stores value under (biz, key). A zero expiresAt never expires.
	SetItem(ctx context.Context, biz, key string, value interface{}, expiresAt time.Time) error
	// GetItem returns the value under (biz, key). Missing and expired items
	// report ok=false.
	GetItem(ctx context.Context, biz, key string) (value interface{}, ok bool, err error)
	// RemoveItem deletes (biz, key). Missing items are not an error.
	RemoveItem(ctx context.Context, biz, key string) error
}

// From resolves the Service bound in c.
func From(c *di.Container) (Service, bool) {
	return di.Resolve[Service](c)
}

// Expired reports whether an item with expiresAt is gone at now.
func Expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

type memoryItem struct {
	value     interface{}
	expiresAt time.Time
}

type memoryKey struct {
	biz string
	key string
}

// Memory is an in-process Service.
type Memory struct {
	mu    sync.RWMutex
	items map[memoryKey]memoryItem
	now   func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[memoryKey]memoryItem), now: time.Now}
}

// SetItem implements Service.
func (m *Memory) SetItem(_ context.Context, biz, key string, value interface{}, expiresAt time.Time) error {
	m.mu.Lock()
	m.items[memoryKey{biz, key}] = memoryItem{value: value, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

// GetItem implements Service. Expired items are evicted on read.
func (m *Memory) GetItem(_ context.Context, biz, key string) (interface{}, bool, error) {
	k := memoryKey{biz, key}
	m.mu.RLock()
	item, ok := m.items[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if Expired(item.expiresAt, m.now()) {
		m.mu.Lock()
		if cur, still := m.items[k]; still && Expired(cur.expiresAt, m.now()) {
			delete(m.items, k)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return item.value, true, nil
}

// RemoveItem implements Service.
func (m *Memory) RemoveItem(_ context.Context, biz, key string) error {
	m.mu.Lock()
	delete(m.items, memoryKey{biz, key})
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored items, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
