package storage

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MemoryCacheStorage is an in-memory implementation of CacheStorage
type MemoryCacheStorage struct {
	entries map[string]CacheEntry
	mutex   sync.RWMutex
}

func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{
		entries: make(map[string]CacheEntry),
	}
}

func (m *MemoryCacheStorage) Init(_ context.Context) error {
	return nil
}

func (m *MemoryCacheStorage) GetCache(_ context.Context, key string) (*CacheEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, ok := m.entries[key]
	if !ok || !entry.IsValid(time.Now()) {
		return nil, ErrNotFound
	}
	entry.Data = maps.Clone(entry.Data)
	return &entry, nil
}

func (m *MemoryCacheStorage) SetCache(_ context.Context, entry *CacheEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cc := *entry
	cc.Data = maps.Clone(entry.Data)
	m.entries[entry.Key] = cc
	return nil
}
