package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryLockStorage is an in-memory implementation of LockStorage, shared by locks of one process
type MemoryLockStorage struct {
	leases map[string]*Lease
	mutex  sync.Mutex
}

// NewMemoryLockStorage creates a new in-memory lock storage
func NewMemoryLockStorage() *MemoryLockStorage {
	return &MemoryLockStorage{
		leases: make(map[string]*Lease),
	}
}

func (m *MemoryLockStorage) Init(_ context.Context) error {
	return nil
}

func (m *MemoryLockStorage) AcquireLease(_ context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lease, ok := m.leases[key]
	if !ok {
		lease = &Lease{Key: key}
		m.leases[key] = lease
	}
	if lease.AcquiredAt != nil && !lease.AcquiredAt.Before(now.Add(-ttl)) {
		return false, nil
	}

	acquiredAt := now
	lease.LockID = lockID
	lease.AcquiredAt = &acquiredAt
	return true, nil
}

func (m *MemoryLockStorage) RenewLease(_ context.Context, key, lockID string, now time.Time) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lease, ok := m.leases[key]
	if !ok || lease.LockID != lockID {
		return false, nil
	}
	acquiredAt := now
	lease.AcquiredAt = &acquiredAt
	return true, nil
}

func (m *MemoryLockStorage) ReleaseLease(_ context.Context, key, lockID string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lease, ok := m.leases[key]
	if !ok || lease.LockID != lockID {
		return false, nil
	}
	delete(m.leases, key)
	return true, nil
}

// Lease returns a copy of the record for key
func (m *MemoryLockStorage) Lease(key string) (Lease, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lease, ok := m.leases[key]
	if !ok {
		return Lease{}, false
	}
	cc := *lease
	if lease.AcquiredAt != nil {
		at := *lease.AcquiredAt
		cc.AcquiredAt = &at
	}
	return cc, true
}
