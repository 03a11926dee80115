package storage

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStorage is an in-memory implementation of UserStorage
type MemoryStorage struct {
	users map[int64][]byte
	mutex sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64][]byte),
	}
}

func (m *MemoryStorage) Init(_ context.Context) error {
	return nil
}

func (m *MemoryStorage) GetOrCreateUser(_ context.Context, profile Profile) (*User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	user := &User{}
	if raw, ok := m.users[profile.UserID]; ok {
		if err := bson.Unmarshal(raw, user); err != nil {
			return nil, err
		}
	} else {
		user.UserId = profile.UserID
	}
	user.UserName = profile.UserName
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName
	user.normalize()

	if err := m.store(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *MemoryStorage) SaveUser(_ context.Context, user *User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.users[user.UserId]; !ok {
		return ErrNotFound
	}
	return m.store(user)
}

// GetUser returns a stored copy of the user, used to inspect state from outside a dispatch
func (m *MemoryStorage) GetUser(userId int64) (*User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	raw, ok := m.users[userId]
	if !ok {
		return nil, ErrNotFound
	}
	user := &User{}
	if err := bson.Unmarshal(raw, user); err != nil {
		return nil, err
	}
	user.normalize()
	return user, nil
}

// store keeps users encoded so callers never share pointers with the stored copy
func (m *MemoryStorage) store(user *User) error {
	raw, err := bson.Marshal(user)
	if err != nil {
		return err
	}
	m.users[user.UserId] = raw
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
