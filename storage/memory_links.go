package storage

import (
	"context"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemoryLinkStorage struct {
	links []*Link
	mutex sync.RWMutex
}

func NewMemoryLinkStorage() *MemoryLinkStorage {
	return &MemoryLinkStorage{}
}

func (m *MemoryLinkStorage) Init(_ context.Context) error {
	return nil
}

func (m *MemoryLinkStorage) GetOrCreateLink(_ context.Context, callback *Callback) (*Link, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, link := range m.links {
		if sameTarget(link.Callback, callback) {
			return link, nil
		}
	}
	cb := *callback
	link := &Link{ID: primitive.NewObjectID().Hex(), Callback: &cb}
	m.links = append(m.links, link)
	return link, nil
}

func (m *MemoryLinkStorage) GetLink(_ context.Context, id string) (*Link, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, link := range m.links {
		if link.ID == id {
			return link, nil
		}
	}
	return nil, ErrNotFound
}

func sameTarget(a, b *Callback) bool {
	return a.ViewName == b.ViewName &&
		a.PageNum == b.PageNum &&
		reflect.DeepEqual(nilIfEmpty(a.ViewParams), nilIfEmpty(b.ViewParams)) &&
		reflect.DeepEqual(nilIfEmpty(a.Params), nilIfEmpty(b.Params))
}
