// Package kv is the namespaced key-value store behind the topic queue, the daily
// handoff record, published markers and the image usage manifest.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Store gets, puts and deletes values by namespace and key. A zero ttl never expires.
type Store interface {
	Get(ctx context.Context, ns, key string) ([]byte, error)
	Put(ctx context.Context, ns, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, ns, key string) error
}

// GetJSON decodes the value at ns/key into v.
func GetJSON(ctx context.Context, s Store, ns, key string, v any) error {
	b, err := s.Get(ctx, ns, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// PutJSON encodes v and stores it at ns/key.
func PutJSON(ctx context.Context, s Store, ns, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, ns, key, b, ttl)
}

type memEntry struct {
	val       []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node runs without Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memEntry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memEntry), now: time.Now}
}

func memKey(ns, key string) string { return ns + ":" + key }

func (m *MemoryStore) Get(_ context.Context, ns, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[memKey(ns, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.data, memKey(ns, key))
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.val...), nil
}

func (m *MemoryStore) Put(_ context.Context, ns, key string, val []byte, ttl time.Duration) error {
	e := memEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[memKey(ns, key)] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, ns, key string) error {
	m.mu.Lock()
	delete(m.data, memKey(ns, key))
	m.mu.Unlock()
	return nil
}
