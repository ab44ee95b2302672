package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zcheck/blogpipe/internal/post"
)

var (
	ErrNotFound = errors.New("post not found")
)

// MemoryRepo keeps posts in process memory, keyed by slug. Used by tests and
// by the server when no MongoDB URI is configured.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*post.Post
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*post.Post), now: time.Now}
}

// Upsert creates or replaces the post stored under p.Slug.
func (m *MemoryRepo) Upsert(_ context.Context, p *post.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.UpdatedAt = m.now()
	m.store[p.Slug] = &cp
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, slug string) (*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[slug]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns every post, newest first.
func (m *MemoryRepo) List(_ context.Context) ([]*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*post.Post, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].Slug < out[j].Slug
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[slug]; !ok {
		return ErrNotFound
	}
	delete(m.store, slug)
	return nil
}
