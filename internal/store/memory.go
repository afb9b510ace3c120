// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/FairForge/kvbench/internal/models"
)

// FaultFunc decides whether a request fails. Returning nil lets it through.
type FaultFunc func(op, key string) error

type version struct {
	item      models.BenchmarkItem
	deleted   bool
	visibleAt time.Time
}

// MemoryStore is an in-process Store. Every write becomes visible to reads
// only after the configured lag, which models an eventually consistent table.
type MemoryStore struct {
	mu       sync.Mutex
	versions map[string][]version
	deleted  []string
	lag      time.Duration
	now      func() time.Time
	fault    FaultFunc
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithLag delays the visibility of writes and deletes
func WithLag(lag time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		m.lag = lag
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// WithFault injects request failures
func WithFault(fn FaultFunc) MemoryOption {
	return func(m *MemoryStore) {
		m.fault = fn
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		versions: make(map[string][]version),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetFault replaces the fault hook
func (m *MemoryStore) SetFault(fn FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *MemoryStore) check(op, key string) error {
	if m.fault == nil {
		return nil
	}
	if err := m.fault(op, key); err != nil {
		return &StoreError{Op: op, Key: key, Err: err}
	}
	return nil
}

// visible returns the newest version readers can observe and compacts the
// versions it supersedes. A key whose only remaining version is a visible
// tombstone is dropped. Callers hold m.mu.
func (m *MemoryStore) visible(key string, now time.Time) (version, bool) {
	vs := m.versions[key]
	idx := -1
	for i := len(vs) - 1; i >= 0; i-- {
		if !vs[i].visibleAt.After(now) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return version{}, false
	}
	if idx == len(vs)-1 && vs[idx].deleted {
		delete(m.versions, key)
		return vs[idx], true
	}
	if idx > 0 {
		m.versions[key] = vs[idx:]
	}
	return vs[idx], true
}

// sweep drops the keys of tombstones that became visible. Tombstones are
// queued in visibility order, so the sweep stops at the first pending one.
// Callers hold m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	n := 0
	for _, key := range m.deleted {
		vs := m.versions[key]
		if len(vs) > 0 && vs[len(vs)-1].visibleAt.After(now) {
			break
		}
		m.visible(key, now)
		n++
	}
	m.deleted = m.deleted[n:]
}

// Get returns the currently visible item under key
func (m *MemoryStore) Get(ctx context.Context, key string) (models.BenchmarkItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.BenchmarkItem{}, false, &StoreError{Op: OpGet, Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpGet, key); err != nil {
		return models.BenchmarkItem{}, false, err
	}

	v, ok := m.visible(key, m.now())
	if !ok || v.deleted {
		return models.BenchmarkItem{}, false, nil
	}
	return cloneItem(v.item), true, nil
}

// Put records a new version of the item
func (m *MemoryStore) Put(ctx context.Context, item models.BenchmarkItem) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: OpPut, Key: item.ID, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpPut, item.ID); err != nil {
		return err
	}

	m.versions[item.ID] = append(m.versions[item.ID], version{
		item:      cloneItem(item),
		visibleAt: m.now().Add(m.lag),
	})
	return nil
}

// Delete records a tombstone for key
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: OpDelete, Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpDelete, key); err != nil {
		return err
	}

	now := m.now()
	m.sweep(now)
	if _, ok := m.versions[key]; !ok {
		return nil
	}
	m.versions[key] = append(m.versions[key], version{
		deleted:   true,
		visibleAt: now.Add(m.lag),
	})
	m.deleted = append(m.deleted, key)
	return nil
}

// ScanKeys returns up to limit visible keys in lexical order
func (m *MemoryStore) ScanKeys(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: OpScan, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpScan, ""); err != nil {
		return nil, err
	}

	now := m.now()
	keys := make([]string, 0, len(m.versions))
	for key := range m.versions {
		if v, ok := m.visible(key, now); ok && !v.deleted {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// Len returns the number of visible items
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for key := range m.versions {
		if v, ok := m.visible(key, now); ok && !v.deleted {
			n++
		}
	}
	return n
}

func cloneItem(item models.BenchmarkItem) models.BenchmarkItem {
	out := models.BenchmarkItem{ID: item.ID}
	if item.Attributes != nil {
		out.Attributes = append([]models.Attribute(nil), item.Attributes...)
	}
	return out
}
