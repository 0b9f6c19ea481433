// Package cache provides the bounded LRU that keeps recently used models
// resident in memory in front of the persistent store.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
)

// DefaultCapacity is the number of entries kept when no capacity is given
const DefaultCapacity = 3

// Loader fetches a value that is not resident. It runs without the cache
// lock held.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Observer receives cache events, e.g. to mirror them into metrics
type Observer interface {
	Hit()
	Miss()
	Evict()
	Size(n int)
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
}

type entry[V any] struct {
	key   string
	value V
}

// LRU is a bounded least-recently-used cache. One mutex guards the recency
// list and the index, so promote-and-return and evict-and-insert are
// atomic.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recently used
	items    map[string]*list.Element
	load     Loader[V]
	observer Observer

	hits      int64
	misses    int64
	evictions int64
}

// Option configures an LRU
type Option[V any] func(*LRU[V])

// WithObserver forwards cache events to o
func WithObserver[V any](o Observer) Option[V] {
	return func(c *LRU[V]) { c.observer = o }
}

// New creates an LRU holding at most capacity entries. A capacity below
// one falls back to DefaultCapacity. load is called on misses and may be
// nil, in which case Get only reports resident entries.
func New[V any](capacity int, load Loader[V], opts ...Option[V]) *LRU[V] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	c := &LRU[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		load:     load,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key. A hit promotes the entry. A miss calls the
// loader outside the lock. If another caller put the key while the load was
// in flight, the resident value is kept and returned and the loaded one is
// dropped.
func (c *LRU[V]) Get(ctx context.Context, key string) (V, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}

	var zero V
	if c.load == nil {
		return zero, errNotResident(key)
	}
	v, err := c.load(ctx, key)
	if err != nil {
		return zero, err
	}
	return c.insert(key, v, false), nil
}

// Peek returns a resident value, promoting it, without calling the loader.
// It counts as a hit or a miss.
func (c *LRU[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.order.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		if c.observer != nil {
			c.observer.Miss()
		}
		var zero V
		return zero, false
	}
	atomic.AddInt64(&c.hits, 1)
	if c.observer != nil {
		c.observer.Hit()
	}
	return el.Value.(*entry[V]).value, true
}

// Put stores value as the most recently used entry, replacing any prior
// entry for key and evicting the least recently used entry when full
func (c *LRU[V]) Put(key string, value V) {
	c.insert(key, value, true)
}

// insert stores value under key and returns the value now resident. When
// replace is false and key is already resident, the existing entry is
// promoted and returned unchanged.
func (c *LRU[V]) insert(key string, value V, replace bool) V {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		if !replace {
			c.order.MoveToFront(el)
			v := el.Value.(*entry[V]).value
			c.mu.Unlock()
			return v
		}
		c.order.Remove(el)
		delete(c.items, key)
	}
	evicted := false
	if c.order.Len() >= c.capacity {
		if last := c.order.Back(); last != nil {
			c.order.Remove(last)
			delete(c.items, last.Value.(*entry[V]).key)
			evicted = true
		}
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	size := c.order.Len()
	c.mu.Unlock()

	if evicted {
		atomic.AddInt64(&c.evictions, 1)
	}
	if c.observer != nil {
		if evicted {
			c.observer.Evict()
		}
		c.observer.Size(size)
	}
	return value
}

// Contains reports whether key is resident without touching recency
func (c *LRU[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Keys returns resident keys, most recently used first
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Len returns the number of resident entries
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries
func (c *LRU[V]) Capacity() int { return c.capacity }

// Stats returns the cache counters
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Entries:   c.Len(),
		Capacity:  c.capacity,
	}
}

// HitRate returns hits over lookups, or 0 before the first lookup
func (c *LRU[V]) HitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	total := hits + atomic.LoadInt64(&c.misses)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func errNotResident(key string) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeNotFound, "%q is not cached", key).
		WithDetail("key", key)
}
