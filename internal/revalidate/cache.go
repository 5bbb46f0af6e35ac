package revalidate

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ViewCache is an LRU cache with TTL for rendered read views, keyed by
// route path plus query. Concurrent misses for one key load once.
type ViewCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	// gen is bumped on every invalidation. Loads started before it are
	// neither shared with later callers nor stored.
	gen   uint64
	group singleflight.Group
	now   func() time.Time
}

type cacheItem struct {
	key       string
	data      []byte
	expiresAt time.Time
}

func NewViewCache(maxSize int, ttl time.Duration) *ViewCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ViewCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

func (c *ViewCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return nil, false
	}

	item := elem.Value.(*cacheItem)
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *ViewCache) setLocked(key string, data []byte) {
	item := &cacheItem{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// GetOrLoad returns the cached view for key, calling load on a miss. A
// failed load is returned to every waiter and never cached. Callers only
// share a load started in the same invalidation generation.
func (c *ViewCache) GetOrLoad(key string, load func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (interface{}, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.setLocked(key, data)
		}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// DeletePrefix drops every entry whose key starts with prefix and returns
// how many were removed.
func (c *ViewCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if strings.HasPrefix(elem.Value.(*cacheItem).key, prefix) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

func (c *ViewCache) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns the count removed.
func (c *ViewCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// StartCleanup runs CleanExpired every interval until the returned stop
// function is called.
func (c *ViewCache) StartCleanup(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = c.ttl
	}
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}

func (c *ViewCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
