package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores short-lived string values such as generated chat replies.
type Cache interface {
	// Get returns the value and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores val under key. A ttl <= 0 keeps the entry until Close.
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Close() error
}

type memoryItem struct {
	val     string
	expires time.Time
}

// Memory is the in-process Cache. A janitor goroutine drops expired entries
// every purge interval so abandoned keys do not accumulate.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time

	purgeInterval time.Duration
	janitorStop   chan struct{}
	janitorWG     sync.WaitGroup
	closeOnce     sync.Once
}

func NewMemory(purgeInterval time.Duration) *Memory {
	m := &Memory{
		items:         make(map[string]memoryItem),
		now:           time.Now,
		purgeInterval: purgeInterval,
		janitorStop:   make(chan struct{}),
	}
	m.startJanitor()
	return m
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if m.expired(it, m.now()) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && m.expired(cur, m.now()) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return it.val, true, nil
}

func (m *Memory) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	it := memoryItem{val: val}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the janitor goroutine.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.janitorStop)
		m.janitorWG.Wait()
	})
	return nil
}

func (m *Memory) startJanitor() {
	interval := m.purgeInterval
	if interval <= 0 {
		interval = time.Minute
	}
	m.janitorWG.Add(1)
	ticker := time.NewTicker(interval)
	go func() {
		defer m.janitorWG.Done()
		for {
			select {
			case <-ticker.C:
				m.purgeExpired()
			case <-m.janitorStop:
				ticker.Stop()
				return
			}
		}
	}()
}

func (m *Memory) purgeExpired() int {
	now := m.now()
	removed := 0
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, it := range m.items {
		if m.expired(it, now) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) expired(it memoryItem, now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}
