package cache

import (
	"sync"
	"time"
)

// MemCache is the in-process hot tier in front of the unread store. It
// holds recently touched unread records and per-user badge counters, with
// optional TTL expiry. A background cleanup goroutine runs when
// NewMemCache is given a positive cleanupInterval.
type MemCache struct {
	items sync.Map
	stop  chan struct{}
	wg    sync.WaitGroup
}

type item struct {
	mu         sync.Mutex
	value      any
	expiration int64 // unix nano; 0 means no expiration
}

func NewMemCache(cleanupInterval time.Duration) *MemCache {
	m := &MemCache{
		stop: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			defer m.wg.Done()
			for {
				select {
				case <-ticker.C:
					m.cleanup()
				case <-m.stop:
					return
				}
			}
		}()
	}
	return m
}

func (m *MemCache) Set(key string, value any, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	m.items.Store(key, &item{
		value:      value,
		expiration: exp,
	})
}

func (m *MemCache) Get(key string) (any, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.isExpired() {
		m.items.Delete(key)
		return nil, false
	}
	return it.value, true
}

// Increment adds delta (which may be negative) to the int64 counter at key
// and reports whether a live counter existed. A missing or expired counter
// is left alone: counters are seeded by whoever computes the authoritative
// value, and expiry forces a reseed rather than counting from a stale
// baseline.
func (m *MemCache) Increment(key string, delta int64) (int64, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return 0, false
	}
	it := v.(*item)

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.isExpired() {
		m.items.Delete(key)
		return 0, false
	}
	n, ok := it.value.(int64)
	if !ok {
		return 0, false
	}
	n += delta
	it.value = n
	return n, true
}

func (m *MemCache) Close() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	m.wg.Wait()
}

func (it *item) isExpired() bool {
	if it == nil || it.expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > it.expiration
}

func (m *MemCache) cleanup() {
	now := time.Now().UnixNano()
	m.items.Range(func(k, v any) bool {
		it := v.(*item)
		if it.expiration != 0 && now > it.expiration {
			m.items.Delete(k)
		}
		return true
	})
}
