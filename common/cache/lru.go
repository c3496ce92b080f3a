/*
	LRU Cache package

	Based off information obtained from:

	https://girai.dev/blog/lru-cache-implementation-in-go/
	https://en.wikipedia.org/wiki/Cache_replacement_policies#Least_recently_used_(LRU)
*/

package cache

import (
	"container/list"
	"sync"
)

// LRU is a concurrency-safe least recently used cache
type LRU[K comparable, V any] struct {
	Cap   uint64
	l     *list.List
	items map[K]*list.Element
	m     sync.Mutex
}

type item[K comparable, V any] struct {
	key   K
	value V
}

// New returns a new concurrency-safe LRU cache with input capacity
func New[K comparable, V any](capacity uint64) *LRU[K, V] {
	return &LRU[K, V]{
		Cap:   capacity,
		l:     list.New(),
		items: make(map[K]*list.Element),
	}
}

// Add adds a value to the cache
func (l *LRU[K, V]) Add(key K, value V) {
	l.m.Lock()
	l.add(key, value)
	l.m.Unlock()
}

func (l *LRU[K, V]) add(key K, value V) {
	if f, o := l.items[key]; o {
		l.l.MoveToFront(f)
		f.Value.(*item[K, V]).value = value
		return
	}
	l.items[key] = l.l.PushFront(&item[K, V]{key, value})
	if uint64(l.l.Len()) > l.Cap { //nolint:gosec // list length is never negative
		l.removeOldestEntry()
	}
}

// Get returns keys value from cache if found
func (l *LRU[K, V]) Get(key K) (value V, found bool) {
	l.m.Lock()
	defer l.m.Unlock()
	if i, f := l.items[key]; f {
		l.l.MoveToFront(i)
		return i.Value.(*item[K, V]).value, true
	}
	return value, false
}

// Peek returns keys value without updating its recency
func (l *LRU[K, V]) Peek(key K) (value V, found bool) {
	l.m.Lock()
	defer l.m.Unlock()
	if i, f := l.items[key]; f {
		return i.Value.(*item[K, V]).value, true
	}
	return value, false
}

// Swap stores value under key and returns the previous value if one existed
func (l *LRU[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	l.m.Lock()
	defer l.m.Unlock()
	if i, f := l.items[key]; f {
		previous, loaded = i.Value.(*item[K, V]).value, true
	}
	l.add(key, value)
	return previous, loaded
}

// Contains check if key is in cache this does not update LRU
func (l *LRU[K, V]) Contains(key K) bool {
	l.m.Lock()
	_, f := l.items[key]
	l.m.Unlock()
	return f
}

// Keys returns the keys in the cache from newest to oldest
func (l *LRU[K, V]) Keys() []K {
	l.m.Lock()
	defer l.m.Unlock()
	keys := make([]K, 0, l.l.Len())
	for e := l.l.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*item[K, V]).key)
	}
	return keys
}

// Remove removes key from the cache, if the key was removed.
func (l *LRU[K, V]) Remove(key K) bool {
	l.m.Lock()
	defer l.m.Unlock()
	if i, f := l.items[key]; f {
		l.removeElement(i)
		return true
	}
	return false
}

// Clear is used to completely clear the cache.
func (l *LRU[K, V]) Clear() {
	l.m.Lock()
	clear(l.items)
	l.l.Init()
	l.m.Unlock()
}

// Len returns length of l
func (l *LRU[K, V]) Len() uint64 {
	l.m.Lock()
	defer l.m.Unlock()
	return uint64(l.l.Len()) //nolint:gosec // list length is never negative
}

// removeOldestEntry removes the oldest item from the cache.
func (l *LRU[K, V]) removeOldestEntry() {
	if i := l.l.Back(); i != nil {
		l.removeElement(i)
	}
}

// removeElement element from the cache
func (l *LRU[K, V]) removeElement(e *list.Element) {
	l.l.Remove(e)
	delete(l.items, e.Value.(*item[K, V]).key)
}
