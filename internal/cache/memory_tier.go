package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/tensorline/tensorline-backend/pkg/kv"
)

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// memoryTier is the bounded in-process tier. Eviction is strictly
// insertion-order: when full, the oldest-inserted entry goes first,
// regardless of how recently it was read. Re-setting an existing key
// refreshes its insertion slot. TTL is evaluated lazily on reads; there is
// no background sweeper.
type memoryTier struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = oldest inserted
}

func newMemoryTier(maxSize int) *memoryTier {
	return &memoryTier{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (t *memoryTier) get(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		t.removeLocked(elem)
		return nil, false
	}
	return entry.value, true
}

func (t *memoryTier) set(key string, value []byte, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.entries[key]; ok {
		t.removeLocked(elem)
	} else if t.order.Len() >= t.maxSize {
		if oldest := t.order.Front(); oldest != nil {
			t.removeLocked(oldest)
		}
	}

	entry := &memoryEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	t.entries[key] = t.order.PushBack(entry)
}

func (t *memoryTier) has(key string) bool {
	_, ok := t.get(key)
	return ok
}

func (t *memoryTier) delete(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.entries[key]
	if !ok {
		return false
	}
	t.removeLocked(elem)
	return true
}

func (t *memoryTier) deletePattern(pattern string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []*list.Element
	for key, elem := range t.entries {
		if kv.MatchPattern(pattern, key) {
			removed = append(removed, elem)
		}
	}
	for _, elem := range removed {
		t.removeLocked(elem)
	}
	return len(removed)
}

func (t *memoryTier) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]*list.Element)
	t.order.Init()
}

func (t *memoryTier) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

func (t *memoryTier) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	delete(t.entries, entry.key)
	t.order.Remove(elem)
}
