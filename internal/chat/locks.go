package chat

import "sync"

// keyedLocks serializes mutations per entity id. Cross-entity operations must
// acquire the group lock before any message lock.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(id string) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// forget drops the entry for id. A goroutine still queued on the old mutex
// and a later caller on a fresh one can hold the critical section at the same
// time, so forget is only safe once the entity is durably deleted and every
// subsequent lookup fails with not-found.
func (k *keyedLocks) forget(id string) {
	k.mu.Lock()
	delete(k.locks, id)
	k.mu.Unlock()
}
