package service

import "sync"

// KeyedMutex provides one exclusive lock per entity id, so two concurrent
// status updates on the same document serialize instead of racing a stale
// read. A single instance per entity kind is shared by every service that
// mutates that kind; two services holding separate instances would not
// exclude each other. Locks are created on first use and kept for the
// process lifetime; the id space is small enough that this never matters.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the lock for id and returns the unlock function.
func (k *KeyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
