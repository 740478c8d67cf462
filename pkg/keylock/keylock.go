// Package keylock provides mutexes addressed by string key, used to
// serialize per-user balance updates and per-transaction confirmation
// sequences within a single process.
package keylock

import (
	"sort"
	"sync"
)

// KeyedMutex hands out one mutex per key. Entries are kept for the
// lifetime of the process; the key space (users, transactions) is small
// enough that no eviction is needed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

// LockOrdered acquires the mutexes for all keys in sorted order so that
// two callers locking overlapping key sets cannot deadlock. Duplicate
// keys are locked once. It returns the function that releases them.
func (k *KeyedMutex) LockOrdered(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)

	for _, key := range uniq {
		k.Lock(key)
	}
	return func() {
		for i := len(uniq) - 1; i >= 0; i-- {
			k.Unlock(uniq[i])
		}
	}
}
