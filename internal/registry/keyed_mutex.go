package registry

import (
	"sync"

	"zkregistry/internal/merkle"
)

// keyedMutex serializes work per identity while letting distinct
// identities proceed concurrently. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[merkle.Hash]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[merkle.Hash]*refLock)}
}

func (k *keyedMutex) Lock(key merkle.Hash) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
