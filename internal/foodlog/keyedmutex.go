package foodlog

import (
	"sort"
	"sync"
)

// keyedMutex serializes work per entry id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock acquires every key in sorted order and returns a func releasing them.
func (k *keyedMutex) Lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]string, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &refLock{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.Lock()
		held = append(held, key)
	}

	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		for i := len(held) - 1; i >= 0; i-- {
			l := k.locks[held[i]]
			l.Unlock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, held[i])
			}
		}
	}
}
