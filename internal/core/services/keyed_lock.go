package services

import (
	"context"
	"sync"
)

// keyedLock is a set of context-aware mutexes created on demand per key.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*keyedEntry)}
}

// acquire blocks until key is free or ctx is done.
func (k *keyedLock) acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.drop(key, e)
		return ctx.Err()
	}
}

// release frees key. Releasing a key that is not held is a no-op.
func (k *keyedLock) release(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.ch:
		k.drop(key, e)
	default:
	}
}

func (k *keyedLock) drop(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}
