package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type keyedEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// keyedLocks 每个 key 同时最多一个持有者，空闲的 key 会被回收
type keyedLocks struct {
	mu      sync.Mutex
	entries map[int64]*keyedEntry
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[int64]*keyedEntry)}
}

func (k *keyedLocks) ref(key int64) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *keyedLocks) unref(key int64, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Acquire 阻塞直到获得 key 或 ctx 结束
func (k *keyedLocks) Acquire(ctx context.Context, key int64) (func(), error) {
	e := k.ref(key)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		k.unref(key, e)
		return nil, err
	}
	return func() {
		e.sem.Release(1)
		k.unref(key, e)
	}, nil
}

// TryAcquire key 正被持有时立即返回 false
func (k *keyedLocks) TryAcquire(key int64) (func(), bool) {
	e := k.ref(key)
	if !e.sem.TryAcquire(1) {
		k.unref(key, e)
		return nil, false
	}
	return func() {
		e.sem.Release(1)
		k.unref(key, e)
	}, true
}
