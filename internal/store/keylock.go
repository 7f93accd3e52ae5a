package store

import (
	"context"
	"sync"
)

// KeyLocks hands out exclusive holds keyed by client ID. Holds on different
// keys never block each other. Entries are dropped once nobody holds or
// waits on them.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyLocks creates an empty KeyLocks.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[int64]*keyLock)}
}

// Lock blocks until key is exclusively held or ctx is done. The returned
// release func is safe to call more than once.
func (l *KeyLocks) Lock(ctx context.Context, key int64) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			l.unref(key, kl)
		})
	}, nil
}

func (l *KeyLocks) unref(key int64, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (l *KeyLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
