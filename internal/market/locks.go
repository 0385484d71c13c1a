package market

import "sync"

// userLocks serializes work per user instead of behind one global lock.
// Entries are dropped once nobody holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

// Lock blocks until userID's lock is held.
func (l *userLocks) Lock(userID int64) {
	l.mu.Lock()
	ul := l.locks[userID]
	if ul == nil {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
}

func (l *userLocks) Unlock(userID int64) {
	l.mu.Lock()
	ul := l.locks[userID]
	if ul == nil {
		l.mu.Unlock()
		return
	}
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()

	ul.mu.Unlock()
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
