package planner

import "sync"

// tripLocks hands out one mutex per trip id. Entries are dropped once no
// caller holds or waits for them.
type tripLocks struct {
	mu    sync.Mutex
	locks map[string]*tripLock
}

type tripLock struct {
	sync.Mutex
	refs int
}

func newTripLocks() *tripLocks {
	return &tripLocks{locks: map[string]*tripLock{}}
}

// lock blocks until the caller owns id and returns the matching unlock.
func (l *tripLocks) lock(id string) func() {
	l.mu.Lock()
	tl, ok := l.locks[id]
	if !ok {
		tl = &tripLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *tripLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
