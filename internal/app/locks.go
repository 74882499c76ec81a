package app

import (
	"sync"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// roomLocks hands out one mutex per room so read-modify-write cycles
// against the store never interleave within this process. Entries are
// refcounted and dropped once the last holder releases, since rooms are
// ephemeral.
type roomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[domain.RoomID]*roomLock)}
}

func (l *roomLocks) lock(id domain.RoomID) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &roomLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
