package service

import (
	"hash/maphash"
	"sync"
)

const memberLockStripes = 64

// memberLocks serialises read-modify-write cycles per member inside this
// process. Members hash onto a fixed set of stripes.
type memberLocks struct {
	seed    maphash.Seed
	stripes [memberLockStripes]sync.Mutex
}

func newMemberLocks() *memberLocks {
	return &memberLocks{seed: maphash.MakeSeed()}
}

// lock locks the stripe of memberID and returns its unlock func.
func (l *memberLocks) lock(memberID string) func() {
	m := &l.stripes[maphash.String(l.seed, memberID)%memberLockStripes]
	m.Lock()
	return m.Unlock
}
