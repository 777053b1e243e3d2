package storage

import (
	"hash/fnv"
	"sync"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const lockStripes = 64

// keyLocks serializes upserts of the same natural key within this process.
// Different keys may share a stripe, which only costs throughput.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

func (l *keyLocks) lock(key exam.NaturalKey) func() {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
