package services

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// stripedLock maps keys onto a fixed set of mutexes so memory stays bounded
// no matter how many requests or wallets are touched. Distinct keys may share
// a stripe; that only serializes them.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%lockStripes]
}
