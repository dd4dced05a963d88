package service

import (
	"hash/fnv"
	"sync"
)

const pairLockStripes = 64

// pairLocks serializes mutating operations per unordered user pair. Locks
// are striped over a fixed set of mutexes keyed by the pair key, so memory
// stays bounded no matter how many pairs are touched. Both directions of a
// pair hash to the same stripe because the pair key is normalized.
type pairLocks struct {
	stripes [pairLockStripes]sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{}
}

// Lock acquires the stripe for the pair key and returns the unlock func.
func (p *pairLocks) Lock(pairKey string) func() {
	stripe := &p.stripes[stripeIndex(pairKey)]
	stripe.Lock()
	return stripe.Unlock
}

func stripeIndex(pairKey string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(pairKey))
	return h.Sum32() % pairLockStripes
}
