package session

import (
	"fmt"
	"math/rand"
	"sync"
)

// TEID allocation strategies.
const (
	StrategySequential = "sequential"
	StrategyRandom     = "random"
)

// TEIDAllocator hands out unique local control-plane TEIDs. TEID 0 is
// reserved by TS 29.274 and never allocated.
type TEIDAllocator struct {
	strategy string
	next     uint32
	used     map[uint32]bool
	mu       sync.Mutex
}

// NewTEIDAllocator creates an allocator starting from the given base value.
func NewTEIDAllocator(strategy string, start uint32) *TEIDAllocator {
	if start == 0 {
		start = 1
	}
	return &TEIDAllocator{
		strategy: strategy,
		next:     start,
		used:     make(map[uint32]bool),
	}
}

// Allocate returns a new unique TEID.
func (a *TEIDAllocator) Allocate() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.strategy {
	case StrategySequential:
		for attempts := 0; attempts < 1<<20; attempts++ {
			teid := a.next
			a.next++
			if a.next == 0 {
				a.next = 1
			}
			if teid != 0 && !a.used[teid] {
				a.used[teid] = true
				return teid, nil
			}
		}
		return 0, fmt.Errorf("sequential TEID allocation failed: too many collisions")
	case StrategyRandom:
		for attempts := 0; attempts < 10000; attempts++ {
			teid := rand.Uint32()
			if teid == 0 || a.used[teid] {
				continue
			}
			a.used[teid] = true
			return teid, nil
		}
		return 0, fmt.Errorf("random TEID allocation failed after 10000 attempts")
	default:
		return 0, fmt.Errorf("unknown TEID strategy: %s", a.strategy)
	}
}

// Release frees a TEID for reuse.
func (a *TEIDAllocator) Release(teid uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.used, teid)
}

// AllocatedCount returns the number of TEIDs currently in use.
func (a *TEIDAllocator) AllocatedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}
