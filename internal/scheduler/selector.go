package scheduler

import (
	"math/rand"
	"sync"
)

// Selector picks one of n options. Implementations must be safe for
// concurrent use and return a value in [0, n) for n > 0.
type Selector interface {
	Pick(n int) int
}

// RandomSelector picks uniformly at random.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a RandomSelector. A fixed seed gives a
// reproducible sequence.
func NewRandomSelector(seed int64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

// Pick returns a random index in [0, n), or 0 when n <= 0.
func (s *RandomSelector) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// RoundRobin cycles through the options in order.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

// NewRoundRobin creates a RoundRobin starting at index 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Pick returns the next index modulo n, or 0 when n <= 0.
func (r *RoundRobin) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.next % n
	r.next = i + 1
	return i
}

var (
	_ Selector = (*RandomSelector)(nil)
	_ Selector = (*RoundRobin)(nil)
)
