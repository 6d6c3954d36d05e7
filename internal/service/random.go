package service

import (
	"fmt"
	"math/rand/v2"
	"sync"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
)

// MaxGenerated caps one Simulate or GenerateMockOrders call.
const MaxGenerated = 1000

func checkCount(n int) error {
	if n < 1 || n > MaxGenerated {
		return appErrors.NewInvalidField("count", fmt.Sprintf("must be between 1 and %d", MaxGenerated))
	}
	return nil
}

// Rand is a goroutine safe source for the record generators.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Between returns an int in [lo, hi].
func (r *Rand) Between(lo, hi int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.IntN(hi-lo+1)
}

// Float returns a float64 in [lo, hi).
func (r *Rand) Float(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.Float64()*(hi-lo)
}

func (r *Rand) Pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[r.Between(0, len(pool)-1)]
}
