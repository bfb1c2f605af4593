package darkroom

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current instant and the randomness used to pick reveal
// delays. Tests pin both.
type Clock interface {
	Now() time.Time
	// Random returns a float in [0, 1).
	Random() float64
}

type systemClock struct{}

func (systemClock) Now() time.Time   { return time.Now().UTC() }
func (systemClock) Random() float64 { return rand.Float64() }

// SystemClock returns the wall clock backed by math/rand/v2.
func SystemClock() Clock {
	return systemClock{}
}
