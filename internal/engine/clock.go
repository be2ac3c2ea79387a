package engine

import "time"

// Clock abstracts wall time so the tick-driven state machines can be driven
// with synthetic time in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real clock.
func SystemClock() Clock { return systemClock{} }
