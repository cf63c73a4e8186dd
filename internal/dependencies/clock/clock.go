package clock

import "time"

// Clock is the time source services stamp records with
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New returns the system clock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current UTC time at microsecond precision, the finest
// Postgres timestamps keep, so check-in order read back from any store
// matches the order the values were written in
func (RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
