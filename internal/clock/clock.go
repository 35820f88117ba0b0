// Package clock supplies the current time to report code so that window
// resolution can be driven from tests.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock in UTC.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time {
	return c.T
}

// NewReal returns the system clock.
func NewReal() Clock {
	return Real{}
}

// NewFixed returns a Clock frozen at t.
func NewFixed(t time.Time) Clock {
	return Fixed{T: t}
}
