package stats

import (
	"github.com/shopspring/decimal"

	"gestor/internal/core"
)

// Direction of a period-over-period change.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Delta is the change between a current and a previous aggregate.
type Delta struct {
	Absolute  core.Money
	Percent   decimal.Decimal
	Direction Direction
}

// Compare computes current minus previous.
//
// The percentage is relative to the magnitude of the previous total. From a
// zero previous total it is 100 (or -100 when current is negative); two zero
// totals give 0. A zero change counts as an increase.
func Compare(current, previous AggregateResult) Delta {
	abs := current.Total.Sub(previous.Total)

	var pct decimal.Decimal
	switch {
	case !previous.Total.IsZero():
		pct = abs.Decimal().Div(previous.Total.Abs().Decimal()).Mul(hundred)
	case current.Total.IsNegative():
		pct = hundred.Neg()
	case !current.Total.IsZero():
		pct = hundred
	default:
		pct = decimal.Zero
	}

	dir := Increase
	if abs.IsNegative() {
		dir = Decrease
	}
	return Delta{Absolute: abs, Percent: pct, Direction: dir}
}
