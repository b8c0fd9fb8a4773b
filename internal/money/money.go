// Package money provides a fixed-point money type used for wallet balances,
// table stacks and pot accounting. All amounts are integer cents so that
// arithmetic is exact and conservation invariants can be checked with ==.
package money

import (
	"fmt"
	"math"
)

// Cents is a monetary amount in hundredths of the base currency unit.
type Cents int64

// FromFloat converts a client-supplied decimal amount (e.g. 10.00) to Cents,
// rounding to the nearest cent.
func FromFloat(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// Float64 returns the amount as a decimal number for wire responses.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// String formats the amount with two decimal places.
func (c Cents) String() string {
	sign := ""
	v := c
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
