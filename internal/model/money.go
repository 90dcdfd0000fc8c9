package model

import (
	"fmt"
	"math"
)

// Cents is a monetary amount in integer cents. All amount comparisons and
// arithmetic in the app happen in cents so that floating-point drift can
// never split or merge a penny.
type Cents int64

// CentsFromFloat converts a decimal amount (e.g. 12.50) to cents, rounding
// half away from zero.
func CentsFromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// Float returns the decimal value of the amount.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// String renders the amount as a plain decimal, e.g. "12.50" or "-0.07".
func (c Cents) String() string {
	sign := ""
	v := c
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// WithinOneCent reports whether two amounts differ by at most one cent.
func (c Cents) WithinOneCent(other Cents) bool {
	d := c - other
	if d < 0 {
		d = -d
	}
	return d <= 1
}
