package domain

import "fmt"

// MicroUSD represents monetary values in millionths of a US dollar.
// Token prices are fractions of a cent, so cost accounting keeps integer
// micro-units end to end and only formats at the edges.
type MicroUSD int64

// MicrosPerDollar is the number of micro-units in one dollar.
const MicrosPerDollar = 1_000_000

// String formats the amount as dollars with six decimals (e.g., 2800 → "$0.002800").
func (m MicroUSD) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%06d", sign, v/MicrosPerDollar, v%MicrosPerDollar)
}

// IsZero returns true if the amount is zero.
func (m MicroUSD) IsZero() bool { return m == 0 }

// Add returns the sum of two amounts.
func (m MicroUSD) Add(x MicroUSD) MicroUSD { return m + x }
