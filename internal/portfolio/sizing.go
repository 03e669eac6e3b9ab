package portfolio

import "math"

// Sizer converts available cash and a target price into an order quantity.
// It is pluggable so the sizing rule can change without touching the
// signal-handling state machine.
type Sizer interface {
	Quantity(cash, price float64) float64
}

// CashQuantitySizer spends the whole available cash balance at the target
// price, truncated to a whole number of shares.
type CashQuantitySizer struct{}

// Quantity returns floor(cash/price), or 0 when the price is not positive.
func (CashQuantitySizer) Quantity(cash, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Floor(cash / price)
}
