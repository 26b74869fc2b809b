// Package costing holds the moving-average cost rule shared by the stock
// ledger, the kardex recorder and the transfer workflow. Every average-cost
// recomputation in the codebase goes through WeightedAverage.
package costing

import "github.com/shopspring/decimal"

// WeightedAverage blends an incoming batch into the running per-unit cost.
//
//	newAvg = (prevQty*prevAvg + deltaQty*deltaCost) / (prevQty + deltaQty)
//
// When the resulting quantity is zero or negative the incoming unit cost is
// returned, so the first entry after a stock-out re-seeds the average.
// Exits and negative adjustments must not call this: removing stock never
// changes the weighted average.
func WeightedAverage(prevQty, prevAvg, deltaQty, deltaCost decimal.Decimal) decimal.Decimal {
	sum := prevQty.Add(deltaQty)
	if sum.LessThanOrEqual(decimal.Zero) {
		return deltaCost
	}
	num := prevQty.Mul(prevAvg).Add(deltaQty.Mul(deltaCost))
	return num.Div(sum)
}

// ExtendedCost returns qty * unitCost.
func ExtendedCost(qty, unitCost decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitCost)
}
