package valuation

import "math"

const (
	// MonthlyDiscountRate is the forced-sale opportunity cost per month
	MonthlyDiscountRate = 0.0150

	// LiquidationHorizonMonths is the typical time to sell at market value
	LiquidationHorizonMonths = 24
)

var liquidityFactor = 1 / math.Pow(1+MonthlyDiscountRate, LiquidationHorizonMonths)

// LiquidityFactor returns the compound discount 1/(1+i)^n. It is the same
// for every valuation.
func LiquidityFactor() float64 {
	return liquidityFactor
}

// LiquidityDiscountPercent is the share of market value lost in a forced sale
func LiquidityDiscountPercent() float64 {
	return (1 - liquidityFactor) * 100
}

// LiquidationValue applies the liquidity factor to a market value
func LiquidationValue(marketValue float64) float64 {
	return marketValue * liquidityFactor
}

// ReferenceArea is the area the unit price is multiplied by: built area for
// urban properties that declare one, total area otherwise.
func ReferenceArea(category Category, totalArea, builtArea float64) float64 {
	if category == CategoryUrban && builtArea > 0 {
		return builtArea
	}
	return totalArea
}

// SubjectReferenceArea is ReferenceArea applied to a subject
func SubjectReferenceArea(s SubjectProperty) float64 {
	return ReferenceArea(s.Category, s.TotalArea, s.BuiltArea)
}

// MarketValue multiplies the mean adjusted unit price by the reference area
func MarketValue(meanUnitPrice, referenceArea float64) float64 {
	return meanUnitPrice * referenceArea
}
