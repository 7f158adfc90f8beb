package curve

import "github.com/shopspring/decimal"

// realPrecision is the number of decimal digits kept by the real-valued
// helpers; results are truncated to 18 decimals afterwards.
const realPrecision = 30

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)
