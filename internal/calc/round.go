package calc

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v to places decimals, halves away from zero. NaN and
// infinities are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundInt rounds v to the nearest integer, halves away from zero.
func RoundInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

func roundFigure(f Figure, places int32) Figure {
	if !f.Defined {
		return f
	}
	return Defined(Round(f.Value, places))
}
