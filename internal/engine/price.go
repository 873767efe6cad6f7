package engine

import "github.com/shopspring/decimal"

// Price arithmetic goes through decimal: 2654.6-2653.1 must be exactly 1.5.

func dec(x float64) decimal.Decimal { return decimal.NewFromFloat(x) }

func sub(a, b float64) float64 {
	f, _ := dec(a).Sub(dec(b)).Float64()
	return f
}

func mid(high, low float64) decimal.Decimal {
	return dec(high).Add(dec(low)).Div(decimal.NewFromInt(2))
}

// ticks returns x expressed in whole ticks, rounded half away from zero.
func ticks(x decimal.Decimal, tick float64) int64 {
	if tick <= 0 {
		if x.IsZero() {
			return 0
		}
		return 1
	}
	return x.Div(dec(tick)).Round(0).IntPart()
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
