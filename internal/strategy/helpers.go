package strategy

import "github.com/shopspring/decimal"

// small helpers shared across the strategy package

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// roundToIncrement snaps p to the nearest multiple of inc, half to even.
func roundToIncrement(p, inc decimal.Decimal) decimal.Decimal {
	if !inc.IsPositive() {
		return p
	}
	return p.Div(inc).RoundBank(0).Mul(inc)
}

// contractValue is multiplier × strike × |qty|.
func contractValue(strike decimal.Decimal, qty, multiplier int) decimal.Decimal {
	return strike.Mul(decimal.NewFromInt(int64(absInt(qty) * multiplier)))
}
