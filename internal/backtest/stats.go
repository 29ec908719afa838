package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// EquityPoint is one end-of-day row of the equity curve.
type EquityPoint struct {
	Time      time.Time `csv:"time"`
	Portfolio float64   `csv:"portfolio_value"`
	Benchmark float64   `csv:"benchmark"`
	Cash      float64   `csv:"cash"`
	Shares    int       `csv:"shares"`
}

type Stats struct {
	Days           int
	StartValue     float64
	EndValue       float64
	TotalReturn    float64 // fraction
	BenchmarkEnd   float64
	BenchmarkRet   float64
	Sharpe         float64 // annualized over 252 trading days
	Sortino        float64
	MaxDrawdown    float64 // fraction of the running peak
	BenchmarkMaxDD float64
}

// ComputeStats summarizes the curve. Fewer than two points yields zero ratios.
func ComputeStats(curve []EquityPoint) Stats {
	var s Stats
	s.Days = len(curve)
	if len(curve) == 0 {
		return s
	}
	first, last := curve[0], curve[len(curve)-1]
	s.StartValue, s.EndValue = first.Portfolio, last.Portfolio
	s.BenchmarkEnd = last.Benchmark
	s.TotalReturn = change(first.Portfolio, last.Portfolio)
	s.BenchmarkRet = change(first.Benchmark, last.Benchmark)

	portfolio := make([]float64, len(curve))
	bench := make([]float64, len(curve))
	for i, p := range curve {
		portfolio[i], bench[i] = p.Portfolio, p.Benchmark
	}
	s.MaxDrawdown = maxDrawdown(portfolio)
	s.BenchmarkMaxDD = maxDrawdown(bench)

	returns := dailyReturns(portfolio)
	if len(returns) < 2 {
		return s
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std > 0 {
		s.Sharpe = mean / std * math.Sqrt(252)
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 1 {
		if _, dstd := stat.MeanStdDev(downside, nil); dstd > 0 {
			s.Sortino = mean / dstd * math.Sqrt(252)
		}
	}
	return s
}

func dailyReturns(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

func maxDrawdown(values []float64) float64 {
	peak, dd := math.Inf(-1), 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if d := (peak - v) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd
}

func change(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return to/from - 1
}
