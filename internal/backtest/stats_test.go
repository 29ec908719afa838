package backtest

import (
	"math"
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	day := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	values := []float64{100, 110, 99, 120}
	bench := []float64{100, 100, 90, 95}
	curve := make([]EquityPoint, len(values))
	for i := range values {
		curve[i] = EquityPoint{Time: day.AddDate(0, 0, i), Portfolio: values[i], Benchmark: bench[i]}
	}

	s := ComputeStats(curve)
	if s.Days != 4 || s.StartValue != 100 || s.EndValue != 120 {
		t.Fatalf("stats = %+v", s)
	}
	if math.Abs(s.TotalReturn-0.2) > 1e-9 {
		t.Fatalf("total return = %v", s.TotalReturn)
	}
	if math.Abs(s.MaxDrawdown-0.1) > 1e-9 {
		t.Fatalf("max drawdown = %v", s.MaxDrawdown)
	}
	if math.Abs(s.BenchmarkMaxDD-0.1) > 1e-9 || math.Abs(s.BenchmarkRet+0.05) > 1e-9 {
		t.Fatalf("benchmark stats = %+v", s)
	}
	if s.Sharpe <= 0 {
		t.Fatalf("sharpe = %v", s.Sharpe)
	}
}

func TestComputeStatsShortCurve(t *testing.T) {
	if s := ComputeStats(nil); s.Days != 0 || s.Sharpe != 0 {
		t.Fatalf("stats = %+v", s)
	}
	s := ComputeStats([]EquityPoint{{Portfolio: 100, Benchmark: 100}})
	if s.Sharpe != 0 || s.MaxDrawdown != 0 {
		t.Fatalf("stats = %+v", s)
	}
}
