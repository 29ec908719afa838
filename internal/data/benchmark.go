package data

import (
	"time"

	"Options_Wheel/internal/plot"

	"github.com/shopspring/decimal"
)

const (
	ChartStrategyVsBenchmark = "Strategy vs Benchmark"
	SeriesPortfolio          = "Portfolio Value"
	SeriesBenchmark          = "Benchmark"
)

type BenchmarkState struct {
	LastClose decimal.Decimal // zero until the first close is seen
	Value     decimal.Decimal
}

// BenchmarkTracker scales a buy-and-hold curve from daily closes so it starts
// at the portfolio's initial value.
type BenchmarkTracker struct {
	state   BenchmarkState
	plotter plot.Plotter
}

func NewBenchmarkTracker(startValue decimal.Decimal, p plot.Plotter) *BenchmarkTracker {
	return &BenchmarkTracker{state: BenchmarkState{Value: startValue}, plotter: p}
}

// OnEndOfDay chains the benchmark by close/lastClose and plots it beside the
// strategy's portfolio value. Non-positive closes are ignored.
func (b *BenchmarkTracker) OnEndOfDay(at time.Time, close, portfolioValue decimal.Decimal) BenchmarkState {
	if !close.IsPositive() {
		return b.state
	}
	if b.state.LastClose.IsPositive() {
		b.state.Value = b.state.Value.Mul(close).Div(b.state.LastClose)
	}
	b.state.LastClose = close

	if b.plotter != nil {
		b.plotter.Plot(ChartStrategyVsBenchmark, SeriesPortfolio, at, portfolioValue.InexactFloat64())
		b.plotter.Plot(ChartStrategyVsBenchmark, SeriesBenchmark, at, b.state.Value.InexactFloat64())
	}
	return b.state
}

func (b *BenchmarkTracker) State() BenchmarkState {
	return b.state
}
