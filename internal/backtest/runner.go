// Package backtest replays historical chain snapshots through the wheel and
// a paper venue and reports the resulting equity curve.
package backtest

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/data"
	"Options_Wheel/internal/model"
	"Options_Wheel/internal/paper"
	"Options_Wheel/internal/plot"
	"Options_Wheel/internal/strategy"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChainFilter narrows a snapshot's chain before the controller sees it.
type ChainFilter interface {
	Apply(chain []model.OptionContract, underlyingPrice decimal.Decimal, now time.Time) []model.OptionContract
}

type Result struct {
	RunID       string
	Stats       Stats
	Curve       []EquityPoint
	Trades      []paper.Trade
	Transitions map[strategy.TransitionKind]int
}

type Runner struct {
	cfg     config.Strategy
	filter  ChainFilter
	broker  *paper.Broker
	wheel   *strategy.Wheel
	bench   *data.BenchmarkTracker
	log     *log.Logger
	runID   string
	counts  map[strategy.TransitionKind]int
	curve   []EquityPoint
	lastDay time.Time
	lastPx  decimal.Decimal
}

type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	logger  *log.Logger
	plotter plot.Plotter
	wheel   []strategy.Option
}

func WithLogger(l *log.Logger) RunnerOption {
	return func(o *runnerOptions) { o.logger = l }
}

func WithPlotter(p plot.Plotter) RunnerOption {
	return func(o *runnerOptions) { o.plotter = p }
}

// WithWheelOptions passes extra options to the controller.
func WithWheelOptions(opts ...strategy.Option) RunnerOption {
	return func(o *runnerOptions) { o.wheel = append(o.wheel, opts...) }
}

func NewRunner(cfg config.Strategy, filter ChainFilter, opts ...RunnerOption) *Runner {
	o := runnerOptions{logger: log.New(os.Stderr, "", log.LstdFlags)}
	for _, fn := range opts {
		fn(&o)
	}
	broker := paper.NewBroker(cfg, paper.WithLogger(o.logger))
	wheelOpts := append([]strategy.Option{strategy.WithLogger(o.logger)}, o.wheel...)
	return &Runner{
		cfg:    cfg,
		filter: filter,
		broker: broker,
		wheel:  strategy.NewWheel(cfg, broker, wheelOpts...),
		bench:  data.NewBenchmarkTracker(cfg.StartingCash, o.plotter),
		log:    o.logger,
		runID:  uuid.New().String(),
		counts: make(map[strategy.TransitionKind]int),
	}
}

// Run replays snaps in time order. Snapshots outside [Start-WarmUp, End] are
// skipped; those before Start prime the engine without trading.
// A day ends when the next snapshot falls on a later date, and once more after
// the final snapshot.
func (r *Runner) Run(ctx context.Context, snaps []model.Snapshot) (Result, error) {
	r.log.Printf("[BACKTEST] run=%s %s %s..%s snapshots=%d", r.runID, r.cfg.Ticker,
		r.cfg.Start.Format("2006-01-02"), r.cfg.End.Format("2006-01-02"), len(snaps))

	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return r.result(), err
		}
		if i > 0 && snap.Time.Before(snaps[i-1].Time) {
			return r.result(), fmt.Errorf("snapshot %d at %s is out of order", i, snap.Time)
		}
		if snap.Time.Before(r.cfg.WarmUpStart()) || snap.Time.After(r.cfg.End.Add(24*time.Hour)) {
			continue
		}
		if !r.lastDay.IsZero() && model.DaysBetween(r.lastDay, snap.Time) > 0 {
			r.endOfDay(ctx)
		}
		r.step(ctx, snap)
	}
	if !r.lastDay.IsZero() {
		r.endOfDay(ctx)
	}

	res := r.result()
	s := res.Stats
	r.log.Printf("[BACKTEST] run=%s days=%d value %.2f -> %.2f (%.2f%%) benchmark %.2f (%.2f%%) sharpe=%.2f maxDD=%.2f%%",
		r.runID, s.Days, s.StartValue, s.EndValue, s.TotalReturn*100, s.BenchmarkEnd, s.BenchmarkRet*100, s.Sharpe, s.MaxDrawdown*100)
	return res, nil
}

func (r *Runner) step(ctx context.Context, snap model.Snapshot) {
	r.lastDay = snap.Time
	if snap.UnderlyingPrice.IsPositive() {
		r.lastPx = snap.UnderlyingPrice
	}

	r.broker.Update(snap)
	r.dispatch(ctx)

	filtered := snap
	filtered.Chains = map[string][]model.OptionContract{
		r.cfg.Ticker: r.filter.Apply(snap.Chain(r.cfg.Ticker), snap.UnderlyingPrice, snap.Time),
	}
	r.record(r.wheel.OnData(ctx, filtered))
	r.dispatch(ctx)
}

// endOfDay settles expiries for the day just finished and marks the curve.
func (r *Runner) endOfDay(ctx context.Context) {
	r.broker.Settle(r.lastDay)
	r.dispatch(ctx)
	r.broker.CancelExpired(r.lastDay)
	r.dispatch(ctx)

	if !r.cfg.WarmedUp(r.lastDay) {
		return
	}
	value := r.broker.Value()
	st := r.bench.OnEndOfDay(r.lastDay, r.lastPx, value)
	pf := r.broker.Portfolio()
	r.curve = append(r.curve, EquityPoint{
		Time:      r.lastDay,
		Portfolio: value.InexactFloat64(),
		Benchmark: st.Value.InexactFloat64(),
		Cash:      pf.Cash.InexactFloat64(),
		Shares:    pf.Shares(r.cfg.Ticker),
	})
}

func (r *Runner) dispatch(ctx context.Context) {
	for {
		events := r.broker.Drain()
		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			r.record(r.wheel.OnOrderEvent(ctx, ev))
		}
	}
}

func (r *Runner) record(ts []strategy.Transition) {
	for _, t := range ts {
		r.counts[t.Kind]++
	}
}

func (r *Runner) result() Result {
	counts := make(map[strategy.TransitionKind]int, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return Result{
		RunID:       r.runID,
		Stats:       ComputeStats(r.curve),
		Curve:       append([]EquityPoint(nil), r.curve...),
		Trades:      r.broker.Trades(),
		Transitions: counts,
	}
}

// State exposes the controller state for status reporting.
func (r *Runner) State() strategy.StrategyState {
	return r.wheel.State()
}

// Portfolio is the paper venue's current cash and holdings.
func (r *Runner) Portfolio() model.Portfolio {
	return r.broker.Portfolio()
}

// WriteCurveCSV replaces path with the equity curve.
func WriteCurveCSV(path string, curve []EquityPoint) error {
	return writeCSV(path, &curve)
}

// WriteTradesCSV replaces path with the paper ledger.
func WriteTradesCSV(path string, trades []paper.Trade) error {
	return writeCSV(path, &trades)
}

func writeCSV(path string, rows interface{}) error {
	os.Remove(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
