package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"Options_Wheel/internal/backtest"
	"Options_Wheel/internal/config"
	"Options_Wheel/internal/plot"
	"Options_Wheel/internal/servers"
	"Options_Wheel/internal/strategy"
)

// BacktestFiles are the replay input and report outputs.
type BacktestFiles struct {
	ChainCSV  string
	CurveCSV  string
	TradesCSV string
	PlotCSV   string
}

// BacktestFilesFromEnv reads WHEEL_CHAIN_CSV and the optional WHEEL_*_OUT paths.
func BacktestFilesFromEnv() BacktestFiles {
	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return def
	}
	return BacktestFiles{
		ChainCSV:  get("WHEEL_CHAIN_CSV", "data/spy_eod.csv"),
		CurveCSV:  get("WHEEL_CURVE_OUT", "equity_curve.csv"),
		TradesCSV: get("WHEEL_TRADES_OUT", "trades.csv"),
		PlotCSV:   get("WHEEL_PLOT_OUT", ""),
	}
}

// RunBacktest replays the chain file through the wheel and a paper venue and
// writes the curve and trade ledger.
func RunBacktest(ctx context.Context, cfg config.Strategy, files BacktestFiles) (backtest.Result, error) {
	snaps, err := backtest.LoadFile(files.ChainCSV, cfg.Ticker)
	if err != nil {
		return backtest.Result{}, err
	}
	log.Printf("[BACKTEST] loaded %d snapshots from %s", len(snaps), files.ChainCSV)

	rec := plot.NewRecorder()
	sinks, closeSinks := plotSinks(rec)
	defer closeSinks()

	runner := backtest.NewRunner(cfg, NewUniverseFilter(cfg), backtest.WithPlotter(sinks))
	res, err := runner.Run(ctx, snaps)
	if err != nil {
		return res, fmt.Errorf("backtest: %w", err)
	}
	logTransitions(res.Transitions)
	st := servers.NewStatus(ModeBacktest.String(), cfg.Ticker, runner.State(), runner.Portfolio())
	log.Printf("[BACKTEST] final cash=%s shares=%d open legs=%d", st.Cash, st.Shares, len(st.Legs))

	if files.CurveCSV != "" {
		if err := backtest.WriteCurveCSV(files.CurveCSV, res.Curve); err != nil {
			return res, err
		}
		log.Printf("[BACKTEST] equity curve -> %s", files.CurveCSV)
	}
	if files.TradesCSV != "" {
		if err := backtest.WriteTradesCSV(files.TradesCSV, res.Trades); err != nil {
			return res, err
		}
		log.Printf("[BACKTEST] trades -> %s", files.TradesCSV)
	}
	if files.PlotCSV != "" {
		if err := rec.WriteCSV(files.PlotCSV); err != nil {
			return res, err
		}
		log.Printf("[BACKTEST] plot points -> %s", files.PlotCSV)
	}
	return res, nil
}

func logTransitions(counts map[strategy.TransitionKind]int) {
	kinds := make([]strategy.TransitionKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		log.Printf("[BACKTEST] %-40s %d", k, counts[k])
	}
}
