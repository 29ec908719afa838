package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/strategy"
)

const twoDayChain = `[QUOTE_UNIXTIME], [QUOTE_READTIME], [QUOTE_DATE], [QUOTE_TIME_HOURS], [UNDERLYING_LAST], [EXPIRE_DATE], [EXPIRE_UNIX], [DTE], [C_DELTA], [C_GAMMA], [C_BID], [C_ASK], [STRIKE], [P_BID], [P_ASK], [P_DELTA]
1614614400, 2021-03-01 16:00, 2021-03-01, 16.000000, 410.0, 2021-04-16, 1618603200, 46.00, 0.8, 0.001, 12.0, 12.5, 400.0, 1.00, 1.10, -0.2
1614700800, 2021-03-02 16:00, 2021-03-02, 16.000000, 412.0, 2021-04-16, 1618603200, 45.00, 0.8, 0.001, 13.0, 13.5, 400.0, 0.40, 0.45, -0.15
`

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"backtest": ModeBacktest, " LIVE ": ModeLive, "2": ModeLive, "1": ModeBacktest}
	for in, want := range cases {
		if got, ok := parseMode(in); !ok || got != want {
			t.Errorf("parseMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := parseMode("hedge"); ok {
		t.Error("unknown mode accepted")
	}
}

func TestChooseModeFromEnv(t *testing.T) {
	t.Setenv("WHEEL_MODE", "live")
	if m := ChooseMode(); m != ModeLive {
		t.Fatalf("mode = %s", m)
	}
}

func TestEvalInterval(t *testing.T) {
	if evalInterval(config.Minute) != time.Minute || evalInterval(config.Hour) != time.Hour || evalInterval(config.Day) != 24*time.Hour {
		t.Fatal("interval mapping")
	}
}

func TestRunBacktestWritesReports(t *testing.T) {
	t.Setenv("WHEEL_INFLUX_URL", "")
	t.Setenv("WHEEL_PLOT_URL", "")
	dir := t.TempDir()
	chain := filepath.Join(dir, "chain.csv")
	if err := os.WriteFile(chain, []byte(twoDayChain), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Start = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)
	cfg.WarmUp = 0

	files := BacktestFiles{
		ChainCSV:  chain,
		CurveCSV:  filepath.Join(dir, "curve.csv"),
		TradesCSV: filepath.Join(dir, "trades.csv"),
		PlotCSV:   filepath.Join(dir, "plot.csv"),
	}
	res, err := RunBacktest(context.Background(), cfg, files)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transitions[strategy.TakeProfitFilled] != 1 || res.Transitions[strategy.EntryFilled] != 2 {
		t.Fatalf("transitions = %v", res.Transitions)
	}
	if len(res.Curve) != 2 {
		t.Fatalf("curve = %+v", res.Curve)
	}
	for _, p := range []string{files.CurveCSV, files.TradesCSV, files.PlotCSV} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Fatalf("%s not written: %v", p, err)
		}
	}
}

func TestRunBacktestMissingFile(t *testing.T) {
	_, err := RunBacktest(context.Background(), config.Default(), BacktestFiles{ChainCSV: filepath.Join(t.TempDir(), "none.csv")})
	if err == nil {
		t.Fatal("expected error")
	}
}
