package app

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"Options_Wheel/internal/plot"
	"Options_Wheel/internal/servers"
)

type Mode int

const (
	ModeBacktest Mode = iota + 1
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "backtest"
}

// Handle is a running session.
type Handle struct {
	Name string
	Done <-chan struct{} // closed when the session finishes on its own
	Stop func(ctx context.Context)
}

func parseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "backtest", "replay", "paper":
		return ModeBacktest, true
	case "2", "live", "fix":
		return ModeLive, true
	}
	return 0, false
}

// ChooseMode picks the run mode from WHEEL_MODE, then an interactive prompt,
// then falls back to backtest.
func ChooseMode() Mode {
	if s := strings.TrimSpace(os.Getenv("WHEEL_MODE")); s != "" {
		if m, ok := parseMode(s); ok {
			log.Printf("[MODE] selected=%s (source=WHEEL_MODE=%q)", m, s)
			return m
		}
		log.Printf("[MODE] unknown WHEEL_MODE=%q → fallback", s)
	}
	if isInteractiveStdin() {
		reader := bufio.NewReader(os.Stdin)
		fmt.Println()
		fmt.Println("Select Mode:")
		fmt.Println("  1) Backtest (replay chain CSV)")
		fmt.Println("  2) Live (Deribit FIX)")
		fmt.Print("Enter number [Default=1]: ")
		line, _ := reader.ReadString('\n')
		if m, ok := parseMode(line); ok {
			log.Printf("[MODE] selected=%s (interactive)", m)
			return m
		}
		log.Printf("[MODE] selected=%s (interactive default)", ModeBacktest)
		return ModeBacktest
	}
	log.Printf("[MODE] selected=%s (default)", ModeBacktest)
	return ModeBacktest
}

func isInteractiveStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// plotSinks assembles the chart sinks configured in the environment. The
// returned closer flushes buffered sinks.
func plotSinks(extra ...plot.Plotter) (plot.Plotter, func()) {
	sinks := plot.Multi{plot.LogSink{}}
	sinks = append(sinks, extra...)
	closer := func() {}

	if cfg, ok := plot.InfluxConfigFromEnv(); ok {
		influx, err := plot.NewInfluxSink(cfg)
		if err != nil {
			log.Printf("[PLOT] influx disabled: %v", err)
		} else {
			log.Printf("[PLOT] influx sink %s/%s", cfg.Addr, cfg.Database)
			sinks = append(sinks, influx)
			closer = func() {
				if err := influx.Close(); err != nil {
					log.Printf("[PLOT] influx close: %v", err)
				}
			}
		}
	}
	if p := servers.PlotPosterFromEnv(); p != nil {
		sinks = append(sinks, p)
	}
	return sinks, closer
}
