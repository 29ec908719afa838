package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"Options_Wheel/internal/auth"
	"Options_Wheel/internal/config"
	"Options_Wheel/internal/data"
	"Options_Wheel/internal/fix"
	"Options_Wheel/internal/model"
	"Options_Wheel/internal/notify"
	"Options_Wheel/internal/servers"
	"Options_Wheel/internal/strategy"
	"Options_Wheel/internal/wsclient"

	"github.com/shopspring/decimal"
)

// LiveEndpoints are the venue addresses used by StartLive.
type LiveEndpoints struct {
	RESTBase  string
	WebSocket string
	FIXConfig string
}

func LiveEndpointsFromEnv() LiveEndpoints {
	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return def
	}
	return LiveEndpoints{
		RESTBase:  get("DERIBIT_API_URL", auth.DefaultBaseURL),
		WebSocket: get("DERIBIT_WS_URL", wsclient.DefaultURL),
		FIXConfig: get("WHEEL_FIX_CONFIG", "config/quickfix.cfg"),
	}
}

// evalInterval throttles controller evaluation to the configured resolution.
func evalInterval(r config.Resolution) time.Duration {
	switch r {
	case config.Minute:
		return time.Minute
	case config.Day:
		return 24 * time.Hour
	}
	return time.Hour
}

// liveHost serializes market ticks and execution reports into the wheel from
// a single goroutine.
type liveHost struct {
	cfg      config.Strategy
	filter   UniverseFilter
	store    *data.ChainStore
	venue    *fix.Venue
	wheel    *strategy.Wheel
	bench    *data.BenchmarkTracker
	interval time.Duration

	lastEval time.Time
	lastDay  time.Time
	lastPx   decimal.Decimal
	status   atomic.Pointer[servers.Status]
}

// StartLive builds the universe, connects the ticker feed and the FIX
// session, and runs the wheel until Stop.
func StartLive(ctx context.Context, cfg config.Strategy, ep LiveEndpoints) (*Handle, error) {
	creds := fix.CredentialsFromEnv()
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("missing DERIBIT_CLIENT_ID or DERIBIT_CLIENT_SECRET")
	}

	// Greeks come from the venue, so live sessions skip warm-up.
	cfg.Start, cfg.WarmUp = time.Now().UTC(), 0

	currency, _ := VenueNames(cfg.Ticker)
	if tok, err := auth.FetchToken(ctx, ep.RESTBase, creds.ClientID, creds.ClientSecret); err != nil {
		log.Printf("[AUTH] %v; using WHEEL_STARTING_CASH=%s", err, cfg.StartingCash)
	} else if eq, err := auth.AccountEquity(ctx, ep.RESTBase, tok, currency); err != nil || eq <= 0 {
		log.Printf("[AUTH] account equity unavailable (%v); using WHEEL_STARTING_CASH=%s", err, cfg.StartingCash)
	} else {
		cfg.StartingCash = decimal.NewFromFloat(eq)
		log.Printf("[AUTH] starting cash from %s account equity: %s", currency, cfg.StartingCash)
	}

	filter := NewUniverseFilter(cfg)
	uni, err := BuildUniverse(ctx, ep.RESTBase, cfg.Ticker, filter)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}
	if len(uni.Symbols) == 0 {
		return nil, fmt.Errorf("universe: no %s options pass the filter", cfg.Ticker)
	}

	store := data.NewChainStore()
	store.SetIndexPrice(uni.UnderlyingPrice.InexactFloat64())

	venue := fix.NewVenue(cfg, creds)
	if err := venue.Start(ep.FIXConfig); err != nil {
		store.Close()
		return nil, err
	}

	sinks, closeSinks := plotSinks()
	h := &liveHost{
		cfg:      cfg,
		filter:   filter,
		store:    store,
		venue:    venue,
		wheel:    strategy.NewWheel(cfg, venue, strategy.WithNotifier(notify.FromEnv(nil))),
		bench:    data.NewBenchmarkTracker(cfg.StartingCash, sinks),
		interval: evalInterval(cfg.Resolution),
		lastPx:   uni.UnderlyingPrice,
	}
	h.publish()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		wsclient.ConnectAndServe(runCtx, ep.WebSocket,
			wsclient.Credentials{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret},
			wsclient.TickerChannels(uni.Symbols), store.Set)
	}()
	go func() {
		defer wg.Done()
		h.run(runCtx)
	}()
	stopHTTP := servers.ServeStatus(h.snapshotStatus)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	log.Printf("[LIVE] wheel on %s started: %d instruments, cash=%s, every %s",
		cfg.Ticker, len(uni.Symbols), cfg.StartingCash, h.interval)

	return &Handle{
		Name: "wheel_live",
		Done: done,
		Stop: func(ctx context.Context) {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				log.Println("[LIVE] shutdown timed out")
			}
			stopHTTP(ctx)
			venue.Stop()
			store.Close()
			closeSinks()
		},
	}, nil
}

func (h *liveHost) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.venue.Events():
			h.wheel.OnOrderEvent(ctx, ev)
			h.publish()
		case <-h.store.Updates():
			now := time.Now().UTC()
			if !h.lastEval.IsZero() && now.Sub(h.lastEval) < h.interval {
				continue
			}
			if !h.venue.LoggedOn() {
				continue
			}
			h.lastEval = now
			h.evaluate(ctx, now)
		}
	}
}

func (h *liveHost) evaluate(ctx context.Context, now time.Time) {
	snap := h.store.Snapshot(h.cfg.Ticker, now)
	if !h.lastDay.IsZero() && model.DaysBetween(h.lastDay, now) > 0 {
		h.endOfDay(snap)
	}
	h.lastDay = now
	if snap.UnderlyingPrice.IsPositive() {
		h.lastPx = snap.UnderlyingPrice
	}

	filtered := snap
	filtered.Chains = map[string][]model.OptionContract{
		h.cfg.Ticker: h.filter.Apply(snap.Chain(h.cfg.Ticker), snap.UnderlyingPrice, now),
	}
	for _, t := range h.wheel.OnData(ctx, filtered) {
		log.Printf("[LIVE] %s", t)
	}
	h.publish()
}

// endOfDay marks the ledger against the latest quotes and advances the benchmark.
func (h *liveHost) endOfDay(snap model.Snapshot) {
	value := h.venue.Portfolio().MarkValue(h.lastPx, snap.Quotes(h.cfg.Ticker), h.cfg.ContractMultiplier)
	st := h.bench.OnEndOfDay(h.lastDay, h.lastPx, value)
	log.Printf("[LIVE] end of day %s value=%s benchmark=%s", h.lastDay.Format("2006-01-02"), value.StringFixed(2), st.Value.StringFixed(2))
}

func (h *liveHost) publish() {
	st := servers.NewStatus(ModeLive.String(), h.cfg.Ticker, h.wheel.State(), h.venue.Portfolio())
	h.status.Store(&st)
}

func (h *liveHost) snapshotStatus() servers.Status {
	return *h.status.Load()
}
