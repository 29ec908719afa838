// Package servers exposes the running wheel over HTTP and forwards chart
// points to an external collector.
package servers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"Options_Wheel/internal/model"
	"Options_Wheel/internal/strategy"
)

type TakeProfitView struct {
	OrderID    string `json:"order_id"`
	Quantity   int    `json:"quantity"`
	LimitPrice string `json:"limit_price"`
	State      string `json:"state"`
}

type LegView struct {
	EntryOrderID string          `json:"entry_order_id"`
	Symbol       string          `json:"symbol"`
	Right        string          `json:"right"`
	Strike       string          `json:"strike"`
	Phase        string          `json:"phase"`
	Quantity     int             `json:"quantity"`
	FilledQty    int             `json:"filled_qty"`
	AvgFillPrice string          `json:"avg_fill_price"`
	Opened       time.Time       `json:"opened"`
	TakeProfit   *TakeProfitView `json:"take_profit,omitempty"`
}

type PositionView struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
	AvgPrice string `json:"avg_price"`
}

// Status is the JSON body of GET /wheel/state.
type Status struct {
	Mode      string         `json:"mode"`
	Ticker    string         `json:"ticker"`
	LastTick  time.Time      `json:"last_tick"`
	Cash      string         `json:"cash"`
	Shares    int            `json:"shares"`
	Positions []PositionView `json:"positions"`
	Legs      []LegView      `json:"legs"`
}

// NewStatus renders controller state and venue holdings, sorted by symbol.
func NewStatus(mode, ticker string, st strategy.StrategyState, pf model.Portfolio) Status {
	s := Status{
		Mode:      mode,
		Ticker:    ticker,
		LastTick:  st.LastTick,
		Cash:      pf.Cash.StringFixed(2),
		Shares:    pf.Shares(ticker),
		Positions: []PositionView{},
		Legs:      []LegView{},
	}
	for _, p := range pf.Positions {
		s.Positions = append(s.Positions, PositionView{Symbol: p.Symbol, Quantity: p.Quantity, AvgPrice: p.AvgPrice.String()})
	}
	sort.Slice(s.Positions, func(i, j int) bool { return s.Positions[i].Symbol < s.Positions[j].Symbol })

	for _, l := range st.Legs {
		v := LegView{
			EntryOrderID: l.EntryOrderID,
			Symbol:       l.Symbol,
			Right:        l.Right.String(),
			Strike:       l.Strike.String(),
			Phase:        l.Phase.String(),
			Quantity:     l.Quantity,
			FilledQty:    l.FilledQty,
			AvgFillPrice: l.AvgFillPrice.String(),
			Opened:       l.Opened,
		}
		if tp := l.TakeProfit; tp != nil {
			v.TakeProfit = &TakeProfitView{OrderID: tp.OrderID, Quantity: tp.Quantity, LimitPrice: tp.LimitPrice.String(), State: tp.State.String()}
		}
		s.Legs = append(s.Legs, v)
	}
	sort.Slice(s.Legs, func(i, j int) bool {
		if !s.Legs[i].Opened.Equal(s.Legs[j].Opened) {
			return s.Legs[i].Opened.Before(s.Legs[j].Opened)
		}
		return s.Legs[i].EntryOrderID < s.Legs[j].EntryOrderID
	})
	return s
}

// StatusHandler serves GET /wheel/state and GET /healthz.
func StatusHandler(src func() Status) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wheel/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(src())
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

// ServeStatus listens on WHEEL_HTTP_ADDR (default 127.0.0.1:7071) and returns
// a stop function.
func ServeStatus(src func() Status) func(ctx context.Context) {
	addr := strings.TrimSpace(os.Getenv("WHEEL_HTTP_ADDR"))
	if addr == "" {
		addr = "127.0.0.1:7071"
	}
	srv := &http.Server{Addr: addr, Handler: StatusHandler(src), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("[WHEEL-HTTP] listening on http://%s (GET /wheel/state)", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[WHEEL-HTTP] server stopped: %v", err)
		}
	}()
	return func(ctx context.Context) { _ = srv.Shutdown(ctx) }
}
