package servers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Options_Wheel/internal/model"
	"Options_Wheel/internal/strategy"

	"github.com/shopspring/decimal"
)

func testStatus() Status {
	st := strategy.NewStrategyState()
	t0 := time.Date(2021, 3, 1, 16, 0, 0, 0, time.UTC)
	st.Legs["b"] = &strategy.Leg{EntryOrderID: "b", Symbol: "SPY210319C00420000", Right: model.Call, Strike: decimal.NewFromInt(420), Phase: strategy.LegOpen, Opened: t0.Add(time.Hour),
		TakeProfit: &model.TakeProfitOrder{OrderID: "tp", Quantity: 1, LimitPrice: decimal.RequireFromString("0.75"), State: model.TakeProfitOpen}}
	st.Legs["a"] = &strategy.Leg{EntryOrderID: "a", Symbol: "SPY210319P00400000", Right: model.Put, Strike: decimal.NewFromInt(400), Phase: strategy.EntryPending, Opened: t0}
	pf := model.Portfolio{Cash: decimal.RequireFromString("1234.5"), Positions: map[string]model.Position{
		"SPY": {Symbol: "SPY", Kind: model.Equity, Quantity: 100, AvgPrice: decimal.NewFromInt(400)},
	}}
	return NewStatus("live", "SPY", st, pf)
}

func TestNewStatusOrdersLegs(t *testing.T) {
	s := testStatus()
	if s.Cash != "1234.50" || s.Shares != 100 || len(s.Positions) != 1 {
		t.Fatalf("status = %+v", s)
	}
	if len(s.Legs) != 2 || s.Legs[0].EntryOrderID != "a" || s.Legs[1].TakeProfit == nil || s.Legs[1].TakeProfit.LimitPrice != "0.75" {
		t.Fatalf("legs = %+v", s.Legs)
	}
	if s.Legs[0].Phase != "EntryPending" || s.Legs[1].TakeProfit.State != "Open" {
		t.Fatalf("legs = %+v", s.Legs)
	}
}

func TestStatusHandler(t *testing.T) {
	h := StatusHandler(testStatus)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wheel/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Mode != "live" || len(got.Legs) != 2 {
		t.Fatalf("body = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wheel/state", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST code = %d", rec.Code)
	}
}

func TestPlotPoster(t *testing.T) {
	got := make(chan plotMsg, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m plotMsg
		json.NewDecoder(r.Body).Decode(&m)
		got <- m
	}))
	defer srv.Close()

	at := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	NewPlotPoster(srv.URL).Plot("Strategy vs Benchmark", "Portfolio", at, 101.5)
	m := <-got
	if m.Chart != "Strategy vs Benchmark" || m.Series != "Portfolio" || m.TsMs != at.UnixMilli() || m.Value != 101.5 {
		t.Fatalf("msg = %+v", m)
	}
}

func TestPlotPosterFromEnv(t *testing.T) {
	t.Setenv("WHEEL_PLOT_URL", "")
	if PlotPosterFromEnv() != nil {
		t.Fatal("expected nil")
	}
}
