package paper

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2021, 3, 1, 16, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func option(right model.Right, strike string, expiry time.Time, bid, ask string) model.OptionContract {
	k := dec(strike)
	return model.OptionContract{
		Symbol:     model.OCCSymbol("SPY", expiry, right, k),
		Underlying: "SPY",
		Right:      right,
		Strike:     k,
		Expiry:     expiry,
		Bid:        dec(bid),
		Ask:        dec(ask),
		Delta:      -0.2,
	}
}

func snap(at time.Time, underlying string, chain ...model.OptionContract) model.Snapshot {
	return model.Snapshot{
		Time:            at,
		Underlying:      "SPY",
		UnderlyingPrice: dec(underlying),
		Chains:          map[string][]model.OptionContract{"SPY": chain},
	}
}

func newBroker() *Broker {
	cfg := config.Default()
	cfg.StartingCash = decimal.NewFromInt(100000)
	return NewBroker(cfg, WithLogger(log.New(io.Discard, "", 0)))
}

func TestMarketSellCreditsPremium(t *testing.T) {
	b := newBroker()
	put := option(model.Put, "400", day0.AddDate(0, 0, 30), "1.00", "1.10")
	b.Update(snap(day0, "410", put))

	tk, err := b.SubmitMarketOrder(context.Background(), put.Symbol, -1)
	if err != nil {
		t.Fatal(err)
	}
	if tk.Status != model.Filled || tk.FilledQty != -1 || !tk.AvgFillPrice.Equal(dec("1")) {
		t.Fatalf("ticket = %+v", tk)
	}
	pf := b.Portfolio()
	if !pf.Cash.Equal(dec("100100")) {
		t.Fatalf("cash = %s", pf.Cash)
	}
	if pf.ShortContracts("SPY", model.Put) != 1 {
		t.Fatalf("positions = %+v", pf.Positions)
	}
	// Marked at mid 1.05: 100100 - 105.
	if v := b.Value(); !v.Equal(dec("99995")) {
		t.Fatalf("value = %s", v)
	}
	if ev := b.Drain(); len(ev) != 1 || ev[0].Status != model.Filled {
		t.Fatalf("events = %+v", ev)
	}
}

func TestMarketOrderWithoutQuoteIsRejected(t *testing.T) {
	b := newBroker()
	b.Update(snap(day0, "410"))
	tk, err := b.SubmitMarketOrder(context.Background(), "SPY210331P00400000", -1)
	if err != nil {
		t.Fatal(err)
	}
	if tk.Status != model.Rejected {
		t.Fatalf("status = %s", tk.Status)
	}
}

func TestTakeProfitFillsWhenAskCrosses(t *testing.T) {
	ctx := context.Background()
	b := newBroker()
	exp := day0.AddDate(0, 0, 30)
	b.Update(snap(day0, "410", option(model.Put, "400", exp, "1.00", "1.10")))
	entry, _ := b.SubmitMarketOrder(ctx, option(model.Put, "400", exp, "1", "1").Symbol, -1)
	tp, err := b.SubmitLimitOrder(ctx, entry.Symbol, 1, dec("0.50"))
	if err != nil {
		t.Fatal(err)
	}
	b.Drain()

	b.Update(snap(day0.Add(time.Hour), "412", option(model.Put, "400", exp, "0.55", "0.60")))
	if b.OpenOrders() != 1 || len(b.Drain()) != 0 {
		t.Fatal("limit filled above its price")
	}

	b.Update(snap(day0.Add(2*time.Hour), "415", option(model.Put, "400", exp, "0.40", "0.45")))
	ev := b.Drain()
	if len(ev) != 1 || ev[0].OrderID != tp.ID || ev[0].Status != model.Filled || !ev[0].FillPrice.Equal(dec("0.45")) {
		t.Fatalf("events = %+v", ev)
	}
	pf := b.Portfolio()
	if len(pf.Positions) != 0 {
		t.Fatalf("positions = %+v", pf.Positions)
	}
	if !pf.Cash.Equal(dec("100055")) {
		t.Fatalf("cash = %s", pf.Cash)
	}
}

func TestSettleAssignsInTheMoneyPut(t *testing.T) {
	ctx := context.Background()
	b := newBroker()
	exp := time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC)
	put := option(model.Put, "400", exp, "1.00", "1.10")
	b.Update(snap(day0, "410", put))
	b.SubmitMarketOrder(ctx, put.Symbol, -1)
	tp, _ := b.SubmitLimitOrder(ctx, put.Symbol, 1, dec("0.50"))
	b.Drain()

	b.Update(snap(exp.Add(16*time.Hour), "390", put))
	b.Drain()
	b.Settle(exp.AddDate(0, 0, -1))
	if len(b.Drain()) != 0 {
		t.Fatal("settled before expiry")
	}

	b.Settle(exp)
	ev := b.Drain()
	if len(ev) != 1 || !ev[0].IsAssignment || ev[0].Symbol != put.Symbol || ev[0].FillQty != 1 {
		t.Fatalf("events = %+v", ev)
	}
	if b.OpenOrders() != 1 {
		t.Fatal("take-profit should rest until expired orders are cancelled")
	}
	b.CancelExpired(exp)
	ev = b.Drain()
	if len(ev) != 1 || ev[0].OrderID != tp.ID || ev[0].Status != model.Cancelled {
		t.Fatalf("cancel events = %+v", ev)
	}

	pf := b.Portfolio()
	if pf.Shares("SPY") != 100 {
		t.Fatalf("shares = %d", pf.Shares("SPY"))
	}
	// 100000 + 100 premium - 40000 strike.
	if !pf.Cash.Equal(dec("60100")) {
		t.Fatalf("cash = %s", pf.Cash)
	}
	if !pf.Positions["SPY"].AvgPrice.Equal(dec("400")) {
		t.Fatalf("cost basis = %s", pf.Positions["SPY"].AvgPrice)
	}
}

func TestSettleCallDeliversShares(t *testing.T) {
	ctx := context.Background()
	b := newBroker()
	b.pf.Positions["SPY"] = model.Position{Symbol: "SPY", Underlying: "SPY", Kind: model.Equity, Quantity: 100, AvgPrice: dec("400")}
	exp := time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC)
	call := option(model.Call, "420", exp, "1.50", "1.60")
	b.Update(snap(day0, "410", call))
	b.SubmitMarketOrder(ctx, call.Symbol, -1)

	b.Update(snap(exp.Add(16*time.Hour), "430", call))
	b.Settle(exp)

	pf := b.Portfolio()
	if pf.Shares("SPY") != 0 || len(pf.Positions) != 0 {
		t.Fatalf("positions = %+v", pf.Positions)
	}
	// 100000 + 150 premium + 42000 strike.
	if !pf.Cash.Equal(dec("142150")) {
		t.Fatalf("cash = %s", pf.Cash)
	}
}

func TestSettleOutOfTheMoneyExpiresWorthless(t *testing.T) {
	ctx := context.Background()
	b := newBroker()
	exp := time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC)
	put := option(model.Put, "400", exp, "1.00", "1.10")
	b.Update(snap(day0, "410", put))
	b.SubmitMarketOrder(ctx, put.Symbol, -1)
	b.Drain()

	b.Update(snap(exp.Add(16*time.Hour), "420", put))
	b.Settle(exp)
	for _, ev := range b.Drain() {
		if ev.IsAssignment {
			t.Fatalf("unexpected assignment %+v", ev)
		}
	}
	pf := b.Portfolio()
	if len(pf.Positions) != 0 || !pf.Cash.Equal(dec("100100")) {
		t.Fatalf("portfolio = %+v", pf)
	}
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	b := newBroker()
	tk, _ := b.SubmitLimitOrder(ctx, "X", 1, dec("0.5"))
	if err := b.CancelOrder(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if err := b.CancelOrder(ctx, tk.ID); err == nil {
		t.Fatal("second cancel should fail")
	}
	if b.OpenOrders() != 0 {
		t.Fatal("order still resting")
	}
}
