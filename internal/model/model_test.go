package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOCCSymbol(t *testing.T) {
	exp := time.Date(2021, 4, 16, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		right  Right
		strike string
		want   string
	}{
		{Put, "400", "SPY210416P00400000"},
		{Call, "412.5", "SPY210416C00412500"},
	}
	for _, c := range cases {
		if got := OCCSymbol("spy", exp, c.right, dec(c.strike)); got != c.want {
			t.Errorf("OCCSymbol(%s %s) = %s want %s", c.right, c.strike, got, c.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2021, 3, 1, 23, 30, 0, 0, time.UTC)
	b := time.Date(2021, 3, 2, 0, 10, 0, 0, time.UTC)
	if d := DaysBetween(a, b); d != 1 {
		t.Fatalf("got %d want 1", d)
	}
	if d := DaysBetween(b, a); d != -1 {
		t.Fatalf("got %d want -1", d)
	}
	if d := DaysBetween(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 4, 16, 0, 0, 0, 0, time.UTC)); d != 46 {
		t.Fatalf("got %d want 46", d)
	}
}

func TestParseRight(t *testing.T) {
	for in, want := range map[string]Right{"P": Put, "put": Put, " C ": Call, "CALL": Call} {
		if got, err := ParseRight(in); err != nil || got != want {
			t.Errorf("ParseRight(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRight("X"); err == nil {
		t.Error("expected error")
	}
}

func TestTickerContract(t *testing.T) {
	tk := Ticker{Instrument: "BTC-27MAR26-60000-P", Bid: 0.015, Ask: 0.0165, Delta: -0.18}
	c, ok := tk.Contract()
	if !ok {
		t.Fatal("parse failed")
	}
	if c.Underlying != "BTC" || c.Right != Put || !c.Strike.Equal(dec("60000")) || c.Delta != -0.18 {
		t.Fatalf("contract = %+v", c)
	}
	if !c.Expiry.Equal(time.Date(2026, 3, 27, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expiry = %s", c.Expiry)
	}
	if !c.Bid.Equal(dec("0.015")) {
		t.Fatalf("bid = %s", c.Bid)
	}
	for _, bad := range []string{"BTC-PERPETUAL", "BTC-XX-60000-P", "BTC-27MAR26-abc-P", "BTC-27MAR26-60000-Z"} {
		bt := Ticker{Instrument: bad}
		if _, ok := bt.Contract(); ok {
			t.Errorf("parsed %s", bad)
		}
	}
}

func TestMid(t *testing.T) {
	c := OptionContract{Bid: dec("1.00"), Ask: dec("1.10")}
	if m, ok := c.Mid(); !ok || !m.Equal(dec("1.05")) {
		t.Fatalf("mid = %s %v", m, ok)
	}
	c.Ask = decimal.Zero
	if _, ok := c.Mid(); ok {
		t.Fatal("one-sided quote has no mid")
	}
}

func TestApplyFill(t *testing.T) {
	pf := Portfolio{Cash: dec("1000")}
	put := Position{Symbol: "P", Underlying: "SPY", Kind: Option, Right: Put, Strike: dec("400")}

	pf.ApplyFill(put, -2, dec("1.00"), 100)
	if !pf.Cash.Equal(dec("1200")) || pf.Positions["P"].Quantity != -2 || !pf.Positions["P"].AvgPrice.Equal(dec("1")) {
		t.Fatalf("after sell: %+v", pf)
	}
	pf.ApplyFill(put, -2, dec("2.00"), 100)
	if !pf.Positions["P"].AvgPrice.Equal(dec("1.5")) {
		t.Fatalf("avg = %s", pf.Positions["P"].AvgPrice)
	}
	pf.ApplyFill(put, 1, dec("0.50"), 100)
	if pf.Positions["P"].Quantity != -3 || !pf.Positions["P"].AvgPrice.Equal(dec("1.5")) {
		t.Fatalf("after partial close: %+v", pf.Positions["P"])
	}
	pf.ApplyFill(put, 3, dec("0.50"), 100)
	if _, ok := pf.Positions["P"]; ok {
		t.Fatal("flat position kept")
	}
	// 1000 + 200 + 400 - 50 - 150
	if !pf.Cash.Equal(dec("1400")) {
		t.Fatalf("cash = %s", pf.Cash)
	}
}

func TestShortContractsAndMarkValue(t *testing.T) {
	pf := Portfolio{Cash: dec("1000"), Positions: map[string]Position{
		"SPY": {Symbol: "SPY", Underlying: "SPY", Kind: Equity, Quantity: 100},
		"C1":  {Symbol: "C1", Underlying: "SPY", Kind: Option, Right: Call, Quantity: -1, AvgPrice: dec("2")},
		"P1":  {Symbol: "P1", Underlying: "SPY", Kind: Option, Right: Put, Quantity: -2, AvgPrice: dec("1")},
	}}
	if pf.Shares("SPY") != 100 || pf.ShortContracts("SPY", Put) != 2 || pf.ShortContracts("SPY", Call) != 1 {
		t.Fatalf("holdings = %+v", pf)
	}
	quotes := map[string]OptionContract{"C1": {Bid: dec("1.00"), Ask: dec("1.20")}}
	// 1000 + 100*10 - 1.10*100 - 2*1*100
	if v := pf.MarkValue(dec("10"), quotes, 100); !v.Equal(dec("1690")) {
		t.Fatalf("value = %s", v)
	}

	clone := pf.Clone()
	delete(clone.Positions, "SPY")
	if pf.Shares("SPY") != 100 {
		t.Fatal("clone shares the map")
	}
}
