package strategy

import (
	"testing"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2020, 3, 2, 15, 0, 0, 0, time.UTC)

func contract(right model.Right, strike string, days int, bid string, delta float64) model.OptionContract {
	exp := testNow.AddDate(0, 0, days)
	k := decimal.RequireFromString(strike)
	return model.OptionContract{
		Symbol:     model.OCCSymbol("SPY", exp, right, k),
		Underlying: "SPY",
		Right:      right,
		Strike:     k,
		Expiry:     exp,
		Bid:        decimal.RequireFromString(bid),
		Ask:        decimal.RequireFromString(bid).Add(decimal.RequireFromString("0.05")),
		Delta:      delta,
	}
}

func TestSelectBestNoEligible(t *testing.T) {
	cfg := config.Default()
	chain := []model.OptionContract{
		contract(model.Put, "300", 35, "1.00", 0),     // no live quote
		contract(model.Put, "310", 35, "1.00", -0.3),  // delta at the cap
		contract(model.Put, "320", 35, "0.30", -0.2),  // premium at the floor
		contract(model.Put, "330", 35, "2.00", -0.45), // too deep
		contract(model.Call, "340", 35, "2.00", 0.2),  // wrong right
	}
	if c, ok := SelectBest(chain, model.Put, cfg); ok {
		t.Fatalf("expected no selection, got %s", c.Symbol)
	}
	if _, ok := SelectBest(nil, model.Call, cfg); ok {
		t.Fatal("expected no selection on empty chain")
	}
}

func TestSelectBestOrdering(t *testing.T) {
	cfg := config.Default()
	near := contract(model.Put, "300", 31, "0.80", -0.10)
	nearRich := contract(model.Put, "305", 31, "1.10", -0.15)
	far := contract(model.Put, "310", 45, "3.00", -0.25)
	chain := []model.OptionContract{far, near, nearRich}

	got, ok := SelectBest(chain, model.Put, cfg)
	if !ok {
		t.Fatal("expected a selection")
	}
	if got.Symbol != nearRich.Symbol {
		t.Fatalf("got %s, want %s", got.Symbol, nearRich.Symbol)
	}
	for _, c := range chain {
		if Eligible(c, cfg) && c.Expiry.Before(got.Expiry) {
			t.Fatalf("%s expires before the selection", c.Symbol)
		}
	}
}

func TestSelectBestDeterministicOnTies(t *testing.T) {
	cfg := config.Default()
	a := contract(model.Call, "420", 40, "1.50", 0.2)
	b := contract(model.Call, "425", 40, "1.50", 0.2)

	first, _ := SelectBest([]model.OptionContract{a, b}, model.Call, cfg)
	second, _ := SelectBest([]model.OptionContract{b, a}, model.Call, cfg)
	if first.Symbol != second.Symbol {
		t.Fatalf("selection depends on input order: %s vs %s", first.Symbol, second.Symbol)
	}
}

func TestSelectBestDoesNotMutateInput(t *testing.T) {
	cfg := config.Default()
	chain := []model.OptionContract{
		contract(model.Put, "310", 45, "3.00", -0.25),
		contract(model.Put, "300", 31, "0.80", -0.10),
	}
	first := chain[0].Symbol
	SelectBest(chain, model.Put, cfg)
	if chain[0].Symbol != first {
		t.Fatal("input chain was reordered")
	}
}
