package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Right is the side of an option contract.
type Right int

const (
	Put Right = iota + 1
	Call
)

func (r Right) String() string {
	switch r {
	case Put:
		return "Put"
	case Call:
		return "Call"
	}
	return "Unknown"
}

// Letter returns the OCC right code ("P" or "C").
func (r Right) Letter() string {
	if r == Call {
		return "C"
	}
	return "P"
}

// ParseRight accepts "P", "C", "put", "call" in any case.
func ParseRight(s string) (Right, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PUT":
		return Put, nil
	case "C", "CALL":
		return Call, nil
	}
	return 0, fmt.Errorf("unknown option right %q", s)
}

// OptionContract is one quoted series of a chain snapshot.
// Values are rebuilt on every snapshot and never carried across ticks.
type OptionContract struct {
	Symbol     string
	Underlying string
	Right      Right
	Strike     decimal.Decimal
	Expiry     time.Time
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	Delta      float64 // signed, as reported by the venue
}

func (c OptionContract) AbsDelta() float64 {
	return math.Abs(c.Delta)
}

// Mid is the midpoint of a two-sided quote; ok is false when either side is missing.
func (c OptionContract) Mid() (decimal.Decimal, bool) {
	if !c.Bid.IsPositive() || !c.Ask.IsPositive() {
		return decimal.Zero, false
	}
	return c.Bid.Add(c.Ask).Div(decimal.NewFromInt(2)), true
}

// DaysToExpiry counts calendar days between the snapshot date and expiry.
func (c OptionContract) DaysToExpiry(now time.Time) int {
	return DaysBetween(now, c.Expiry)
}

// DaysBetween counts whole calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(math.Round(db.Sub(da).Hours() / 24))
}

// OCCSymbol formats an OCC-style option symbol: <root><YYMMDD><C|P><strike*1000, 8 digits>.
func OCCSymbol(underlying string, expiry time.Time, right Right, strike decimal.Decimal) string {
	strikeInt := strike.Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(underlying), expiry.Format("060102"), right.Letter(), strikeInt)
}
