package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is the latest top-of-book and greeks for one option instrument,
// as pushed by the live feed.
type Ticker struct {
	Instrument      string  // e.g. BTC-27JUL25-118000-C
	Bid             float64 // best bid price
	Ask             float64 // best ask price
	Delta           float64
	UnderlyingPrice float64
	TsMs            int64
}

// Helper methods to convert to decimal for order fields
func (t *Ticker) BidDecimal() decimal.Decimal {
	return decimal.NewFromFloat(t.Bid)
}

func (t *Ticker) AskDecimal() decimal.Decimal {
	return decimal.NewFromFloat(t.Ask)
}

// Contract parses a Deribit-style instrument name (UNDERLYING-DDMONYY-STRIKE-C|P)
// into an OptionContract carrying the ticker's quote.
func (t *Ticker) Contract() (OptionContract, bool) {
	parts := strings.Split(t.Instrument, "-")
	if len(parts) != 4 {
		return OptionContract{}, false
	}
	expiry, err := time.Parse("2Jan06", parts[1])
	if err != nil {
		return OptionContract{}, false
	}
	strike, err := decimal.NewFromString(parts[2])
	if err != nil {
		return OptionContract{}, false
	}
	right, err := ParseRight(parts[3])
	if err != nil {
		return OptionContract{}, false
	}
	// Deribit options settle at 08:00 UTC.
	expiry = expiry.Add(8 * time.Hour)
	return OptionContract{
		Symbol:     t.Instrument,
		Underlying: parts[0],
		Right:      right,
		Strike:     strike,
		Expiry:     expiry,
		Bid:        t.BidDecimal(),
		Ask:        t.AskDecimal(),
		Delta:      t.Delta,
	}, true
}
