package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one market tick delivered by the venue.
type Snapshot struct {
	Time            time.Time
	Underlying      string
	UnderlyingPrice decimal.Decimal
	Chains          map[string][]OptionContract // keyed by underlying symbol
}

// Chain returns the contracts quoted for the given underlying, or nil.
func (s Snapshot) Chain(underlying string) []OptionContract {
	if s.Chains == nil {
		return nil
	}
	return s.Chains[underlying]
}

// Quotes indexes the chain for underlying by symbol.
func (s Snapshot) Quotes(underlying string) map[string]OptionContract {
	chain := s.Chain(underlying)
	out := make(map[string]OptionContract, len(chain))
	for _, c := range chain {
		out[c.Symbol] = c
	}
	return out
}
