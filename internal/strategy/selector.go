package strategy

import (
	"sort"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"
)

// Eligible reports whether c may be sold: it has a live delta strictly inside
// (0, MaxDelta) and a bid strictly above MinPremium.
func Eligible(c model.OptionContract, cfg config.Strategy) bool {
	d := c.AbsDelta()
	if d == 0 || d >= cfg.MaxDelta {
		return false
	}
	return c.Bid.GreaterThan(cfg.MinPremium)
}

// SelectBest picks the nearest-dated eligible contract of the given right,
// preferring the richest bid on equal expiry. Remaining ties fall back to the
// symbol so identical inputs always yield the same contract.
func SelectBest(contracts []model.OptionContract, right model.Right, cfg config.Strategy) (model.OptionContract, bool) {
	candidates := make([]model.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if c.Right == right && Eligible(c, cfg) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return model.OptionContract{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Expiry.Equal(b.Expiry) {
			return a.Expiry.Before(b.Expiry)
		}
		if !a.Bid.Equal(b.Bid) {
			return a.Bid.GreaterThan(b.Bid)
		}
		return a.Symbol < b.Symbol
	})
	return candidates[0], true
}
