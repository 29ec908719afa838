package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

// UniverseFilter narrows a full chain to the tradeable subset: weekly series
// optionally included, ±StrikeCount distinct strikes around ATM, and days to
// expiration inside [MinExpiryDays, MaxExpiryDays].
type UniverseFilter struct {
	StrikeCount    int
	MinExpiryDays  int
	MaxExpiryDays  int
	IncludeWeeklys bool
}

func NewUniverseFilter(c config.Strategy) UniverseFilter {
	return UniverseFilter{
		StrikeCount:    c.StrikeCount,
		MinExpiryDays:  c.MinExpiryDays,
		MaxExpiryDays:  c.MaxExpiryDays,
		IncludeWeeklys: c.IncludeWeeklys,
	}
}

// Apply returns the filtered subset in input order. The input is not modified.
func (f UniverseFilter) Apply(chain []model.OptionContract, underlyingPrice decimal.Decimal, now time.Time) []model.OptionContract {
	series := make([]model.OptionContract, 0, len(chain))
	for _, c := range chain {
		if !f.IncludeWeeklys && !IsMonthlyExpiry(c.Expiry) {
			continue
		}
		series = append(series, c)
	}

	lo, hi, ok := f.strikeBand(series, underlyingPrice)
	if !ok {
		return nil
	}

	out := make([]model.OptionContract, 0, len(series))
	for _, c := range series {
		if c.Strike.LessThan(lo) || c.Strike.GreaterThan(hi) {
			continue
		}
		dte := c.DaysToExpiry(now)
		if dte < f.MinExpiryDays || dte > f.MaxExpiryDays {
			continue
		}
		out = append(out, c)
	}
	return out
}

// strikeBand finds the ATM strike (nearest to the underlying, lower wins a tie)
// and returns the strikes StrikeCount steps below and above it.
func (f UniverseFilter) strikeBand(chain []model.OptionContract, underlyingPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	seen := make(map[string]struct{}, len(chain))
	strikes := make([]decimal.Decimal, 0, len(chain))
	for _, c := range chain {
		key := c.Strike.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		strikes = append(strikes, c.Strike)
	}
	if len(strikes) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].LessThan(strikes[j]) })

	atm := 0
	best := strikes[0].Sub(underlyingPrice).Abs()
	for i, s := range strikes[1:] {
		if d := s.Sub(underlyingPrice).Abs(); d.LessThan(best) {
			best, atm = d, i+1
		}
	}

	lo := atm - f.StrikeCount
	if lo < 0 {
		lo = 0
	}
	hi := atm + f.StrikeCount
	if hi > len(strikes)-1 {
		hi = len(strikes) - 1
	}
	return strikes[lo], strikes[hi], true
}

// IsMonthlyExpiry reports whether t is a standard monthly expiration: the third
// Friday of the month, or the Saturday after it used by older listings.
func IsMonthlyExpiry(t time.Time) bool {
	switch t.Weekday() {
	case time.Friday:
		return t.Day() >= 15 && t.Day() <= 21
	case time.Saturday:
		return t.Day() >= 16 && t.Day() <= 22
	}
	return false
}

type Instrument struct {
	Name     string `json:"instrument_name"`
	IsActive bool   `json:"is_active"`
	ExpireMs int64  `json:"expiration_timestamp"`
}

// Universe is the set of live instruments the feed subscribes to.
type Universe struct {
	Symbols         []string
	UnderlyingPrice decimal.Decimal
}

// VenueNames maps an underlying to Deribit's settlement currency and index
// name: BTC trades against btc_usd, SOL_USDC is a linear book on sol_usdc.
func VenueNames(underlying string) (currency, index string) {
	u := strings.ToUpper(underlying)
	if i := strings.IndexByte(u, '_'); i > 0 {
		return u[i+1:], strings.ToLower(u)
	}
	return u, strings.ToLower(u) + "_usd"
}

// BuildUniverse fetches the venue's active option instruments on underlying
// and its index price, and keeps the ones passing the filter. Quotes are not
// needed for the band, so contracts are built from instrument names only.
func BuildUniverse(ctx context.Context, baseURL, underlying string, f UniverseFilter) (Universe, error) {
	currency, index := VenueNames(underlying)
	price, err := fetchIndexPrice(ctx, baseURL, index)
	if err != nil {
		return Universe{}, err
	}
	instruments, err := fetchInstruments(ctx, baseURL, currency)
	if err != nil {
		return Universe{}, err
	}

	chain := make([]model.OptionContract, 0, len(instruments))
	for _, inst := range instruments {
		t := model.Ticker{Instrument: inst.Name}
		if c, ok := t.Contract(); ok && strings.EqualFold(c.Underlying, underlying) {
			chain = append(chain, c)
		}
	}

	spot := decimal.NewFromFloat(price)
	kept := f.Apply(chain, spot, time.Now().UTC())
	syms := make([]string, len(kept))
	for i, c := range kept {
		syms[i] = c.Symbol
	}
	log.Printf("[UNIVERSE] index=%.2f instruments=%d kept=%d (±%d strikes, %d-%dd, weeklys=%v)",
		price, len(instruments), len(syms), f.StrikeCount, f.MinExpiryDays, f.MaxExpiryDays, f.IncludeWeeklys)
	return Universe{Symbols: syms, UnderlyingPrice: spot}, nil
}

func fetchIndexPrice(ctx context.Context, baseURL, index string) (float64, error) {
	url := fmt.Sprintf("%s/api/v2/public/get_index_price?index_name=%s", baseURL, index)
	var r struct {
		Result struct {
			IndexPrice float64 `json:"index_price"`
		} `json:"result"`
	}
	if err := getJSON(ctx, url, &r); err != nil {
		return 0, fmt.Errorf("index price: %w", err)
	}
	return r.Result.IndexPrice, nil
}

func fetchInstruments(ctx context.Context, baseURL, currency string) ([]Instrument, error) {
	url := fmt.Sprintf("%s/api/v2/public/get_instruments?currency=%s&kind=option", baseURL, currency)
	var r struct {
		Result []Instrument `json:"result"`
	}
	if err := getJSON(ctx, url, &r); err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	out := make([]Instrument, 0, len(r.Result))
	for _, inst := range r.Result {
		if inst.IsActive {
			out = append(out, inst)
		}
	}
	return out, nil
}

func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("GET %s: %s", url, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
