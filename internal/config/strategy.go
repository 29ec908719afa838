package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Resolution string

const (
	Minute Resolution = "minute"
	Hour   Resolution = "hour"
	Day    Resolution = "day"
)

// Strategy is fixed at initialization and read-only for the lifetime of a run.
type Strategy struct {
	Ticker         string
	StrikeCount    int // half-width of the strike band around ATM
	MinExpiryDays  int
	MaxExpiryDays  int
	IncludeWeeklys bool
	MaxDelta       float64
	MinPremium     decimal.Decimal
	StartingCash   decimal.Decimal
	Resolution     Resolution
	WarmUp         time.Duration
	Start          time.Time
	End            time.Time

	MarginRatio        decimal.Decimal // fraction of assignment cost that must be held in cash
	TakeProfitPct      decimal.Decimal // fraction of the opening credit to buy back at
	PriceIncrement     decimal.Decimal
	ContractMultiplier int

	AllowConcurrentPuts          bool
	CancelTakeProfitOnAssignment bool
}

// Default returns the reference configuration.
func Default() Strategy {
	return Strategy{
		Ticker:                       "SPY",
		StrikeCount:                  20,
		MinExpiryDays:                30,
		MaxExpiryDays:                60,
		IncludeWeeklys:               true,
		MaxDelta:                     0.3,
		MinPremium:                   decimal.RequireFromString("0.3"),
		StartingCash:                 decimal.NewFromInt(100000),
		Resolution:                   Hour,
		WarmUp:                       60 * 24 * time.Hour,
		Start:                        time.Date(2007, 1, 3, 0, 0, 0, 0, time.UTC),
		End:                          time.Date(2023, 3, 25, 0, 0, 0, 0, time.UTC),
		MarginRatio:                  decimal.RequireFromString("0.6"),
		TakeProfitPct:                decimal.RequireFromString("0.5"),
		PriceIncrement:               decimal.RequireFromString("0.01"),
		ContractMultiplier:           100,
		AllowConcurrentPuts:          true,
		CancelTakeProfitOnAssignment: true,
	}
}

// LoadStrategy builds a Strategy from WHEEL_* environment variables on top of Default.
func LoadStrategy() (Strategy, error) {
	c := Default()
	var err error

	if v := env("WHEEL_TICKER"); v != "" {
		c.Ticker = strings.ToUpper(v)
	}
	if c.StrikeCount, err = envInt("WHEEL_STRIKE_COUNT", c.StrikeCount); err != nil {
		return c, err
	}
	if c.MinExpiryDays, err = envInt("WHEEL_MIN_EXPIRY_DAYS", c.MinExpiryDays); err != nil {
		return c, err
	}
	if c.MaxExpiryDays, err = envInt("WHEEL_MAX_EXPIRY_DAYS", c.MaxExpiryDays); err != nil {
		return c, err
	}
	if c.IncludeWeeklys, err = envBool("WHEEL_INCLUDE_WEEKLYS", c.IncludeWeeklys); err != nil {
		return c, err
	}
	if v := env("WHEEL_MAX_DELTA"); v != "" {
		if c.MaxDelta, err = strconv.ParseFloat(v, 64); err != nil {
			return c, fmt.Errorf("WHEEL_MAX_DELTA: %w", err)
		}
	}
	if c.MinPremium, err = envDecimal("WHEEL_MIN_PREMIUM", c.MinPremium); err != nil {
		return c, err
	}
	if c.StartingCash, err = envDecimal("WHEEL_STARTING_CASH", c.StartingCash); err != nil {
		return c, err
	}
	if v := env("WHEEL_RESOLUTION"); v != "" {
		c.Resolution = Resolution(strings.ToLower(v))
	}
	warmUpDays, err := envInt("WHEEL_WARMUP_DAYS", int(c.WarmUp/(24*time.Hour)))
	if err != nil {
		return c, err
	}
	c.WarmUp = time.Duration(warmUpDays) * 24 * time.Hour
	if c.Start, err = envDate("WHEEL_START", c.Start); err != nil {
		return c, err
	}
	if c.End, err = envDate("WHEEL_END", c.End); err != nil {
		return c, err
	}
	if c.MarginRatio, err = envDecimal("WHEEL_MARGIN_RATIO", c.MarginRatio); err != nil {
		return c, err
	}
	if c.TakeProfitPct, err = envDecimal("WHEEL_TAKE_PROFIT_PCT", c.TakeProfitPct); err != nil {
		return c, err
	}
	if c.PriceIncrement, err = envDecimal("WHEEL_PRICE_INCREMENT", c.PriceIncrement); err != nil {
		return c, err
	}
	if c.ContractMultiplier, err = envInt("WHEEL_CONTRACT_MULTIPLIER", c.ContractMultiplier); err != nil {
		return c, err
	}
	if c.AllowConcurrentPuts, err = envBool("WHEEL_ALLOW_CONCURRENT_PUTS", c.AllowConcurrentPuts); err != nil {
		return c, err
	}
	if c.CancelTakeProfitOnAssignment, err = envBool("WHEEL_CANCEL_TP_ON_ASSIGNMENT", c.CancelTakeProfitOnAssignment); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Strategy) Validate() error {
	switch {
	case c.Ticker == "":
		return fmt.Errorf("ticker is required")
	case c.StrikeCount <= 0:
		return fmt.Errorf("strike count must be positive, got %d", c.StrikeCount)
	case c.MinExpiryDays < 0 || c.MaxExpiryDays < c.MinExpiryDays:
		return fmt.Errorf("invalid expiry window [%d, %d]", c.MinExpiryDays, c.MaxExpiryDays)
	case c.MaxDelta <= 0 || c.MaxDelta > 1:
		return fmt.Errorf("max delta must be in (0, 1], got %v", c.MaxDelta)
	case c.MinPremium.IsNegative():
		return fmt.Errorf("min premium must not be negative")
	case !c.StartingCash.IsPositive():
		return fmt.Errorf("starting cash must be positive")
	case !c.MarginRatio.IsPositive():
		return fmt.Errorf("margin ratio must be positive")
	case !c.TakeProfitPct.IsPositive() || c.TakeProfitPct.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("take profit pct must be in (0, 1), got %s", c.TakeProfitPct)
	case !c.PriceIncrement.IsPositive():
		return fmt.Errorf("price increment must be positive")
	case c.ContractMultiplier <= 0:
		return fmt.Errorf("contract multiplier must be positive")
	case !c.End.After(c.Start):
		return fmt.Errorf("end %s must be after start %s", c.End.Format("2006-01-02"), c.Start.Format("2006-01-02"))
	}
	switch c.Resolution {
	case Minute, Hour, Day:
	default:
		return fmt.Errorf("unknown resolution %q", c.Resolution)
	}
	return nil
}

// WarmUpStart is the first instant of data fed before trading begins.
func (c Strategy) WarmUpStart() time.Time {
	return c.Start.Add(-c.WarmUp)
}

// WarmedUp reports whether trading is allowed at t. Data in
// [WarmUpStart, Start) only primes the engine.
func (c Strategy) WarmedUp(t time.Time) bool {
	return !t.Before(c.Start)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, def int) (int, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return x, nil
}

func envBool(key string, def bool) (bool, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDecimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envDate(key string, def time.Time) (time.Time, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
