package backtest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"Options_Wheel/internal/model"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// EODRow is one OptionsDX end-of-day line: a call and a put sharing a strike
// and expiry. Values keep their raw text; blanks mean no quote.
type EODRow struct {
	QuoteReadTime  string `csv:"[QUOTE_READTIME]"`
	QuoteDate      string `csv:"[QUOTE_DATE]"`
	UnderlyingLast string `csv:"[UNDERLYING_LAST]"`
	ExpireDate     string `csv:"[EXPIRE_DATE]"`
	CallDelta      string `csv:"[C_DELTA]"`
	CallBid        string `csv:"[C_BID]"`
	CallAsk        string `csv:"[C_ASK]"`
	Strike         string `csv:"[STRIKE]"`
	PutBid         string `csv:"[P_BID]"`
	PutAsk         string `csv:"[P_ASK]"`
	PutDelta       string `csv:"[P_DELTA]"`
}

var readTimeLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02"}

// LoadFile reads an OptionsDX chain file into snapshots ordered by time.
func LoadFile(path, underlying string) ([]model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()
	return Load(f, underlying)
}

// Load parses OptionsDX rows and groups them by quote time.
func Load(r io.Reader, underlying string) ([]model.Snapshot, error) {
	in, err := trimHeader(r)
	if err != nil {
		return nil, err
	}
	var rows []EODRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("parse chain csv: %w", err)
	}

	byTime := make(map[time.Time]*model.Snapshot)
	for i, row := range rows {
		at, err := parseReadTime(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		s, ok := byTime[at]
		if !ok {
			s = &model.Snapshot{Time: at, Underlying: underlying, Chains: map[string][]model.OptionContract{}}
			byTime[at] = s
		}
		if px, ok := parseDecimal(row.UnderlyingLast); ok {
			s.UnderlyingPrice = px
		}
		contracts, err := row.contracts(underlying)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		s.Chains[underlying] = append(s.Chains[underlying], contracts...)
	}

	out := make([]model.Snapshot, 0, len(byTime))
	for _, s := range byTime {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (row EODRow) contracts(underlying string) ([]model.OptionContract, error) {
	strike, ok := parseDecimal(row.Strike)
	if !ok {
		return nil, fmt.Errorf("bad strike %q", row.Strike)
	}
	expiry, err := time.Parse("2006-01-02", strings.TrimSpace(row.ExpireDate))
	if err != nil {
		return nil, fmt.Errorf("bad expiry: %w", err)
	}

	legs := []struct {
		right         model.Right
		bid, ask, dlt string
	}{
		{model.Call, row.CallBid, row.CallAsk, row.CallDelta},
		{model.Put, row.PutBid, row.PutAsk, row.PutDelta},
	}
	out := make([]model.OptionContract, 0, 2)
	for _, l := range legs {
		bid, _ := parseDecimal(l.bid)
		ask, _ := parseDecimal(l.ask)
		delta, _ := strconv.ParseFloat(strings.TrimSpace(l.dlt), 64)
		out = append(out, model.OptionContract{
			Symbol:     model.OCCSymbol(underlying, expiry, l.right, strike),
			Underlying: underlying,
			Right:      l.right,
			Strike:     strike,
			Expiry:     expiry,
			Bid:        bid,
			Ask:        ask,
			Delta:      delta,
		})
	}
	return out, nil
}

func parseReadTime(row EODRow) (time.Time, error) {
	v := strings.TrimSpace(row.QuoteReadTime)
	if v == "" {
		v = strings.TrimSpace(row.QuoteDate)
	}
	for _, layout := range readTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad quote time %q", v)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// trimHeader strips the padding OptionsDX puts around header names so they
// match the csv tags.
func trimHeader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = strings.TrimPrefix(strings.TrimRight(header, "\r\n"), "\ufeff")
	cols := strings.Split(header, ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(c)
	}
	return io.MultiReader(strings.NewReader(strings.Join(cols, ",")+"\n"), br), nil
}
