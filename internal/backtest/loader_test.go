package backtest

import (
	"strings"
	"testing"
	"time"

	"Options_Wheel/internal/model"
)

const sampleEOD = `[QUOTE_UNIXTIME], [QUOTE_READTIME], [QUOTE_DATE], [QUOTE_TIME_HOURS], [UNDERLYING_LAST], [EXPIRE_DATE], [EXPIRE_UNIX], [DTE], [C_DELTA], [C_GAMMA], [C_BID], [C_ASK], [STRIKE], [P_BID], [P_ASK], [P_DELTA]
1578085200, 2020-01-03 16:00, 2020-01-03, 16.000000, 322.41, 2020-02-07, 1581109200, 35.00, 0.88, , 23.0, 23.4, 300.0, 0.7, 0.75, -0.1
1577998800, 2020-01-02 16:00, 2020-01-02, 16.000000, 324.87, 2020-02-07, 1581109200, 36.00, 0.9, 0.001, 25.0, 25.5, 300.0, 0.55, 0.6, -0.08
1577998800, 2020-01-02 16:00, 2020-01-02, 16.000000, 324.87, 2020-02-07, 1581109200, 36.00, 0.2, 0.001, 1.2, 1.3, 335.0, 10.1, 10.5, 
`

func TestLoadGroupsRowsBySnapshot(t *testing.T) {
	snaps, err := Load(strings.NewReader(sampleEOD), "SPY")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d", len(snaps))
	}
	first := snaps[0]
	if !first.Time.Equal(time.Date(2020, 1, 2, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("first snapshot at %s", first.Time)
	}
	if first.UnderlyingPrice.String() != "324.87" {
		t.Fatalf("underlying = %s", first.UnderlyingPrice)
	}
	chain := first.Chain("SPY")
	if len(chain) != 4 {
		t.Fatalf("chain = %d contracts", len(chain))
	}

	var put300, put335 model.OptionContract
	for _, c := range chain {
		switch c.Symbol {
		case "SPY200207P00300000":
			put300 = c
		case "SPY200207P00335000":
			put335 = c
		}
	}
	if put300.Bid.String() != "0.55" || put300.Delta != -0.08 || put300.Right != model.Put {
		t.Fatalf("put 300 = %+v", put300)
	}
	if put335.Delta != 0 {
		t.Fatalf("blank delta should parse as zero, got %v", put335.Delta)
	}
	if put300.DaysToExpiry(first.Time) != 36 {
		t.Fatalf("dte = %d", put300.DaysToExpiry(first.Time))
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	bad := "[QUOTE_READTIME],[EXPIRE_DATE],[STRIKE]\nnot a time,2020-02-07,300\n"
	if _, err := Load(strings.NewReader(bad), "SPY"); err == nil {
		t.Fatal("expected error")
	}
}
