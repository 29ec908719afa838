package strategy

import (
	"fmt"
	"time"

	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

type LegPhase int

const (
	EntryPending LegPhase = iota + 1 // sell submitted, waiting for the fill
	LegOpen                          // short filled, take-profit working or attempted
	LegStale                         // assigned while the take-profit was left working
)

func (p LegPhase) String() string {
	switch p {
	case EntryPending:
		return "EntryPending"
	case LegOpen:
		return "Open"
	case LegStale:
		return "Stale"
	}
	return "None"
}

// Leg is one short option sale and the take-profit protecting it.
type Leg struct {
	Symbol       string
	Right        model.Right
	Strike       decimal.Decimal
	Expiry       time.Time
	EntryOrderID string
	Quantity     int // signed target quantity of the entry
	FilledQty    int // signed
	AvgFillPrice decimal.Decimal
	Phase        LegPhase
	Opened       time.Time
	TakeProfit   *model.TakeProfitOrder
}

// Remaining is the unsigned quantity of the entry still waiting to fill.
func (l *Leg) Remaining() int {
	return absInt(l.Quantity) - absInt(l.FilledQty)
}

func (l *Leg) clone() *Leg {
	c := *l
	if l.TakeProfit != nil {
		tp := *l.TakeProfit
		c.TakeProfit = &tp
	}
	return &c
}

// StrategyState is owned by the Wheel and changes only through its transitions.
// Legs are keyed by entry order ID; Put and Call point at the most recent leg of
// each right, empty when none is live.
type StrategyState struct {
	Legs     map[string]*Leg
	Put      string
	Call     string
	LastTick time.Time
}

func NewStrategyState() StrategyState {
	return StrategyState{Legs: make(map[string]*Leg)}
}

// Clone deep-copies legs and their take-profit orders.
func (s StrategyState) Clone() StrategyState {
	out := StrategyState{
		Legs:     make(map[string]*Leg, len(s.Legs)),
		Put:      s.Put,
		Call:     s.Call,
		LastTick: s.LastTick,
	}
	for k, l := range s.Legs {
		out.Legs[k] = l.clone()
	}
	return out
}

// PendingContracts sums the unfilled entry quantity of legs of the given right.
func (s StrategyState) PendingContracts(right model.Right) int {
	n := 0
	for _, l := range s.Legs {
		if l.Right == right && l.Phase == EntryPending {
			n += l.Remaining()
		}
	}
	return n
}

// pendingPuts renders unfilled put entries as positions so the risk gate can
// reserve collateral for them before the venue reports a holding.
func (s StrategyState) pendingPuts() []model.Position {
	var out []model.Position
	for _, l := range s.Legs {
		if l.Right != model.Put || l.Phase != EntryPending || l.Remaining() == 0 {
			continue
		}
		out = append(out, model.Position{
			Symbol:   l.Symbol,
			Kind:     model.Option,
			Right:    model.Put,
			Quantity: -l.Remaining(),
			Strike:   l.Strike,
		})
	}
	return out
}

func (s *StrategyState) drop(entryID string) {
	l, ok := s.Legs[entryID]
	if !ok {
		return
	}
	delete(s.Legs, entryID)
	switch {
	case l.Right == model.Put && s.Put == entryID:
		s.Put = ""
	case l.Right == model.Call && s.Call == entryID:
		s.Call = ""
	}
}

type TransitionKind int

const (
	SkipWarmUp TransitionKind = iota + 1
	NoSharesEvaluatePut
	HoldingSharesEvaluateCallAndPut
	SkipCallCovered
	SkipPutAlreadyOpen
	SkipNoContract
	SkipPutRiskDenied
	EntrySubmitted
	EntryRejected
	EntryFilled
	TakeProfitPlaced
	TakeProfitRejected
	TakeProfitFilled
	TakeProfitCancelled
	AssignedCancelStaleTakeProfit
	AssignedTakeProfitStale
	LegExpired
)

var transitionNames = [...]string{
	SkipWarmUp:                      "SkipWarmUp",
	NoSharesEvaluatePut:             "NoShares->EvaluatePut",
	HoldingSharesEvaluateCallAndPut: "HoldingShares->EvaluateCall+EvaluatePut",
	SkipCallCovered:                 "SkipCallCovered",
	SkipPutAlreadyOpen:              "SkipPutAlreadyOpen",
	SkipNoContract:                  "SkipNoContract",
	SkipPutRiskDenied:               "SkipPutRiskDenied",
	EntrySubmitted:                  "EntrySubmitted",
	EntryRejected:                   "EntryRejected",
	EntryFilled:                     "EntryFilled",
	TakeProfitPlaced:                "TakeProfitPlaced",
	TakeProfitRejected:              "TakeProfitRejected",
	TakeProfitFilled:                "TakeProfitFilled",
	TakeProfitCancelled:             "TakeProfitCancelled",
	AssignedCancelStaleTakeProfit:   "Assigned->CancelStaleTakeProfit",
	AssignedTakeProfitStale:         "Assigned->TakeProfitStale",
	LegExpired:                      "Expired->DropLeg",
}

func (k TransitionKind) String() string {
	if k <= 0 || int(k) >= len(transitionNames) {
		return "Unknown"
	}
	return transitionNames[k]
}

// Transition records one step the Wheel took, in order.
type Transition struct {
	Kind    TransitionKind
	Right   model.Right
	Symbol  string
	OrderID string
	Price   decimal.Decimal
	Detail  string
}

func (t Transition) String() string {
	s := t.Kind.String()
	if t.Right != 0 {
		s += " " + t.Right.String()
	}
	if t.Symbol != "" {
		s += " " + t.Symbol
	}
	if t.OrderID != "" {
		s += " order=" + t.OrderID
	}
	if !t.Price.IsZero() {
		s += " px=" + t.Price.String()
	}
	if t.Detail != "" {
		s += fmt.Sprintf(" (%s)", t.Detail)
	}
	return s
}

// Kinds lists transition kinds in order, handy for assertions.
func Kinds(ts []Transition) []TransitionKind {
	out := make([]TransitionKind, len(ts))
	for i, t := range ts {
		out[i] = t.Kind
	}
	return out
}
