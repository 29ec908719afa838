package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderType int

const (
	Market OrderType = iota + 1
	Limit
)

func (t OrderType) String() string {
	if t == Limit {
		return "Limit"
	}
	return "Market"
}

type OrderStatus int

const (
	Submitted OrderStatus = iota + 1
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

var orderStatusNames = [...]string{
	Submitted:       "Submitted",
	PartiallyFilled: "PartiallyFilled",
	Filled:          "Filled",
	Cancelled:       "Cancelled",
	Rejected:        "Rejected",
}

func (s OrderStatus) String() string {
	if s <= 0 || int(s) >= len(orderStatusNames) {
		return "None"
	}
	return orderStatusNames[s]
}

// Closed reports whether no further fills can arrive for the order.
func (s OrderStatus) Closed() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// OrderTicket is the synchronous acknowledgement of a submission.
// FilledQty and AvgFillPrice are set when the venue fills inline.
type OrderTicket struct {
	ID           string
	Symbol       string
	Type         OrderType
	Quantity     int // signed: negative sells
	LimitPrice   decimal.Decimal
	Status       OrderStatus
	FilledQty    int // signed like Quantity
	AvgFillPrice decimal.Decimal
}

// OrderEvent is an asynchronous report from the venue.
type OrderEvent struct {
	OrderID      string
	Symbol       string
	Time         time.Time
	Status       OrderStatus
	FillQty      int             // signed quantity of this fill
	FillPrice    decimal.Decimal // price of this fill
	CumQty       int             // signed cumulative filled quantity
	AvgFillPrice decimal.Decimal
	IsAssignment bool
	Message      string
}

func (e OrderEvent) String() string {
	s := fmt.Sprintf("Time: %s OrderID: %s Symbol: %s Status: %s Quantity: %d FillPrice: %s CumQty: %d AvgPrice: %s",
		e.Time.Format("2006-01-02 15:04:05"), e.OrderID, e.Symbol, e.Status, e.FillQty,
		e.FillPrice.String(), e.CumQty, e.AvgFillPrice.String())
	if e.IsAssignment {
		s += " Assignment"
	}
	if e.Message != "" {
		s += " Message: " + e.Message
	}
	return s
}

type TakeProfitState int

const (
	TakeProfitOpen TakeProfitState = iota + 1
	TakeProfitFilled
	TakeProfitCancelled
	TakeProfitStale
)

func (s TakeProfitState) String() string {
	switch s {
	case TakeProfitOpen:
		return "Open"
	case TakeProfitFilled:
		return "Filled"
	case TakeProfitCancelled:
		return "Cancelled"
	case TakeProfitStale:
		return "Stale"
	}
	return "None"
}

// TakeProfitOrder is the buy-to-close limit protecting one short leg.
type TakeProfitOrder struct {
	OrderID    string
	Symbol     string
	Quantity   int
	LimitPrice decimal.Decimal
	State      TakeProfitState
}
