package fix

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

func sideOf(qty int) enum.Side {
	if qty < 0 {
		return enum.Side_SELL
	}
	return enum.Side_BUY
}

func absQty(qty int) decimal.Decimal {
	if qty < 0 {
		qty = -qty
	}
	return decimal.NewFromInt(int64(qty))
}

// newMarketOrder builds a NewOrderSingle for |qty| contracts; the sign picks the side.
func newMarketOrder(clOrdID, symbol string, qty int) newordersingle.NewOrderSingle {
	order := newordersingle.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(sideOf(qty)),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_MARKET),
	)
	order.Set(field.NewSymbol(symbol))
	order.Set(field.NewOrderQty(absQty(qty), 0))
	order.Set(field.NewTimeInForce(enum.TimeInForce_IMMEDIATE_OR_CANCEL))
	return order
}

// newLimitOrder builds a good-till-cancel limit NewOrderSingle.
func newLimitOrder(clOrdID, symbol string, qty int, limit decimal.Decimal) newordersingle.NewOrderSingle {
	order := newordersingle.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(sideOf(qty)),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT),
	)
	order.Set(field.NewSymbol(symbol))
	order.Set(field.NewOrderQty(absQty(qty), 0))
	scale := -limit.Exponent()
	if scale < 0 {
		scale = 0
	}
	order.Set(field.NewPrice(limit, scale))
	order.Set(field.NewTimeInForce(enum.TimeInForce_GOOD_TILL_CANCEL))
	return order
}

func newCancel(origClOrdID, clOrdID, symbol string, qty int) ordercancelrequest.OrderCancelRequest {
	req := ordercancelrequest.New(
		field.NewOrigClOrdID(origClOrdID),
		field.NewClOrdID(clOrdID),
		field.NewSide(sideOf(qty)),
		field.NewTransactTime(time.Now()),
	)
	req.Set(field.NewSymbol(symbol))
	return req
}

// send routes m to the logged-on session.
func (v *Venue) send(m quickfix.Messagable) error {
	id, ok := v.app.Session()
	if !ok {
		return ErrNotLoggedOn
	}
	return quickfix.SendToTarget(m, id)
}
