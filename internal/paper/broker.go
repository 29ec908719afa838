// Package paper is a simulated venue: it fills orders against the latest
// snapshot, keeps the cash and holdings ledger and settles expiring options.
// A Broker is driven from a single goroutine.
package paper

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type restingOrder struct {
	id     string
	symbol string
	qty    int
	limit  decimal.Decimal
	expiry time.Time
}

// Trade is one ledger entry.
type Trade struct {
	Time     time.Time `csv:"time"`
	OrderID  string    `csv:"order_id"`
	Symbol   string    `csv:"symbol"`
	Quantity int       `csv:"quantity"`
	Price    string    `csv:"price"`
	Kind     string    `csv:"kind"` // market, limit, assignment, expiry
	Cash     string    `csv:"cash_after"`
}

type Broker struct {
	ticker     string
	multiplier int
	log        *log.Logger

	now        time.Time
	underlying decimal.Decimal
	pf         model.Portfolio
	quotes     map[string]model.OptionContract
	resting    map[string]*restingOrder
	events     []model.OrderEvent
	trades     []Trade
}

type Option func(*Broker)

func WithLogger(l *log.Logger) Option {
	return func(b *Broker) { b.log = l }
}

func NewBroker(cfg config.Strategy, opts ...Option) *Broker {
	b := &Broker{
		ticker:     cfg.Ticker,
		multiplier: cfg.ContractMultiplier,
		log:        log.New(os.Stderr, "", log.LstdFlags),
		pf:         model.Portfolio{Cash: cfg.StartingCash, Positions: make(map[string]model.Position)},
		quotes:     make(map[string]model.OptionContract),
		resting:    make(map[string]*restingOrder),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Update makes snap the current market and works resting limits against it.
func (b *Broker) Update(snap model.Snapshot) {
	b.now = snap.Time
	if snap.UnderlyingPrice.IsPositive() {
		b.underlying = snap.UnderlyingPrice
	}
	b.quotes = snap.Quotes(b.ticker)

	for _, id := range b.restingIDs() {
		o := b.resting[id]
		q, ok := b.quotes[o.symbol]
		if !ok {
			continue
		}
		var px decimal.Decimal
		switch {
		case o.qty > 0 && q.Ask.IsPositive() && q.Ask.LessThanOrEqual(o.limit):
			px = decimal.Min(q.Ask, o.limit)
		case o.qty < 0 && q.Bid.GreaterThanOrEqual(o.limit):
			px = decimal.Max(q.Bid, o.limit)
		default:
			continue
		}
		delete(b.resting, id)
		b.fill(id, o.symbol, o.qty, px, "limit")
		b.emit(model.OrderEvent{
			OrderID: id, Symbol: o.symbol, Time: b.now, Status: model.Filled,
			FillQty: o.qty, FillPrice: px, CumQty: o.qty, AvgFillPrice: px,
		})
	}
}

func (b *Broker) Portfolio() model.Portfolio {
	return b.pf.Clone()
}

// SubmitMarketOrder fills inline at the bid for sells and the ask for buys.
func (b *Broker) SubmitMarketOrder(_ context.Context, symbol string, qty int) (model.OrderTicket, error) {
	id := uuid.New().String()
	t := model.OrderTicket{ID: id, Symbol: symbol, Type: model.Market, Quantity: qty}
	if qty == 0 {
		return t, fmt.Errorf("zero quantity order for %s", symbol)
	}

	q, ok := b.quotes[symbol]
	px := q.Ask
	if qty < 0 {
		px = q.Bid
	}
	if !ok || !px.IsPositive() {
		t.Status = model.Rejected
		b.emit(model.OrderEvent{OrderID: id, Symbol: symbol, Time: b.now, Status: model.Rejected, Message: "no quote"})
		return t, nil
	}

	b.fill(id, symbol, qty, px, "market")
	t.Status = model.Filled
	t.FilledQty = qty
	t.AvgFillPrice = px
	b.emit(model.OrderEvent{
		OrderID: id, Symbol: symbol, Time: b.now, Status: model.Filled,
		FillQty: qty, FillPrice: px, CumQty: qty, AvgFillPrice: px,
	})
	return t, nil
}

// SubmitLimitOrder rests the order until a later Update crosses it.
func (b *Broker) SubmitLimitOrder(_ context.Context, symbol string, qty int, limit decimal.Decimal) (model.OrderTicket, error) {
	id := uuid.New().String()
	t := model.OrderTicket{ID: id, Symbol: symbol, Type: model.Limit, Quantity: qty, LimitPrice: limit}
	if qty == 0 || !limit.IsPositive() {
		return t, fmt.Errorf("invalid limit order %d %s @ %s", qty, symbol, limit)
	}
	expiry := b.quotes[symbol].Expiry
	if p, ok := b.pf.Positions[symbol]; ok && expiry.IsZero() {
		expiry = p.Expiry
	}
	b.resting[id] = &restingOrder{id: id, symbol: symbol, qty: qty, limit: limit, expiry: expiry}
	t.Status = model.Submitted
	b.emit(model.OrderEvent{OrderID: id, Symbol: symbol, Time: b.now, Status: model.Submitted})
	return t, nil
}

func (b *Broker) CancelOrder(_ context.Context, id string) error {
	o, ok := b.resting[id]
	if !ok {
		return fmt.Errorf("order %s not open", id)
	}
	delete(b.resting, id)
	b.emit(model.OrderEvent{OrderID: id, Symbol: o.symbol, Time: b.now, Status: model.Cancelled})
	return nil
}

// Settle expires every option whose expiry date is on or before day. In the
// money contracts are assigned against the last underlying price, the rest
// expire worthless. Orders stay resting until CancelExpired.
func (b *Broker) Settle(day time.Time) {
	for _, sym := range b.positionSymbols() {
		p := b.pf.Positions[sym]
		if !p.IsOption() || !expiredBy(p.Expiry, day) {
			continue
		}
		if b.inTheMoney(p) {
			b.assign(day, p)
			continue
		}
		delete(b.pf.Positions, sym)
		b.trades = append(b.trades, Trade{Time: day, Symbol: sym, Quantity: -p.Quantity, Price: "0", Kind: "expiry", Cash: b.pf.Cash.StringFixed(2)})
		b.log.Printf("[PAPER] %s expired worthless (qty=%d)", sym, p.Quantity)
	}
}

// CancelExpired cancels resting orders on contracts expiring on or before day.
func (b *Broker) CancelExpired(day time.Time) {
	for _, id := range b.restingIDs() {
		o := b.resting[id]
		if o.expiry.IsZero() || !expiredBy(o.expiry, day) {
			continue
		}
		delete(b.resting, id)
		b.emit(model.OrderEvent{OrderID: id, Symbol: o.symbol, Time: day, Status: model.Cancelled, Message: "contract expired"})
	}
}

func expiredBy(expiry, day time.Time) bool {
	return model.DaysBetween(day, expiry) <= 0
}

func (b *Broker) inTheMoney(p model.Position) bool {
	if !b.underlying.IsPositive() {
		return false
	}
	if p.Right == model.Put {
		return b.underlying.LessThan(p.Strike)
	}
	return b.underlying.GreaterThan(p.Strike)
}

// assign converts the option into shares at the strike. Short puts buy
// shares, short calls deliver them; long positions mirror that.
func (b *Broker) assign(day time.Time, p model.Position) {
	shares := p.Quantity * b.multiplier
	if p.Right == model.Put {
		shares = -shares
	}
	delete(b.pf.Positions, p.Symbol)
	b.pf.ApplyFill(model.Position{Symbol: b.ticker, Underlying: b.ticker, Kind: model.Equity}, shares, p.Strike, 1)

	id := uuid.New().String()
	b.trades = append(b.trades, Trade{Time: day, OrderID: id, Symbol: p.Symbol, Quantity: -p.Quantity, Price: p.Strike.String(), Kind: "assignment", Cash: b.pf.Cash.StringFixed(2)})
	b.emit(model.OrderEvent{
		OrderID: id, Symbol: p.Symbol, Time: day, Status: model.Filled,
		FillQty: -p.Quantity, CumQty: -p.Quantity, IsAssignment: true,
		Message: fmt.Sprintf("assigned %d shares at %s", shares, p.Strike),
	})
	b.log.Printf("[PAPER] %s assigned: %+d %s @ %s (underlying=%s)", p.Symbol, shares, b.ticker, p.Strike, b.underlying)
}

func (b *Broker) fill(id, symbol string, qty int, px decimal.Decimal, kind string) {
	q := b.quotes[symbol]
	tmpl := model.Position{
		Symbol:     symbol,
		Underlying: q.Underlying,
		Kind:       model.Option,
		Right:      q.Right,
		Strike:     q.Strike,
		Expiry:     q.Expiry,
	}
	b.pf.ApplyFill(tmpl, qty, px, b.multiplier)
	b.trades = append(b.trades, Trade{Time: b.now, OrderID: id, Symbol: symbol, Quantity: qty, Price: px.String(), Kind: kind, Cash: b.pf.Cash.StringFixed(2)})
}

// Value marks the book to market: shares at the last underlying price and
// options at their mid, falling back to cost when unquoted.
func (b *Broker) Value() decimal.Decimal {
	return b.pf.MarkValue(b.underlying, b.quotes, b.multiplier)
}

// Drain returns and clears the queued order events.
func (b *Broker) Drain() []model.OrderEvent {
	ev := b.events
	b.events = nil
	return ev
}

func (b *Broker) Trades() []Trade {
	return append([]Trade(nil), b.trades...)
}

func (b *Broker) OpenOrders() int {
	return len(b.resting)
}

func (b *Broker) emit(ev model.OrderEvent) {
	b.events = append(b.events, ev)
}

func (b *Broker) restingIDs() []string {
	ids := make([]string, 0, len(b.resting))
	for id := range b.resting {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Broker) positionSymbols() []string {
	syms := make([]string, 0, len(b.pf.Positions))
	for s := range b.pf.Positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
