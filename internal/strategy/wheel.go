package strategy

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"
	"Options_Wheel/internal/notify"

	"github.com/shopspring/decimal"
)

// Venue accepts orders and owns the portfolio. Submissions return once the
// venue has acknowledged them; a ticket may already carry an inline fill.
type Venue interface {
	Portfolio() model.Portfolio
	SubmitMarketOrder(ctx context.Context, symbol string, qty int) (model.OrderTicket, error)
	SubmitLimitOrder(ctx context.Context, symbol string, qty int, limit decimal.Decimal) (model.OrderTicket, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Wheel sells cash-secured puts and covered calls and pairs every filled
// short with a buy-to-close take-profit. It is not safe for concurrent use:
// the host delivers snapshots and order events one at a time.
type Wheel struct {
	cfg   config.Strategy
	venue Venue
	log   *log.Logger
	ntf   notify.Notifier

	state StrategyState
	byTP  map[string]string // take-profit order ID -> entry order ID
}

type Option func(*Wheel)

func WithLogger(l *log.Logger) Option {
	return func(w *Wheel) { w.log = l }
}

func WithNotifier(n notify.Notifier) Option {
	return func(w *Wheel) { w.ntf = n }
}

func NewWheel(cfg config.Strategy, venue Venue, opts ...Option) *Wheel {
	w := &Wheel{
		cfg:   cfg,
		venue: venue,
		log:   log.New(os.Stderr, "", log.LstdFlags),
		state: NewStrategyState(),
		byTP:  make(map[string]string),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// State returns a deep copy of the controller state.
func (w *Wheel) State() StrategyState {
	return w.state.Clone()
}

// OnData evaluates one snapshot. Holding shares evaluates the call leg first;
// the put leg is evaluated on every tick regardless.
func (w *Wheel) OnData(ctx context.Context, snap model.Snapshot) []Transition {
	w.state.LastTick = snap.Time
	if !w.cfg.WarmedUp(snap.Time) {
		return []Transition{{Kind: SkipWarmUp}}
	}

	out := w.resumeLegs(ctx, snap.Time)

	pf := w.venue.Portfolio()
	chain := snap.Chain(w.cfg.Ticker)
	shares := pf.Shares(w.cfg.Ticker)

	if shares > 0 {
		out = append(out, Transition{Kind: HoldingSharesEvaluateCallAndPut, Detail: fmt.Sprintf("shares=%d", shares)})
		out = append(out, w.evaluateCall(ctx, snap.Time, chain, pf, shares)...)
	} else {
		out = append(out, Transition{Kind: NoSharesEvaluatePut})
	}
	out = append(out, w.evaluatePut(ctx, snap.Time, chain, pf)...)
	return out
}

func (w *Wheel) evaluateCall(ctx context.Context, now time.Time, chain []model.OptionContract, pf model.Portfolio, shares int) []Transition {
	sold := pf.ShortContracts(w.cfg.Ticker, model.Call) + w.state.PendingContracts(model.Call)
	coverage := sold * w.cfg.ContractMultiplier
	if coverage+w.cfg.ContractMultiplier > shares {
		return []Transition{{Kind: SkipCallCovered, Right: model.Call, Detail: fmt.Sprintf("coverage=%d shares=%d", coverage, shares)}}
	}

	c, ok := SelectBest(chain, model.Call, w.cfg)
	if !ok {
		return []Transition{{Kind: SkipNoContract, Right: model.Call}}
	}
	return w.enter(ctx, now, c)
}

func (w *Wheel) evaluatePut(ctx context.Context, now time.Time, chain []model.OptionContract, pf model.Portfolio) []Transition {
	held := pf.OptionPositions(w.cfg.Ticker, model.Put)
	if !w.cfg.AllowConcurrentPuts {
		if pf.ShortContracts(w.cfg.Ticker, model.Put) > 0 || w.state.PendingContracts(model.Put) > 0 {
			return []Transition{{Kind: SkipPutAlreadyOpen, Right: model.Put}}
		}
	}

	c, ok := SelectBest(chain, model.Put, w.cfg)
	if !ok {
		return []Transition{{Kind: SkipNoContract, Right: model.Put}}
	}

	check := CheckPutCollateral(c, pf.Cash, append(held, w.state.pendingPuts()...), w.cfg)
	if !check.Allowed {
		w.log.Printf("[RISK] %s %s", c.Symbol, check)
		return []Transition{{Kind: SkipPutRiskDenied, Right: model.Put, Symbol: c.Symbol, Detail: check.String()}}
	}
	return w.enter(ctx, now, c)
}

// enter sells one contract at market and opens a leg waiting for its fill.
func (w *Wheel) enter(ctx context.Context, now time.Time, c model.OptionContract) []Transition {
	ticket, err := w.venue.SubmitMarketOrder(ctx, c.Symbol, -1)
	if err != nil {
		w.log.Printf("[WHEEL] sell %s failed: %v", c.Symbol, err)
		return []Transition{{Kind: EntryRejected, Right: c.Right, Symbol: c.Symbol, Detail: err.Error()}}
	}
	if ticket.Status == model.Rejected {
		w.log.Printf("[WHEEL] sell %s rejected by venue (order=%s)", c.Symbol, ticket.ID)
		return []Transition{{Kind: EntryRejected, Right: c.Right, Symbol: c.Symbol, OrderID: ticket.ID}}
	}

	leg := &Leg{
		Symbol:       c.Symbol,
		Right:        c.Right,
		Strike:       c.Strike,
		Expiry:       c.Expiry,
		EntryOrderID: ticket.ID,
		Quantity:     -1,
		Phase:        EntryPending,
		Opened:       now,
	}
	w.state.Legs[ticket.ID] = leg
	if c.Right == model.Put {
		w.state.Put = ticket.ID
	} else {
		w.state.Call = ticket.ID
	}
	w.log.Printf("[WHEEL] sell 1 %s strike=%s expiry=%s bid=%s delta=%.3f order=%s",
		c.Symbol, c.Strike, c.Expiry.Format("2006-01-02"), c.Bid, c.Delta, ticket.ID)

	out := []Transition{{Kind: EntrySubmitted, Right: c.Right, Symbol: c.Symbol, OrderID: ticket.ID, Price: c.Bid}}
	if ticket.FilledQty != 0 {
		out = append(out, w.progressEntry(ctx, leg, ticket.Status, ticket.FilledQty, ticket.AvgFillPrice)...)
	}
	return out
}

// OnOrderEvent applies an asynchronous venue report. Every event is logged verbatim.
func (w *Wheel) OnOrderEvent(ctx context.Context, ev model.OrderEvent) []Transition {
	w.log.Printf("[WHEEL] %s", ev)

	if ev.IsAssignment {
		return w.onAssignment(ctx, ev)
	}
	if leg, ok := w.state.Legs[ev.OrderID]; ok && leg.Phase == EntryPending {
		return w.progressEntry(ctx, leg, ev.Status, ev.CumQty, ev.AvgFillPrice)
	}
	if entryID, ok := w.byTP[ev.OrderID]; ok {
		return w.progressTakeProfit(entryID, ev)
	}
	return nil
}

// progressEntry moves a pending leg forward. Re-delivery of a fill the leg has
// already seen is ignored.
func (w *Wheel) progressEntry(ctx context.Context, leg *Leg, status model.OrderStatus, cumQty int, avg decimal.Decimal) []Transition {
	if leg.Phase != EntryPending {
		return nil
	}
	if absInt(cumQty) > absInt(leg.FilledQty) {
		leg.FilledQty = cumQty
		leg.AvgFillPrice = avg
	}

	switch {
	case status == model.Filled || (status.Closed() && leg.FilledQty != 0):
		leg.Phase = LegOpen
		out := []Transition{{Kind: EntryFilled, Right: leg.Right, Symbol: leg.Symbol, OrderID: leg.EntryOrderID, Price: leg.AvgFillPrice}}
		return append(out, w.placeTakeProfit(ctx, leg)...)
	case status.Closed():
		w.state.drop(leg.EntryOrderID)
		return []Transition{{Kind: EntryRejected, Right: leg.Right, Symbol: leg.Symbol, OrderID: leg.EntryOrderID, Detail: status.String()}}
	}
	return nil
}

// TakeProfitPrice is TakeProfitPct of the absolute average fill, snapped to the
// price increment. A credit whose share rounds below one increment, such as a
// 0.01 fill at 50%, is floored to one increment so the order stays valid; that
// take-profit buys back at the full credit and books no profit.
func TakeProfitPrice(avgFill decimal.Decimal, cfg config.Strategy) decimal.Decimal {
	p := roundToIncrement(avgFill.Abs().Mul(cfg.TakeProfitPct), cfg.PriceIncrement)
	if p.LessThan(cfg.PriceIncrement) {
		return cfg.PriceIncrement
	}
	return p
}

func (w *Wheel) placeTakeProfit(ctx context.Context, leg *Leg) []Transition {
	qty := -leg.FilledQty
	price := TakeProfitPrice(leg.AvgFillPrice, w.cfg)
	ticket, err := w.venue.SubmitLimitOrder(ctx, leg.Symbol, qty, price)
	if err == nil && ticket.Status == model.Rejected {
		err = fmt.Errorf("rejected by venue (order=%s)", ticket.ID)
	}
	if err != nil {
		w.log.Printf("[WHEEL] take-profit %s @ %s failed: %v", leg.Symbol, price, err)
		return []Transition{{Kind: TakeProfitRejected, Right: leg.Right, Symbol: leg.Symbol, Price: price, Detail: err.Error()}}
	}

	leg.TakeProfit = &model.TakeProfitOrder{
		OrderID:    ticket.ID,
		Symbol:     leg.Symbol,
		Quantity:   qty,
		LimitPrice: price,
		State:      model.TakeProfitOpen,
	}
	w.byTP[ticket.ID] = leg.EntryOrderID
	w.log.Printf("[WHEEL] take-profit buy %d %s @ %s (fill=%s) order=%s", qty, leg.Symbol, price, leg.AvgFillPrice, ticket.ID)
	w.notify(ctx, fmt.Sprintf("[WHEEL] sold %s @ %s, take-profit @ %s", leg.Symbol, leg.AvgFillPrice, price))

	out := []Transition{{Kind: TakeProfitPlaced, Right: leg.Right, Symbol: leg.Symbol, OrderID: ticket.ID, Price: price}}
	if ticket.Status == model.Filled {
		out = append(out, w.progressTakeProfit(leg.EntryOrderID, model.OrderEvent{OrderID: ticket.ID, Symbol: leg.Symbol, Status: model.Filled})...)
	}
	return out
}

func (w *Wheel) progressTakeProfit(entryID string, ev model.OrderEvent) []Transition {
	leg, ok := w.state.Legs[entryID]
	if !ok || leg.TakeProfit == nil {
		delete(w.byTP, ev.OrderID)
		return nil
	}
	tp := leg.TakeProfit

	switch ev.Status {
	case model.Filled:
		tp.State = model.TakeProfitFilled
		w.forget(entryID, tp.OrderID)
		w.log.Printf("[WHEEL] take-profit filled %s @ %s", tp.Symbol, tp.LimitPrice)
		return []Transition{{Kind: TakeProfitFilled, Right: leg.Right, Symbol: tp.Symbol, OrderID: tp.OrderID, Price: tp.LimitPrice}}
	case model.Cancelled, model.Rejected:
		if tp.State != model.TakeProfitOpen && tp.State != model.TakeProfitStale {
			return nil
		}
		tp.State = model.TakeProfitCancelled
		w.forget(entryID, tp.OrderID)
		return []Transition{{Kind: TakeProfitCancelled, Right: leg.Right, Symbol: tp.Symbol, OrderID: tp.OrderID, Detail: ev.Status.String()}}
	}
	return nil
}

// onAssignment resolves the take-profits left behind by an exercised short.
// Legs on the symbol are consumed oldest first up to the assigned quantity.
func (w *Wheel) onAssignment(ctx context.Context, ev model.OrderEvent) []Transition {
	remaining := absInt(ev.FillQty)
	var out []Transition
	for _, id := range w.legsBySymbol(ev.Symbol) {
		if ev.FillQty != 0 && remaining <= 0 {
			break
		}
		leg := w.state.Legs[id]
		remaining -= absInt(leg.FilledQty)
		tp := leg.TakeProfit
		if tp == nil || tp.State != model.TakeProfitOpen {
			if leg.Phase == LegOpen {
				w.state.drop(id)
			}
			continue
		}

		if w.cfg.CancelTakeProfitOnAssignment {
			if err := w.venue.CancelOrder(ctx, tp.OrderID); err != nil {
				w.log.Printf("[WHEEL] cancel take-profit %s failed: %v", tp.OrderID, err)
			}
			tp.State = model.TakeProfitCancelled
			w.forget(id, tp.OrderID)
			out = append(out, Transition{Kind: AssignedCancelStaleTakeProfit, Right: leg.Right, Symbol: leg.Symbol, OrderID: tp.OrderID})
			continue
		}
		tp.State = model.TakeProfitStale
		leg.Phase = LegStale
		w.log.Printf("[WHEEL] %s assigned, take-profit %s left working", leg.Symbol, tp.OrderID)
		out = append(out, Transition{Kind: AssignedTakeProfitStale, Right: leg.Right, Symbol: leg.Symbol, OrderID: tp.OrderID})
	}
	if len(out) > 0 {
		w.notify(ctx, fmt.Sprintf("[WHEEL] assigned on %s", ev.Symbol))
	}
	return out
}

// resumeLegs retries take-profits that failed to place. A filled leg still
// without one after its expiry date is dropped.
func (w *Wheel) resumeLegs(ctx context.Context, now time.Time) []Transition {
	var out []Transition
	for _, id := range w.openLegs(func(l *Leg) bool { return l.TakeProfit == nil }) {
		leg := w.state.Legs[id]
		if !leg.Expiry.IsZero() && model.DaysBetween(leg.Expiry, now) > 0 {
			w.state.drop(id)
			w.log.Printf("[WHEEL] %s expired without a take-profit, leg dropped", leg.Symbol)
			out = append(out, Transition{Kind: LegExpired, Right: leg.Right, Symbol: leg.Symbol, OrderID: id})
			continue
		}
		out = append(out, w.placeTakeProfit(ctx, leg)...)
	}
	return out
}

// legsBySymbol returns filled legs on symbol ordered by open time.
func (w *Wheel) legsBySymbol(symbol string) []string {
	return w.openLegs(func(l *Leg) bool { return l.Symbol == symbol })
}

func (w *Wheel) openLegs(keep func(*Leg) bool) []string {
	var ids []string
	for id, l := range w.state.Legs {
		if l.Phase == LegOpen && keep(l) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := w.state.Legs[ids[i]], w.state.Legs[ids[j]]
		if !a.Opened.Equal(b.Opened) {
			return a.Opened.Before(b.Opened)
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (w *Wheel) forget(entryID, tpID string) {
	delete(w.byTP, tpID)
	w.state.drop(entryID)
}

func (w *Wheel) notify(ctx context.Context, msg string) {
	if w.ntf == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.ntf.Send(ctx, msg); err != nil {
		w.log.Printf("[WHEEL] notify: %v", err)
	}
}
