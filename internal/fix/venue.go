// Package fix is the live venue: orders go out over a Deribit FIX 4.4
// session and execution reports come back as model.OrderEvent values.
package fix

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
)

var ErrNotLoggedOn = errors.New("fix session not logged on")

type liveOrder struct {
	symbol string
	qty    int
	typ    model.OrderType
	cumQty int
	status model.OrderStatus
}

// Venue keeps a local ledger seeded from the configured starting cash and
// updated from execution reports.
type Venue struct {
	app        *App
	initr      *quickfix.Initiator
	multiplier int
	log        *log.Logger

	mu      sync.Mutex
	pf      model.Portfolio
	orders  map[string]*liveOrder
	cancels map[string]string // cancel ClOrdID -> original ClOrdID
	execs   map[string]struct{}

	events chan model.OrderEvent
	done   chan struct{}
	once   sync.Once
}

type Option func(*Venue)

func WithLogger(l *log.Logger) Option {
	return func(v *Venue) { v.log = l }
}

func NewVenue(cfg config.Strategy, creds Credentials, opts ...Option) *Venue {
	v := &Venue{
		multiplier: cfg.ContractMultiplier,
		log:        log.New(os.Stderr, "", log.LstdFlags),
		pf:         model.Portfolio{Cash: cfg.StartingCash, Positions: make(map[string]model.Position)},
		orders:     make(map[string]*liveOrder),
		cancels:    make(map[string]string),
		execs:      make(map[string]struct{}),
		events:     make(chan model.OrderEvent, 256),
		done:       make(chan struct{}),
	}
	v.app = &App{creds: creds, onExec: v.onExecutionReport}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Start opens the FIX session described by the settings file at cfgPath.
func (v *Venue) Start(cfgPath string) error {
	initr, err := startInitiator(cfgPath, v.app)
	if err != nil {
		return err
	}
	v.initr = initr
	return nil
}

func (v *Venue) Stop() {
	v.once.Do(func() {
		close(v.done)
		if v.initr != nil {
			v.initr.Stop()
		}
	})
}

// Events delivers order events in the order the session received them.
func (v *Venue) Events() <-chan model.OrderEvent { return v.events }

// LoggedOn reports whether orders can be sent.
func (v *Venue) LoggedOn() bool {
	_, ok := v.app.Session()
	return ok
}

func (v *Venue) Portfolio() model.Portfolio {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pf.Clone()
}

func (v *Venue) SubmitMarketOrder(_ context.Context, symbol string, qty int) (model.OrderTicket, error) {
	id := uuid.New().String()
	t := model.OrderTicket{ID: id, Symbol: symbol, Type: model.Market, Quantity: qty}
	if qty == 0 {
		return t, fmt.Errorf("zero quantity order for %s", symbol)
	}
	v.track(id, symbol, qty, model.Market)
	if err := v.send(newMarketOrder(id, symbol, qty)); err != nil {
		v.untrack(id)
		return t, fmt.Errorf("send market %s: %w", symbol, err)
	}
	v.log.Printf("[FIX] sent market clOrdID=%s %s qty=%d", id, symbol, qty)
	t.Status = model.Submitted
	return t, nil
}

func (v *Venue) SubmitLimitOrder(_ context.Context, symbol string, qty int, limit decimal.Decimal) (model.OrderTicket, error) {
	id := uuid.New().String()
	t := model.OrderTicket{ID: id, Symbol: symbol, Type: model.Limit, Quantity: qty, LimitPrice: limit}
	if qty == 0 || !limit.IsPositive() {
		return t, fmt.Errorf("invalid limit order %d %s @ %s", qty, symbol, limit)
	}
	v.track(id, symbol, qty, model.Limit)
	if err := v.send(newLimitOrder(id, symbol, qty, limit)); err != nil {
		v.untrack(id)
		return t, fmt.Errorf("send limit %s: %w", symbol, err)
	}
	v.log.Printf("[FIX] sent limit clOrdID=%s %s qty=%d px=%s", id, symbol, qty, limit)
	t.Status = model.Submitted
	return t, nil
}

func (v *Venue) CancelOrder(_ context.Context, id string) error {
	v.mu.Lock()
	o, ok := v.orders[id]
	if !ok || o.status.Closed() {
		v.mu.Unlock()
		return fmt.Errorf("order %s not open", id)
	}
	cancelID := uuid.New().String()
	v.cancels[cancelID] = id
	symbol, qty := o.symbol, o.qty
	v.mu.Unlock()

	if err := v.send(newCancel(id, cancelID, symbol, qty)); err != nil {
		return fmt.Errorf("send cancel %s: %w", id, err)
	}
	v.log.Printf("[FIX] sent cancel origClOrdID=%s", id)
	return nil
}

func (v *Venue) track(id, symbol string, qty int, typ model.OrderType) {
	v.mu.Lock()
	v.orders[id] = &liveOrder{symbol: symbol, qty: qty, typ: typ, status: model.Submitted}
	v.mu.Unlock()
}

func (v *Venue) untrack(id string) {
	v.mu.Lock()
	delete(v.orders, id)
	v.mu.Unlock()
}

// execReport is the subset of an ExecutionReport (35=8) the venue uses.
type execReport struct {
	ExecID      string
	ClOrdID     string
	OrigClOrdID string
	OrdStatus   enum.OrdStatus
	Symbol      string
	LastQty     decimal.Decimal
	LastPx      decimal.Decimal
	CumQty      decimal.Decimal
	AvgPx       decimal.Decimal
	Text        string
	Time        time.Time
}

func parseExecReport(msg *quickfix.Message) execReport {
	str := func(t quickfix.Tag) string {
		s, _ := msg.Body.GetString(t)
		return s
	}
	num := func(t quickfix.Tag) decimal.Decimal {
		d, err := decimal.NewFromString(str(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	r := execReport{
		ExecID:      str(tag.ExecID),
		ClOrdID:     str(tag.ClOrdID),
		OrigClOrdID: str(tag.OrigClOrdID),
		OrdStatus:   enum.OrdStatus(str(tag.OrdStatus)),
		Symbol:      str(tag.Symbol),
		LastQty:     num(tag.LastQty),
		LastPx:      num(tag.LastPx),
		CumQty:      num(tag.CumQty),
		AvgPx:       num(tag.AvgPx),
		Text:        str(tag.Text),
	}
	if ts, err := msg.Body.GetTime(tag.TransactTime); err == nil {
		r.Time = ts
	} else {
		r.Time = time.Now().UTC()
	}
	return r
}

func statusOf(s enum.OrdStatus) (model.OrderStatus, bool) {
	switch s {
	case enum.OrdStatus_NEW:
		return model.Submitted, true
	case enum.OrdStatus_PARTIALLY_FILLED:
		return model.PartiallyFilled, true
	case enum.OrdStatus_FILLED:
		return model.Filled, true
	case enum.OrdStatus_CANCELED, enum.OrdStatus_EXPIRED:
		return model.Cancelled, true
	case enum.OrdStatus_REJECTED:
		return model.Rejected, true
	}
	return 0, false
}

func (v *Venue) onExecutionReport(msg *quickfix.Message) {
	ev, ok := v.apply(parseExecReport(msg))
	if !ok {
		return
	}
	select {
	case v.events <- ev:
	case <-v.done:
	}
}

// apply books the report into the ledger and translates it. ok is false for
// duplicates, unknown orders and transitional statuses.
func (v *Venue) apply(r execReport) (model.OrderEvent, bool) {
	status, ok := statusOf(r.OrdStatus)
	if !ok {
		return model.OrderEvent{}, false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if r.ExecID != "" {
		if _, dup := v.execs[r.ExecID]; dup {
			return model.OrderEvent{}, false
		}
		v.execs[r.ExecID] = struct{}{}
	}

	id := r.ClOrdID
	if orig, isCancel := v.cancels[id]; isCancel {
		id = orig
	} else if r.OrigClOrdID != "" {
		id = r.OrigClOrdID
	}
	o, known := v.orders[id]
	if !known {
		v.log.Printf("[FIX] exec report for unknown clOrdID=%s status=%s", r.ClOrdID, status)
		return model.OrderEvent{}, false
	}

	sign := 1
	if o.qty < 0 {
		sign = -1
	}
	cum := int(r.CumQty.IntPart()) * sign
	fillQty := int(r.LastQty.IntPart()) * sign
	if fillQty == 0 {
		fillQty = cum - o.cumQty
	}
	fillPx := r.LastPx
	if fillPx.IsZero() {
		fillPx = r.AvgPx
	}
	if fillQty != 0 && fillPx.IsPositive() {
		v.pf.ApplyFill(positionFor(o.symbol), fillQty, fillPx, v.multiplier)
	}
	if cum == 0 {
		cum = o.cumQty + fillQty
	}
	o.cumQty = cum
	o.status = status

	ev := model.OrderEvent{
		OrderID:      id,
		Symbol:       o.symbol,
		Time:         r.Time,
		Status:       status,
		FillQty:      fillQty,
		FillPrice:    fillPx,
		CumQty:       cum,
		AvgFillPrice: r.AvgPx,
		Message:      r.Text,
	}
	if status.Closed() {
		for c, orig := range v.cancels {
			if orig == id {
				delete(v.cancels, c)
			}
		}
	}
	return ev, true
}

func positionFor(symbol string) model.Position {
	t := model.Ticker{Instrument: symbol}
	c, ok := t.Contract()
	if !ok {
		return model.Position{Symbol: symbol, Kind: model.Equity}
	}
	return model.Position{
		Symbol:     symbol,
		Underlying: c.Underlying,
		Kind:       model.Option,
		Right:      c.Right,
		Strike:     c.Strike,
		Expiry:     c.Expiry,
	}
}
