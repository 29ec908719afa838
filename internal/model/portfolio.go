package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SecurityKind int

const (
	Equity SecurityKind = iota + 1
	Option
)

// Position is a venue-owned holding. Quantity is signed: short options are negative.
type Position struct {
	Symbol     string
	Underlying string
	Kind       SecurityKind
	Right      Right // zero for equity
	Quantity   int
	Strike     decimal.Decimal
	Expiry     time.Time
	AvgPrice   decimal.Decimal
}

func (p Position) IsOption() bool { return p.Kind == Option }

// Portfolio is a read-only view of cash and holdings.
type Portfolio struct {
	Cash      decimal.Decimal
	Positions map[string]Position
}

// Shares returns the equity quantity held in ticker.
func (p Portfolio) Shares(ticker string) int {
	pos, ok := p.Positions[ticker]
	if !ok || pos.Kind != Equity {
		return 0
	}
	return pos.Quantity
}

// OptionPositions returns open option positions of the given right on underlying.
func (p Portfolio) OptionPositions(underlying string, right Right) []Position {
	var out []Position
	for _, pos := range p.Positions {
		if pos.Kind != Option || pos.Right != right || pos.Quantity == 0 {
			continue
		}
		if underlying != "" && pos.Underlying != underlying {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// ShortContracts sums |quantity| over short option positions of right.
func (p Portfolio) ShortContracts(underlying string, right Right) int {
	n := 0
	for _, pos := range p.OptionPositions(underlying, right) {
		if pos.Quantity < 0 {
			n += -pos.Quantity
		}
	}
	return n
}

// Clone deep-copies the position map so callers cannot mutate venue state.
func (p Portfolio) Clone() Portfolio {
	out := Portfolio{Cash: p.Cash, Positions: make(map[string]Position, len(p.Positions))}
	for k, v := range p.Positions {
		out.Positions[k] = v
	}
	return out
}

// ApplyFill books qty at px: cash moves by qty × px × multiplier and the
// position for tmpl.Symbol is created, resized or removed. tmpl supplies the
// descriptive fields when the position is new.
func (p *Portfolio) ApplyFill(tmpl Position, qty int, px decimal.Decimal, multiplier int) {
	if p.Positions == nil {
		p.Positions = make(map[string]Position)
	}
	p.Cash = p.Cash.Sub(px.Mul(decimal.NewFromInt(int64(qty * multiplier))))

	pos, ok := p.Positions[tmpl.Symbol]
	if !ok {
		pos = tmpl
		pos.Quantity = 0
	}
	pos.AvgPrice = averagePrice(pos.Quantity, pos.AvgPrice, qty, px)
	pos.Quantity += qty
	if pos.Quantity == 0 {
		delete(p.Positions, tmpl.Symbol)
		return
	}
	p.Positions[tmpl.Symbol] = pos
}

// averagePrice keeps the cost basis on adds and leaves it unchanged on reductions.
func averagePrice(held int, avg decimal.Decimal, qty int, px decimal.Decimal) decimal.Decimal {
	if held == 0 || (held > 0) != (held+qty > 0) {
		return px
	}
	if (held > 0) != (qty > 0) {
		return avg
	}
	total := avg.Mul(decimal.NewFromInt(int64(held))).Add(px.Mul(decimal.NewFromInt(int64(qty))))
	return total.Div(decimal.NewFromInt(int64(held + qty)))
}

// MarkValue prices the book: shares at underlying and options at the mid of
// their quote in quotes, falling back to cost when unquoted.
func (p Portfolio) MarkValue(underlying decimal.Decimal, quotes map[string]OptionContract, multiplier int) decimal.Decimal {
	v := p.Cash
	mult := decimal.NewFromInt(int64(multiplier))
	for _, pos := range p.Positions {
		qty := decimal.NewFromInt(int64(pos.Quantity))
		if !pos.IsOption() {
			v = v.Add(underlying.Mul(qty))
			continue
		}
		mark := pos.AvgPrice
		if q, ok := quotes[pos.Symbol]; ok {
			if mid, ok := q.Mid(); ok {
				mark = mid
			}
		}
		v = v.Add(mark.Mul(qty).Mul(mult))
	}
	return v
}
