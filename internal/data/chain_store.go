package data

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

type chainRequest struct {
	ticker  model.Ticker
	replyCh chan []model.Ticker
	action  string // "set" or "snapshot"
}

// ChainStore keeps the latest ticker per instrument behind a single goroutine
// and assembles chain snapshots on demand.
type ChainStore struct {
	requests   chan chainRequest
	updates    chan string
	indexPrice uint64 // float64 bits
	done       chan struct{}
}

func NewChainStore() *ChainStore {
	s := &ChainStore{
		requests: make(chan chainRequest, 1000),
		updates:  make(chan string, 256),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ChainStore) run() {
	defer close(s.done)
	tickers := make(map[string]model.Ticker)
	for req := range s.requests {
		switch req.action {
		case "set":
			tickers[req.ticker.Instrument] = req.ticker
		case "snapshot":
			out := make([]model.Ticker, 0, len(tickers))
			for _, t := range tickers {
				out = append(out, t)
			}
			req.replyCh <- out
		}
	}
}

// Set records the latest ticker and signals Updates without blocking.
func (s *ChainStore) Set(t model.Ticker) {
	s.requests <- chainRequest{ticker: t, action: "set"}
	if t.UnderlyingPrice > 0 {
		s.SetIndexPrice(t.UnderlyingPrice)
	}
	select {
	case s.updates <- t.Instrument:
	default:
	}
}

// Updates yields instrument names as tickers arrive. Bursts are coalesced.
func (s *ChainStore) Updates() <-chan string {
	return s.updates
}

func (s *ChainStore) SetIndexPrice(v float64) {
	atomic.StoreUint64(&s.indexPrice, math.Float64bits(v))
}

func (s *ChainStore) IndexPrice() float64 {
	return math.Float64frombits(atomic.LoadUint64(&s.indexPrice))
}

// Snapshot builds a market snapshot for underlying from every ticker that
// parses as an option contract. Contracts are sorted by symbol.
func (s *ChainStore) Snapshot(underlying string, now time.Time) model.Snapshot {
	ch := make(chan []model.Ticker, 1)
	s.requests <- chainRequest{replyCh: ch, action: "snapshot"}
	tickers := <-ch

	chain := make([]model.OptionContract, 0, len(tickers))
	for i := range tickers {
		c, ok := tickers[i].Contract()
		if !ok || c.Underlying != underlying {
			continue
		}
		chain = append(chain, c)
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].Symbol < chain[j].Symbol })

	return model.Snapshot{
		Time:            now,
		Underlying:      underlying,
		UnderlyingPrice: decimal.NewFromFloat(s.IndexPrice()),
		Chains:          map[string][]model.OptionContract{underlying: chain},
	}
}

// Close stops the store goroutine. Set must not be called afterwards.
func (s *ChainStore) Close() {
	close(s.requests)
	<-s.done
}
