package wsclient

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"Options_Wheel/internal/model"

	"github.com/gorilla/websocket"
)

type rpcReply struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Error  json.RawMessage `json:"error"`
	Params struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	} `json:"params"`
}

// waitForReply reads until the response carrying id arrives. Notifications
// received in between are dropped.
func waitForReply(ws *websocket.Conn, id int) error {
	ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer ws.SetReadDeadline(time.Time{})
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var r rpcReply
		if err := json.Unmarshal(raw, &r); err != nil {
			log.Println("[WS] Malformed reply:", string(raw))
			continue
		}
		if r.ID == nil || *r.ID != id {
			continue
		}
		if len(r.Error) > 0 && string(r.Error) != "null" {
			return fmt.Errorf("rpc error: %s", r.Error)
		}
		return nil
	}
}

// ReadLoop reads messages, keeps ping/pong alive and dispatches tickers to
// handler until the connection fails.
func ReadLoop(ws *websocket.Conn, handler func(model.Ticker)) {
	ws.SetReadDeadline(time.Now().Add(30 * time.Second))
	ws.SetPongHandler(func(_ string) error {
		ws.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					log.Println("[WS] Ping error:", err)
					return
				}
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Println("[WS] Read error:", err)
			return
		}
		ws.SetReadDeadline(time.Now().Add(30 * time.Second))
		t, ok, err := ParseTicker(raw)
		if err != nil {
			log.Println("[WS] Malformed message:", string(raw))
			continue
		}
		if ok {
			handler(t)
		}
	}
}

type tickerData struct {
	InstrumentName  string   `json:"instrument_name"`
	BestBidPrice    *float64 `json:"best_bid_price"`
	BestAskPrice    *float64 `json:"best_ask_price"`
	UnderlyingPrice float64  `json:"underlying_price"`
	IndexPrice      float64  `json:"index_price"`
	Timestamp       int64    `json:"timestamp"`
	Greeks          struct {
		Delta float64 `json:"delta"`
	} `json:"greeks"`
}

// ParseTicker decodes a ticker subscription notification. ok is false for
// acks and other channels.
func ParseTicker(raw []byte) (model.Ticker, bool, error) {
	var r rpcReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Ticker{}, false, err
	}
	if r.Method != "subscription" || !strings.HasPrefix(r.Params.Channel, "ticker.") {
		return model.Ticker{}, false, nil
	}
	var d tickerData
	if err := json.Unmarshal(r.Params.Data, &d); err != nil {
		return model.Ticker{}, false, err
	}
	t := model.Ticker{
		Instrument:      d.InstrumentName,
		Delta:           d.Greeks.Delta,
		UnderlyingPrice: d.IndexPrice,
		TsMs:            d.Timestamp,
	}
	if d.BestBidPrice != nil {
		t.Bid = *d.BestBidPrice
	}
	if d.BestAskPrice != nil {
		t.Ask = *d.BestAskPrice
	}
	if t.UnderlyingPrice == 0 {
		t.UnderlyingPrice = d.UnderlyingPrice
	}
	return t, true, nil
}
