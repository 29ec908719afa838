package wsclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

const tickerMsg = `{"jsonrpc":"2.0","method":"subscription","params":{"channel":"ticker.SOL_USDC-27MAR26-120-P.100ms",
"data":{"instrument_name":"SOL_USDC-27MAR26-120-P","best_bid_price":2.15,"best_ask_price":2.3,
"underlying_price":131.2,"index_price":131.0,"timestamp":1767225600000,"greeks":{"delta":-0.21}}}}`

func TestParseTicker(t *testing.T) {
	tk, ok, err := ParseTicker([]byte(tickerMsg))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if tk.Instrument != "SOL_USDC-27MAR26-120-P" || tk.Bid != 2.15 || tk.Ask != 2.3 || tk.Delta != -0.21 {
		t.Fatalf("ticker = %+v", tk)
	}
	if tk.UnderlyingPrice != 131.0 || tk.TsMs != 1767225600000 {
		t.Fatalf("ticker = %+v", tk)
	}
}

func TestParseTickerSkipsOtherMessages(t *testing.T) {
	for _, raw := range []string{
		`{"jsonrpc":"2.0","id":42,"result":["ticker.X.100ms"]}`,
		`{"jsonrpc":"2.0","method":"subscription","params":{"channel":"book.X.100ms","data":{}}}`,
	} {
		if _, ok, err := ParseTicker([]byte(raw)); ok || err != nil {
			t.Fatalf("%s: ok=%v err=%v", raw, ok, err)
		}
	}
	if _, _, err := ParseTicker([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseTickerEmptyBook(t *testing.T) {
	raw := `{"method":"subscription","params":{"channel":"ticker.X.100ms","data":{"instrument_name":"X","best_bid_price":null,"underlying_price":10}}}`
	tk, ok, err := ParseTicker([]byte(raw))
	if err != nil || !ok || tk.Bid != 0 || tk.Ask != 0 || tk.UnderlyingPrice != 10 {
		t.Fatalf("ticker=%+v ok=%v err=%v", tk, ok, err)
	}
}

func TestTickerChannels(t *testing.T) {
	got := TickerChannels([]string{"A", "B"})
	if strings.Join(got, ",") != "ticker.A.100ms,ticker.B.100ms" {
		t.Fatalf("channels = %v", got)
	}
}

func TestSubscribeWaitsForReply(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		var req rpcRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		ws.WriteMessage(websocket.TextMessage, []byte(tickerMsg))
		reply, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": req.Params["channels"]})
		ws.WriteMessage(websocket.TextMessage, reply)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	if err := SubscribeMultiple(ws, []string{"ticker.X.100ms"}); err != nil {
		t.Fatal(err)
	}
}
