package wsclient

import (
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

const subscribeRequestID = 42

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// TickerChannels returns the 100ms ticker channel for each instrument.
func TickerChannels(instruments []string) []string {
	out := make([]string, len(instruments))
	for i, s := range instruments {
		out[i] = "ticker." + s + ".100ms"
	}
	return out
}

func SubscribeMultiple(ws *websocket.Conn, channels []string) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      subscribeRequestID,
		Method:  "public/subscribe",
		Params:  map[string]any{"channels": channels},
	}
	if err := ws.WriteJSON(req); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	log.Printf("[SUBSCRIBE MULTI] Sent %d channels", len(channels))
	if err := waitForReply(ws, subscribeRequestID); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Println("[SUBSCRIBE MULTI] Subscribe succeeded")
	return nil
}
