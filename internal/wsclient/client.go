// Package wsclient streams Deribit ticker notifications over JSON-RPC
// websockets and hands them to a callback as model.Ticker values.
package wsclient

import (
	"context"
	"log"
	"time"

	"Options_Wheel/internal/model"

	"github.com/gorilla/websocket"
)

const DefaultURL = "wss://www.deribit.com/ws/api/v2"

// Credentials authenticate the session; empty credentials skip public/auth.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// ConnectAndServe dials url, subscribes to channels and feeds every ticker to
// handler. It reconnects after a second on any failure and returns when ctx
// is done.
func ConnectAndServe(ctx context.Context, url string, creds Credentials, channels []string, handler func(model.Ticker)) {
	for ctx.Err() == nil {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Println("[WS] Dial error:", err)
			sleep(ctx, time.Second)
			continue
		}
		log.Println("[WS] Connected")

		if creds.ClientID != "" {
			if err := Authenticate(ws, creds); err != nil {
				log.Println("[WS] Auth failed:", err)
				ws.Close()
				sleep(ctx, time.Second)
				continue
			}
		}

		if err := SubscribeMultiple(ws, channels); err != nil {
			log.Println("[WS] Subscribe failed:", err)
			ws.Close()
			sleep(ctx, time.Second)
			continue
		}

		stop := context.AfterFunc(ctx, func() { ws.Close() })
		ReadLoop(ws, handler)
		stop()
		ws.Close()
		if ctx.Err() != nil {
			return
		}
		log.Println("[WS] Disconnected; reconnecting…")
		sleep(ctx, time.Second)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
