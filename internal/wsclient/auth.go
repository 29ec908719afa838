package wsclient

import (
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

const authRequestID = 9999

// Authenticate sends public/auth with client credentials and waits for the reply.
func Authenticate(ws *websocket.Conn, creds Credentials) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      authRequestID,
		Method:  "public/auth",
		Params: map[string]any{
			"grant_type":    "client_credentials",
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
		},
	}
	log.Printf("[WS] Sending auth request (client_id=%s)", creds.ClientID)
	if err := ws.WriteJSON(req); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	if err := waitForReply(ws, authRequestID); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	log.Println("[AUTH] WebSocket authentication succeeded")
	return nil
}
