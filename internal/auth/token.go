// Package auth obtains Deribit API access tokens.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://www.deribit.com"

// Token is a client-credentials grant.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// FetchToken exchanges client credentials for an access token via public/auth.
func FetchToken(ctx context.Context, baseURL, clientID, clientSecret string) (Token, error) {
	if clientID == "" || clientSecret == "" {
		return Token{}, errors.New("missing DERIBIT_CLIENT_ID or DERIBIT_CLIENT_SECRET")
	}
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "public/auth",
		"params": map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     clientID,
			"client_secret": clientSecret,
		},
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v2/public/auth", bytes.NewReader(body))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)

	var r struct {
		Result struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	if r.Error != nil {
		return Token{}, fmt.Errorf("auth error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.Result.AccessToken == "" {
		return Token{}, fmt.Errorf("auth: empty token (status %s)", res.Status)
	}
	log.Printf("[AUTH] token acquired, expires in %ds", r.Result.ExpiresIn)
	return Token{
		AccessToken: r.Result.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(r.Result.ExpiresIn) * time.Second),
	}, nil
}

// AccountEquity reads the account equity for currency via private/get_account_summary.
func AccountEquity(ctx context.Context, baseURL string, tok Token, currency string) (float64, error) {
	url := fmt.Sprintf("%s/api/v2/private/get_account_summary?currency=%s", baseURL, currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("account summary: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return 0, fmt.Errorf("account summary: %s", res.Status)
	}
	var r struct {
		Result struct {
			Equity float64 `json:"equity"`
		} `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("decode account summary: %w", err)
	}
	return r.Result.Equity, nil
}
