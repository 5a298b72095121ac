package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tolelom/tolarena/core"
)

// Client calls a node's JSON-RPC endpoint. Each request carries a fresh
// UUID so responses can be correlated in logs.
type Client struct {
	url       string
	authToken string
	http      *http.Client
}

// NewClient returns a Client for the endpoint at url.
func NewClient(url, authToken string) *Client {
	return &Client{
		url:       url,
		authToken: authToken,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Call invokes method with params and decodes the result into out (which
// may be nil). RPC-level failures are returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	id := uuid.NewString()
	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		ID     any             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if got, _ := envelope.ID.(string); got != id {
		return fmt.Errorf("%s: response id %v does not match request %s", method, envelope.ID, id)
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

// SendTx submits a signed transaction and returns its ID.
func (c *Client) SendTx(ctx context.Context, tx *core.Transaction) (string, error) {
	var res struct {
		TxID string `json:"tx_id"`
	}
	if err := c.Call(ctx, "sendTx", tx, &res); err != nil {
		return "", err
	}
	return res.TxID, nil
}

// Game fetches a game record.
func (c *Client) Game(ctx context.Context, id uint64) (*core.Game, error) {
	var g core.Game
	if err := c.Call(ctx, "getGame", map[string]uint64{"id": id}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Nonce returns the next nonce to use for address.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	var res struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := c.Call(ctx, "getBalance", map[string]string{"address": address}, &res); err != nil {
		return 0, err
	}
	return res.Nonce, nil
}
