// Package alpaca is a minimal client for the Alpaca trading API: the REST
// surface the engine needs (account state, order submission) and the
// trade_updates websocket stream.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultPaperBaseURL is the paper-trading REST endpoint.
const DefaultPaperBaseURL = "https://paper-api.alpaca.markets"

// Client is the REST client for the Alpaca trading API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new Alpaca REST client. baseURL is the API root, e.g.
// "https://paper-api.alpaca.markets"; when empty the paper endpoint is used.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultPaperBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetAccount returns the current trading account state.
func (c *Client) GetAccount(ctx context.Context) (Account, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return Account{}, fmt.Errorf("alpaca: get account: %w", err)
	}

	var acct Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return Account{}, fmt.Errorf("alpaca: decode account: %w", err)
	}
	return acct, nil
}

// Cash returns the account's available cash as a float. The API reports
// monetary values as decimal strings.
func (c *Client) Cash(ctx context.Context) (float64, error) {
	acct, err := c.GetAccount(ctx)
	if err != nil {
		return 0, err
	}
	cash, err := strconv.ParseFloat(acct.Cash, 64)
	if err != nil {
		return 0, fmt.Errorf("alpaca: parse cash %q: %w", acct.Cash, err)
	}
	return cash, nil
}

// SubmitOrder submits an order and returns the broker's acknowledgement.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/v2/orders", req)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("alpaca: submit order %s: %w", req.Symbol, err)
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResponse{}, fmt.Errorf("alpaca: decode order response: %w", err)
	}
	return resp, nil
}
