// Package hyperliquid talks to the Hyperliquid perps venue: the info API for
// account state and mark prices, the exchange API for order placement, and
// the WebSocket feed for streaming mids.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Client is the REST client for the Hyperliquid info API.
type Client struct {
	baseURL    string
	address    string
	httpClient *http.Client
}

// NewClient creates a new Hyperliquid info client.
//
// baseURL is the API root, e.g. "https://api.hyperliquid.xyz".
// address is the 0x account address whose state is queried.
func NewClient(baseURL, address string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		address: strings.ToLower(strings.TrimSpace(address)),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAccountState returns the perps clearinghouse state for the configured
// account.
func (c *Client) FetchAccountState(ctx context.Context) (ClearinghouseState, error) {
	body, err := c.doInfo(ctx, infoRequest{Type: "clearinghouseState", User: c.address})
	if err != nil {
		return ClearinghouseState{}, fmt.Errorf("hyperliquid: fetch account state: %w", err)
	}

	var state ClearinghouseState
	if err := json.Unmarshal(body, &state); err != nil {
		return ClearinghouseState{}, fmt.Errorf("hyperliquid: decode account state: %w", err)
	}

	return state, nil
}

// FetchBalances returns the account's positions and cash as raw balance
// records tagged with this venue.
func (c *Client) FetchBalances(ctx context.Context) ([]domain.RawBalance, error) {
	state, err := c.FetchAccountState(ctx)
	if err != nil {
		return nil, err
	}
	return state.ToRawBalances("hyperliquid"), nil
}

// FetchMids returns the current mid price for every listed coin.
func (c *Client) FetchMids(ctx context.Context) (map[string]float64, error) {
	body, err := c.doInfo(ctx, infoRequest{Type: "allMids"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: fetch mids: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode mids: %w", err)
	}

	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		mids[coin] = parseDecimal(px)
	}

	return mids, nil
}

// FetchAssetIndexes returns the coin-to-asset-index mapping from the perps
// metadata. Order placement addresses assets by index, not symbol.
func (c *Client) FetchAssetIndexes(ctx context.Context) (map[string]int, error) {
	body, err := c.doInfo(ctx, infoRequest{Type: "meta"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: fetch meta: %w", err)
	}

	var meta struct {
		Universe []struct {
			Name string `json:"name"`
		} `json:"universe"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode meta: %w", err)
	}

	indexes := make(map[string]int, len(meta.Universe))
	for i, a := range meta.Universe {
		indexes[a.Name] = i
	}

	return indexes, nil
}

// Healthy reports whether the info API answers within the context deadline.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.doInfo(ctx, infoRequest{Type: "allMids"})
	return err == nil
}

// doInfo posts one query to the info endpoint and returns the raw body.
func (c *Client) doInfo(ctx context.Context, reqBody infoRequest) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: HTTP 429", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
