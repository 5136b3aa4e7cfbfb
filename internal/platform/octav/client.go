// Package octav reads aggregated wallet portfolios from the Octav API. It
// supplies the independent net-worth figure the sync pipeline records and a
// per-asset breakdown for the idle-wallet bucket.
package octav

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Client is the REST client for the Octav portfolio API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Octav client.
//
// baseURL is the API root, e.g. "https://api.octav.fi".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

// Portfolio is the aggregated view of one wallet across chains.
type Portfolio struct {
	Address     string
	NetWorthUSD float64
	Assets      []Asset
	FetchedAt   time.Time
}

// Asset is one token holding inside a portfolio.
type Asset struct {
	Symbol   string
	Chain    string
	Protocol string
	Balance  float64
	PriceUSD float64
	ValueUSD float64
}

// FetchPortfolio returns the aggregated portfolio for one wallet address.
func (c *Client) FetchPortfolio(ctx context.Context, address string) (Portfolio, error) {
	params := url.Values{}
	params.Set("addresses", strings.ToLower(address))

	body, err := c.doGet(ctx, "/v1/portfolio?"+params.Encode())
	if err != nil {
		return Portfolio{}, fmt.Errorf("octav: fetch portfolio: %w", err)
	}

	var resp []struct {
		Address  string `json:"address"`
		NetWorth string `json:"networth"`
		Chains   map[string]struct {
			Protocols map[string]struct {
				Name   string `json:"name"`
				Assets []struct {
					Symbol  string `json:"symbol"`
					Balance string `json:"balance"`
					Price   string `json:"price"`
					Value   string `json:"value"`
				} `json:"assets"`
			} `json:"protocols"`
		} `json:"chains"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Portfolio{}, fmt.Errorf("octav: decode portfolio: %w", err)
	}
	if len(resp) == 0 {
		return Portfolio{}, fmt.Errorf("octav: %w: no portfolio for %s", domain.ErrNotFound, address)
	}

	p := Portfolio{
		Address:     resp[0].Address,
		NetWorthUSD: parseDecimal(resp[0].NetWorth),
		FetchedAt:   time.Now().UTC(),
	}

	for chainName, chain := range resp[0].Chains {
		for _, proto := range chain.Protocols {
			for _, a := range proto.Assets {
				p.Assets = append(p.Assets, Asset{
					Symbol:   a.Symbol,
					Chain:    chainName,
					Protocol: proto.Name,
					Balance:  parseDecimal(a.Balance),
					PriceUSD: parseDecimal(a.Price),
					ValueUSD: parseDecimal(a.Value),
				})
			}
		}
	}

	return p, nil
}

// FetchNetWorth returns just the aggregated USD net worth for one wallet.
func (c *Client) FetchNetWorth(ctx context.Context, address string) (float64, error) {
	p, err := c.FetchPortfolio(ctx, address)
	if err != nil {
		return 0, err
	}
	return p.NetWorthUSD, nil
}

// WalletBalances converts the portfolio's plain wallet holdings (assets held
// outside any protocol) into raw balance records. Protocol positions are
// covered by the venue adapters and skipped here to avoid double counting.
func (p Portfolio) WalletBalances() []domain.RawBalance {
	var balances []domain.RawBalance
	for _, a := range p.Assets {
		if !isWalletProtocol(a.Protocol) {
			continue
		}
		balances = append(balances, domain.RawBalance{
			Source:   "octav:" + a.Chain,
			Kind:     domain.VenueWallet,
			Symbol:   a.Symbol,
			Amount:   a.Balance,
			PriceUSD: a.PriceUSD,
		})
	}
	return balances
}

// VenueBalancesUSD aggregates the USD value of protocol positions by
// protocol name. Wallet holdings are excluded; they are reported separately
// by WalletValueUSD.
func (p Portfolio) VenueBalancesUSD() map[string]float64 {
	venues := make(map[string]float64)
	for _, a := range p.Assets {
		if isWalletProtocol(a.Protocol) {
			continue
		}
		venues[strings.ToLower(a.Protocol)] += a.ValueUSD
	}
	return venues
}

// WalletValueUSD sums the USD value of idle wallet holdings.
func (p Portfolio) WalletValueUSD() float64 {
	var total float64
	for _, a := range p.Assets {
		if isWalletProtocol(a.Protocol) {
			total += a.ValueUSD
		}
	}
	return total
}

func isWalletProtocol(name string) bool {
	switch strings.ToLower(name) {
	case "", "wallet", "native":
		return true
	}
	return false
}

func parseDecimal(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// doGet performs one authenticated GET and returns the raw body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP 429", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
