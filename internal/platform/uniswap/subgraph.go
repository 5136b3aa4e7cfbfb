// Package uniswap reads LP positions and pool state from a Uniswap v3
// subgraph and converts position liquidity into per-token exposure.
package uniswap

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

// Client is a GraphQL client for a Uniswap v3 subgraph endpoint.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new subgraph client.
//
// graphqlURL is the subgraph endpoint, e.g.
// "https://gateway.thegraph.com/api/subgraphs/id/...".
func NewClient(graphqlURL, apiKey string) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Position is one open LP position with enough pool context to compute
// token amounts.
type Position struct {
	ID        string
	Liquidity string
	TickLower int
	TickUpper int
	Pool      PoolState
}

// PoolState is the pool-level context for a position.
type PoolState struct {
	ID             string
	Token0Symbol   string
	Token0Decimals int
	Token1Symbol   string
	Token1Decimals int
	Tick           int
	SqrtPriceX96   string
	TVLUSD         float64
	Token0PriceUSD float64
	Token1PriceUSD float64
}

// FetchPositions returns all open positions (liquidity > 0) for the owner
// address.
func (c *Client) FetchPositions(ctx context.Context, owner string) ([]Position, error) {
	query := `
		query Positions($owner: String!) {
			positions(where: { owner: $owner, liquidity_gt: 0 }) {
				id
				liquidity
				tickLower { tickIdx }
				tickUpper { tickIdx }
				pool {
					id
					tick
					sqrtPrice
					totalValueLockedUSD
					token0 { symbol decimals derivedETH }
					token1 { symbol decimals derivedETH }
				}
			}
			bundles(first: 1) {
				ethPriceUSD
			}
		}
	`

	variables := map[string]any{"owner": strings.ToLower(owner)}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("uniswap: fetch positions: %w", err)
	}

	var result struct {
		Positions []struct {
			ID        string `json:"id"`
			Liquidity string `json:"liquidity"`
			TickLower struct {
				TickIdx string `json:"tickIdx"`
			} `json:"tickLower"`
			TickUpper struct {
				TickIdx string `json:"tickIdx"`
			} `json:"tickUpper"`
			Pool struct {
				ID        string `json:"id"`
				Tick      string `json:"tick"`
				SqrtPrice string `json:"sqrtPrice"`
				TVLUSD    string `json:"totalValueLockedUSD"`
				Token0    struct {
					Symbol     string `json:"symbol"`
					Decimals   string `json:"decimals"`
					DerivedETH string `json:"derivedETH"`
				} `json:"token0"`
				Token1 struct {
					Symbol     string `json:"symbol"`
					Decimals   string `json:"decimals"`
					DerivedETH string `json:"derivedETH"`
				} `json:"token1"`
			} `json:"pool"`
		} `json:"positions"`
		Bundles []struct {
			EthPriceUSD string `json:"ethPriceUSD"`
		} `json:"bundles"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("uniswap: decode positions: %w", err)
	}

	ethUSD := 0.0
	if len(result.Bundles) > 0 {
		ethUSD = parseFloat(result.Bundles[0].EthPriceUSD)
	}

	positions := make([]Position, 0, len(result.Positions))
	for _, p := range result.Positions {
		positions = append(positions, Position{
			ID:        p.ID,
			Liquidity: p.Liquidity,
			TickLower: int(parseFloat(p.TickLower.TickIdx)),
			TickUpper: int(parseFloat(p.TickUpper.TickIdx)),
			Pool: PoolState{
				ID:             p.Pool.ID,
				Token0Symbol:   p.Pool.Token0.Symbol,
				Token0Decimals: int(parseFloat(p.Pool.Token0.Decimals)),
				Token1Symbol:   p.Pool.Token1.Symbol,
				Token1Decimals: int(parseFloat(p.Pool.Token1.Decimals)),
				Tick:           int(parseFloat(p.Pool.Tick)),
				SqrtPriceX96:   p.Pool.SqrtPrice,
				TVLUSD:         parseFloat(p.Pool.TVLUSD),
				Token0PriceUSD: parseFloat(p.Pool.Token0.DerivedETH) * ethUSD,
				Token1PriceUSD: parseFloat(p.Pool.Token1.DerivedETH) * ethUSD,
			},
		})
	}

	return positions, nil
}

// FetchBalances converts the owner's open positions into raw balance records
// tagged with the LP venue.
func (c *Client) FetchBalances(ctx context.Context, owner string) ([]domain.RawBalance, error) {
	positions, err := c.FetchPositions(ctx, owner)
	if err != nil {
		return nil, err
	}

	var balances []domain.RawBalance
	for _, p := range positions {
		amount0, amount1, err := p.TokenAmounts()
		if err != nil {
			return nil, fmt.Errorf("uniswap: position %s amounts: %w", p.ID, err)
		}

		if amount0 > 0 {
			balances = append(balances, domain.RawBalance{
				Source:   "uniswap",
				Kind:     domain.VenueLP,
				Symbol:   p.Pool.Token0Symbol,
				Amount:   amount0,
				PriceUSD: p.Pool.Token0PriceUSD,
			})
		}
		if amount1 > 0 {
			balances = append(balances, domain.RawBalance{
				Source:   "uniswap",
				Kind:     domain.VenueLP,
				Symbol:   p.Pool.Token1Symbol,
				Amount:   amount1,
				PriceUSD: p.Pool.Token1PriceUSD,
			})
		}
	}

	return balances, nil
}

// FetchPoolLiquidityUSD returns the pool's total value locked, used by the
// pre-execution depth check.
func (c *Client) FetchPoolLiquidityUSD(ctx context.Context, poolID string) (float64, error) {
	query := `
		query Pool($id: ID!) {
			pool(id: $id) {
				totalValueLockedUSD
			}
		}
	`

	respData, err := c.doQuery(ctx, query, map[string]any{"id": strings.ToLower(poolID)})
	if err != nil {
		return 0, fmt.Errorf("uniswap: fetch pool liquidity: %w", err)
	}

	var result struct {
		Pool struct {
			TVLUSD string `json:"totalValueLockedUSD"`
		} `json:"pool"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("uniswap: decode pool liquidity: %w", err)
	}

	return parseFloat(result.Pool.TVLUSD), nil
}

// Healthy reports whether the subgraph answers and is indexing.
func (c *Client) Healthy(ctx context.Context) bool {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`
	_, err := c.doQuery(ctx, query, nil)
	return err == nil
}

// doQuery executes a GraphQL query and returns the raw "data" field from the
// response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}
