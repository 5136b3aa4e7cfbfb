package hyperliquid

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// defaultSlippageBps bounds the limit price of IOC adjustment orders
// relative to the current mid.
const defaultSlippageBps = 100

// Trader places orders on the Hyperliquid exchange API. It implements the
// hedge-adjustment interface the executor drives.
type Trader struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	indexes map[string]int
}

// NewTrader creates a Trader signing with the given secp256k1 key.
func NewTrader(client *Client, privateKey *ecdsa.PrivateKey, logger *slog.Logger) *Trader {
	return &Trader{
		client:     client,
		privateKey: privateKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "hyperliquid_trader")),
	}
}

// orderAction is the exchange API order payload. Field names follow the wire
// format: a = asset index, b = is buy, p = limit price, s = size,
// r = reduce only, t = order type.
type orderAction struct {
	Type   string      `json:"type"`
	Orders []wireOrder `json:"orders"`
}

type wireOrder struct {
	Asset      int       `json:"a"`
	IsBuy      bool      `json:"b"`
	LimitPx    string    `json:"p"`
	Size       string    `json:"s"`
	ReduceOnly bool      `json:"r"`
	OrderType  orderType `json:"t"`
}

type orderType struct {
	Limit struct {
		Tif string `json:"tif"`
	} `json:"limit"`
}

type exchangeRequest struct {
	Action    orderAction `json:"action"`
	Nonce     int64       `json:"nonce"`
	Signature signature   `json:"signature"`
}

type signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// AdjustShort moves the short position for one token by the target's signed
// adjustment. Positive adjustments sell (grow the short), negative buy it
// back. The order is an IOC limit priced off the current mid with the
// default slippage allowance.
func (t *Trader) AdjustShort(ctx context.Context, target domain.ShortTarget) (string, error) {
	if target.Adjustment == 0 {
		return "", nil
	}

	mids, err := t.client.FetchMids(ctx)
	if err != nil {
		return "", fmt.Errorf("hyperliquid: fetch mid for %s: %w", target.Token, err)
	}
	mid, ok := mids[target.Token]
	if !ok || mid <= 0 {
		return "", fmt.Errorf("hyperliquid: no mid price for %s", target.Token)
	}

	asset, err := t.assetIndex(ctx, target.Token)
	if err != nil {
		return "", err
	}

	isBuy := target.Adjustment < 0
	size := absFloat(target.Adjustment)

	// IOC limit crossing the spread: buys tolerate a higher price, sells a
	// lower one, bounded by the slippage allowance.
	limitPx := mid * (1 - float64(defaultSlippageBps)/10_000)
	if isBuy {
		limitPx = mid * (1 + float64(defaultSlippageBps)/10_000)
	}

	order := wireOrder{
		Asset:      asset,
		IsBuy:      isBuy,
		LimitPx:    strconv.FormatFloat(limitPx, 'f', -1, 64),
		Size:       strconv.FormatFloat(size, 'f', -1, 64),
		ReduceOnly: isBuy,
	}
	order.OrderType.Limit.Tif = "Ioc"

	action := orderAction{Type: "order", Orders: []wireOrder{order}}

	t.logger.InfoContext(ctx, "placing hedge adjustment order",
		slog.String("token", target.Token),
		slog.Bool("buy", isBuy),
		slog.Float64("size", size),
		slog.Float64("limit_price", limitPx),
	)

	oid, err := t.submit(ctx, action)
	if err != nil {
		return "", fmt.Errorf("hyperliquid: adjust short %s: %w", target.Token, err)
	}
	return oid, nil
}

// assetIndex resolves a coin's asset index, caching the metadata after the
// first lookup.
func (t *Trader) assetIndex(ctx context.Context, coin string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexes == nil {
		indexes, err := t.client.FetchAssetIndexes(ctx)
		if err != nil {
			return 0, err
		}
		t.indexes = indexes
	}

	idx, ok := t.indexes[coin]
	if !ok {
		return 0, fmt.Errorf("hyperliquid: unknown asset %s", coin)
	}
	return idx, nil
}

// submit signs and posts one action to the exchange endpoint, returning the
// resting or filled order ID.
func (t *Trader) submit(ctx context.Context, action orderAction) (string, error) {
	nonce := time.Now().UnixMilli()

	sig, err := t.sign(action, nonce)
	if err != nil {
		return "", fmt.Errorf("sign action: %w", err)
	}

	reqBody := exchangeRequest{Action: action, Nonce: nonce, Signature: sig}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.baseURL+"/exchange", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status   string `json:"status"`
		Response struct {
			Data struct {
				Statuses []struct {
					Resting struct {
						Oid int64 `json:"oid"`
					} `json:"resting"`
					Filled struct {
						Oid int64 `json:"oid"`
					} `json:"filled"`
					Error string `json:"error"`
				} `json:"statuses"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Status != "ok" {
		return "", fmt.Errorf("exchange rejected: %s", string(body))
	}

	for _, s := range result.Response.Data.Statuses {
		if s.Error != "" {
			return "", fmt.Errorf("order rejected: %s", s.Error)
		}
		if s.Filled.Oid != 0 {
			return strconv.FormatInt(s.Filled.Oid, 10), nil
		}
		if s.Resting.Oid != 0 {
			return strconv.FormatInt(s.Resting.Oid, 10), nil
		}
	}

	return "", nil
}

// sign produces the secp256k1 signature over the keccak hash of the action
// plus nonce.
func (t *Trader) sign(action orderAction, nonce int64) (signature, error) {
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return signature{}, fmt.Errorf("marshal action: %w", err)
	}

	nonceBytes := []byte(strconv.FormatInt(nonce, 10))
	hash := ethcrypto.Keccak256(actionJSON, nonceBytes)

	sigBytes, err := ethcrypto.Sign(hash, t.privateKey)
	if err != nil {
		return signature{}, fmt.Errorf("secp256k1 sign: %w", err)
	}
	if len(sigBytes) != ethcrypto.SignatureLength {
		return signature{}, fmt.Errorf("unexpected signature length %d", len(sigBytes))
	}

	return signature{
		R: "0x" + fmt.Sprintf("%x", sigBytes[:32]),
		S: "0x" + fmt.Sprintf("%x", sigBytes[32:64]),
		V: int(sigBytes[64]) + 27,
	}, nil
}
