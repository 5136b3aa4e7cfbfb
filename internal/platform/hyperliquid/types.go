package hyperliquid

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// infoRequest is the envelope for POST /info queries.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// ClearinghouseState is the perps account state returned by the info API.
// Numeric fields arrive as decimal strings.
type ClearinghouseState struct {
	MarginSummary  MarginSummary   `json:"marginSummary"`
	Withdrawable   string          `json:"withdrawable"`
	AssetPositions []AssetPosition `json:"assetPositions"`
	Time           int64           `json:"time"`
}

// MarginSummary aggregates account-level margin figures.
type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

// AssetPosition wraps one open perp position.
type AssetPosition struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

// Position is one perp position. Szi is signed size; shorts are negative.
type Position struct {
	Coin           string `json:"coin"`
	Szi            string `json:"szi"`
	EntryPx        string `json:"entryPx"`
	PositionValue  string `json:"positionValue"`
	UnrealizedPnl  string `json:"unrealizedPnl"`
	LiquidationPx  string `json:"liquidationPx"`
	MarginUsed     string `json:"marginUsed"`
	MaxLeverage    int    `json:"maxLeverage"`
	ReturnOnEquity string `json:"returnOnEquity"`
}

// wsMessage is the envelope for WebSocket pushes.
type wsMessage struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

// wsSubscribeCmd is the subscription command frame.
type wsSubscribeCmd struct {
	Method       string `json:"method"`
	Subscription struct {
		Type string `json:"type"`
	} `json:"subscription"`
}

// parseDecimal converts the API's decimal-string fields. Malformed values
// become zero rather than failing a whole account fetch.
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

// ToRawBalances flattens the account state into venue balance records. Perp
// position sizes keep their sign; the withdrawable balance is reported as a
// USDC cash record on the same venue.
func (s ClearinghouseState) ToRawBalances(source string) []domain.RawBalance {
	balances := make([]domain.RawBalance, 0, len(s.AssetPositions)+1)

	for _, ap := range s.AssetPositions {
		size := parseDecimal(ap.Position.Szi)
		if size == 0 {
			continue
		}
		var price float64
		if size != 0 {
			price = parseDecimal(ap.Position.PositionValue) / absFloat(size)
		}
		balances = append(balances, domain.RawBalance{
			Source:   source,
			Kind:     domain.VenueHedge,
			Symbol:   ap.Position.Coin,
			Amount:   size,
			PriceUSD: price,
		})
	}

	balances = append(balances, domain.RawBalance{
		Source:   source,
		Kind:     domain.VenueHedge,
		Symbol:   "USDC",
		Amount:   parseDecimal(s.Withdrawable),
		PriceUSD: 1,
	})

	return balances
}

// AccountValueUSD returns the parsed total account value.
func (s ClearinghouseState) AccountValueUSD() float64 {
	return parseDecimal(s.MarginSummary.AccountValue)
}

// WithdrawableUSD returns the parsed free collateral.
func (s ClearinghouseState) WithdrawableUSD() float64 {
	return parseDecimal(s.Withdrawable)
}

// Timestamp converts the state's millisecond epoch.
func (s ClearinghouseState) Timestamp() time.Time {
	return time.UnixMilli(s.Time).UTC()
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
