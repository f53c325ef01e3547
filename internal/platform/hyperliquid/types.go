package hyperliquid

import (
	"strconv"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// infoRequest is the request envelope for the info endpoint. Every query is
// a POST with a "type" discriminator.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// APILeverage mirrors the leverage object inside a clearinghouse position.
type APILeverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// APIPosition mirrors one position entry in a clearinghouseState response.
// All numeric fields arrive as strings.
type APIPosition struct {
	Coin           string      `json:"coin"`
	Szi            string      `json:"szi"`
	EntryPx        string      `json:"entryPx"`
	UnrealizedPnl  string      `json:"unrealizedPnl"`
	LiquidationPx  string      `json:"liquidationPx"`
	ReturnOnEquity string      `json:"returnOnEquity"`
	Leverage       APILeverage `json:"leverage"`
}

// APIAssetPosition wraps one APIPosition together with its account mode.
type APIAssetPosition struct {
	Type     string      `json:"type"`
	Position APIPosition `json:"position"`
}

// APIClearinghouseState mirrors the subset of the clearinghouseState
// response the tracker consumes.
type APIClearinghouseState struct {
	AssetPositions []APIAssetPosition `json:"assetPositions"`
}

// ToRaw converts an API position into the domain model. ok is false for
// entries with an exactly-zero size, which the exchange reports for slots
// that are not open positions.
func (p APIPosition) ToRaw(address string) (domain.RawPosition, bool) {
	size := parseFloat(p.Szi)
	if size == 0 {
		return domain.RawPosition{}, false
	}

	return domain.RawPosition{
		Address:          address,
		Coin:             p.Coin,
		Size:             size,
		EntryPrice:       parseFloat(p.EntryPx),
		UnrealizedPnL:    parseFloat(p.UnrealizedPnl),
		LiquidationPrice: parseFloat(p.LiquidationPx),
		Leverage:         int(p.Leverage.Value),
	}, true
}

// parseFloat parses the exchange's string numerics, treating empty and
// malformed values as 0.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
