package rangeorders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// GasSpeed selects a tier of a gas station response
type GasSpeed string

const (
	GasSpeedSafeLow  GasSpeed = "safeLow"
	GasSpeedStandard GasSpeed = "standard"
	GasSpeedFast     GasSpeed = "fast"
)

// GasStationTier is one speed tier, in gwei
type GasStationTier struct {
	MaxPriorityFee decimal.Decimal `json:"maxPriorityFee"`
	MaxFee         decimal.Decimal `json:"maxFee"`
}

// GasStationResponse is the payload of a gas station endpoint
type GasStationResponse struct {
	SafeLow          GasStationTier  `json:"safeLow"`
	Standard         GasStationTier  `json:"standard"`
	Fast             GasStationTier  `json:"fast"`
	EstimatedBaseFee decimal.Decimal `json:"estimatedBaseFee"`
	BlockNumber      uint64          `json:"blockNumber"`
}

// Tier returns the fees for speed, defaulting to standard
func (r GasStationResponse) Tier(speed GasSpeed) GasStationTier {
	switch speed {
	case GasSpeedSafeLow:
		return r.SafeLow
	case GasSpeedFast:
		return r.Fast
	default:
		return r.Standard
	}
}

// GasStationSource reads gas prices from an HTTP gas station
type GasStationSource struct {
	url    string
	speed  GasSpeed
	client *http.Client
}

// NewGasStationSource creates a new gas station source
func NewGasStationSource(url string, speed GasSpeed) *GasStationSource {
	if speed == "" {
		speed = GasSpeedStandard
	}
	return &GasStationSource{
		url:   url,
		speed: speed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns the full gas station response
func (s *GasStationSource) Fetch(ctx context.Context) (*GasStationResponse, error) {
	resp, err := s.doRequest(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result GasStationResponse
	if err := decodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SuggestGasPrice returns the max fee of the configured tier in wei
func (s *GasStationSource) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	result, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	fee := result.Tier(s.speed).MaxFee
	if !fee.IsPositive() {
		return nil, fmt.Errorf("gas station returned no %s fee", s.speed)
	}
	return GweiToWei(fee), nil
}

// doRequest performs an HTTP request
func (s *GasStationSource) doRequest(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// decodeJSONResponse reads the response body, checks HTTP status, and decodes JSON
func decodeJSONResponse(resp *http.Response, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bodyStr)
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		// Include the body in the error for debugging
		bodyStr := string(bodyBytes)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return fmt.Errorf("failed to decode JSON response: %w (body: %s)", err, bodyStr)
	}

	return nil
}
