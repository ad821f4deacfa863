package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPBuilder implements TxBuilder against a co-located signing service that
// holds the wallet key and encodes venue instructions. The engine sends the
// routing facts; the service returns a signed transaction ready to submit.
type HTTPBuilder struct {
	url    string
	client *http.Client
}

// NewHTTPBuilder creates a builder client for the given endpoint.
func NewHTTPBuilder(url string, timeout time.Duration) *HTTPBuilder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBuilder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type buildSwapRequest struct {
	PoolID       string  `json:"poolId"`
	BaseMint     string  `json:"baseMint"`
	QuoteMint    string  `json:"quoteMint"`
	BaseVault    string  `json:"baseVault"`
	QuoteVault   string  `json:"quoteVault"`
	OpenOrders   string  `json:"openOrders"`
	MarketID     string  `json:"marketId"`
	ProgramID    string  `json:"programId"`
	Direction    string  `json:"direction"`
	AmountIn     float64 `json:"amountIn"`
	MinAmountOut float64 `json:"minAmountOut"`
}

type buildSwapResponse struct {
	Transaction string `json:"transaction"` // base64 signed transaction
	Error       string `json:"error,omitempty"`
}

// BuildSwap posts the swap parameters and returns the signed transaction.
func (b *HTTPBuilder) BuildSwap(ctx context.Context, req SwapRequest, minAmountOut float64) (string, error) {
	payload := buildSwapRequest{
		PoolID:       req.Route.PoolID,
		BaseMint:     req.Route.BaseMint,
		QuoteMint:    req.Route.QuoteMint,
		BaseVault:    req.Route.BaseVault,
		QuoteVault:   req.Route.QuoteVault,
		OpenOrders:   req.Route.OpenOrders,
		MarketID:     req.Route.MarketID,
		ProgramID:    req.Route.ProgramID,
		Direction:    string(req.Direction),
		AmountIn:     req.AmountIn,
		MinAmountOut: minAmountOut,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("builder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("builder returned status %d", resp.StatusCode)
	}

	var out buildSwapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode build response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("builder error: %s", out.Error)
	}
	if out.Transaction == "" {
		return "", fmt.Errorf("builder returned empty transaction")
	}
	return out.Transaction, nil
}

var _ TxBuilder = (*HTTPBuilder)(nil)
