package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type ChargeRequest struct {
	ReservationID string  `json:"reservation_id"`
	AttemptID     string  `json:"attempt_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	PayerID       string  `json:"payer_id"`
}

type ChargeResult struct {
	TransactionID string `json:"transaction_id"`
}

// Gateway is the payment processor collaborator. The circuit breaker wraps
// exactly this call.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type httpGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPGateway talks to a charge endpoint over JSON. Timeouts are owned by
// the wrapping circuit breaker, not the HTTP client.
func NewHTTPGateway(url, apiKey string) Gateway {
	return &httpGateway{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{},
	}
}

func (g *httpGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode charge response: %w", err)
	}
	return &result, nil
}
