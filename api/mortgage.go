/*
mortgage.go - Proxy client for the api-ninjas mortgage calculator

The backend never computes mortgages itself; it forwards a whitelisted
parameter set to the third-party API and relays the JSON response. The base
URL is injectable so tests can stand in for the upstream.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const mortgageHTTPTimeout = 30 * time.Second

// mortgageParams are the only parameters forwarded upstream, in the order
// the upstream documents them.
var mortgageParams = []string{
	"loan_amount",
	"home_value",
	"downpayment",
	"interest_rate",
	"duration_years",
	"monthly_hoa",
	"annual_property_tax",
	"annual_home_insurance",
}

// UpstreamError carries a non-200 response from the mortgage API.
type UpstreamError struct {
	Status int
	Body   json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mortgage API returned %d", e.Status)
}

// MortgageClient calls the external mortgage calculator.
type MortgageClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewMortgageClient creates a client for the given endpoint and API key.
func NewMortgageClient(baseURL, apiKey string) *MortgageClient {
	return &MortgageClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: mortgageHTTPTimeout},
	}
}

// Calculate forwards the allowed parameters and returns the upstream JSON.
func (m *MortgageClient) Calculate(ctx context.Context, params map[string]any) (json.RawMessage, error) {
	query := url.Values{}
	for _, key := range mortgageParams {
		if v, ok := params[key]; ok {
			query.Set(key, fmt.Sprint(v))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mortgage request: %w", err)
	}
	req.Header.Set("X-Api-Key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call mortgage API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read mortgage response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}
