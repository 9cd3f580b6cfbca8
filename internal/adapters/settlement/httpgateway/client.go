// Package httpgateway talks to the correspondent bank's settlement API over JSON/HTTP.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// Client implements the settlement gateway port against a remote API. Call deadlines come
// from the caller's context.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL authenticating with apiKey as a bearer token.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) VerifyDestination(ctx context.Context, accountNumber, bankCode string) (*domain.DestinationInfo, error) {
	q := url.Values{}
	q.Set("accountNumber", accountNumber)
	q.Set("bankCode", bankCode)

	var info domain.DestinationInfo
	status, err := c.do(ctx, http.MethodGet, "/accounts/resolve?"+q.Encode(), nil, &info)
	if status == http.StatusNotFound {
		return nil, apperrors.Wrapf(apperrors.ErrAccountNotFound, "no account %s at bank %s", accountNumber, bankCode)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Initiate(ctx context.Context, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	var res domain.SettlementResult
	if _, err := c.do(ctx, http.MethodPost, "/transfers", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) PollStatus(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	var res domain.SettlementResult
	status, err := c.do(ctx, http.MethodGet, "/transfers/"+url.PathEscape(reference), nil, &res)
	if status == http.StatusNotFound {
		// the bank never accepted the transfer
		return &domain.SettlementResult{Status: domain.SettlementFailed}, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends one request and decodes a 2xx body into out. Transport errors are returned as-is
// so callers can tell deadlines apart from other failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode settlement request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build settlement request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		return resp.StatusCode, fmt.Errorf("%w: %s %s returned %d %s",
			apperrors.ErrExternalGatewayFailure, method, path, resp.StatusCode, eb.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: undecodable response: %v", apperrors.ErrExternalGatewayFailure, err)
	}
	return resp.StatusCode, nil
}
