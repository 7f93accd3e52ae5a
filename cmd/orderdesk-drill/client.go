package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type clientDTO struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Profit decimal.Decimal `json:"profit"`
	Active bool            `json:"active"`
}

type tradeDTO struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	SupplierID int64           `json:"supplier_id"`
	ConsumerID int64           `json:"consumer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Supplier   *clientDTO      `json:"supplier"`
	Consumer   *clientDTO      `json:"consumer"`
}

type tradeInput struct {
	Label      string          `json:"label"`
	SupplierID int64           `json:"supplier_id"`
	ConsumerID int64           `json:"consumer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// apiError is a non-2xx reply from the server.
type apiError struct {
	Status  int               `json:"-"`
	Code    string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// errorCode returns the server error code carried by err, or "transport".
func errorCode(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "transport"
}

// apiClient talks to a running order desk over HTTP.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// waitHealthy polls /healthz until it answers 200 or maxWait elapses.
func (c *apiClient) waitHealthy(ctx context.Context, maxWait time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		var status map[string]string
		return struct{}{}, c.do(ctx, http.MethodGet, "/healthz", nil, &status)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(maxWait))
	return err
}

func (c *apiClient) createClient(ctx context.Context, name, email string) (*clientDTO, error) {
	var out clientDTO
	body := map[string]string{"name": name, "email": email}
	if err := c.do(ctx, http.MethodPost, "/clients", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) getClient(ctx context.Context, id int64) (*clientDTO, error) {
	var out clientDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/clients/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) listClients(ctx context.Context) ([]clientDTO, error) {
	var out []clientDTO
	if err := c.do(ctx, http.MethodGet, "/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) submit(ctx context.Context, in tradeInput) (*tradeDTO, error) {
	var out tradeDTO
	if err := c.do(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *apiClient) deactivate(ctx context.Context, id int64) (*clientDTO, error) {
	var out clientDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/clients/%d/deactivate", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
