// Package backend is the HTTP client of the remote parcel API: restriction
// bundles, layout previews and plan materialization.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in APIError.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Client talks JSON to the backend with a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// RestrictionsRaw fetches the restriction bundle undecoded.
func (c *Client) RestrictionsRaw(ctx context.Context, id int) ([]byte, error) {
	return c.do(ctx, "restrictions", http.MethodGet, fmt.Sprintf("/restricoes/%d/geo/", id), nil)
}

// Restrictions fetches and decodes the restriction bundle of a project.
func (c *Client) Restrictions(ctx context.Context, id int) (*Bundle, error) {
	data, err := c.RestrictionsRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	return DecodeBundle(data)
}

// Preview asks the backend to lay out blocks and lots inside the buildable
// area without saving them.
func (c *Client) Preview(ctx context.Context, planID int, req PreviewRequest) (*PreviewResponse, error) {
	data, err := c.do(ctx, "preview", http.MethodPost, fmt.Sprintf("/parcelamento/planos/%d/preview/", planID), req)
	if err != nil {
		return nil, err
	}
	return decodePreview(data)
}

// Materialize saves a plan version.
func (c *Client) Materialize(ctx context.Context, planID int, req MaterializeRequest) (*MaterializeResponse, error) {
	data, err := c.do(ctx, "materialize", http.MethodPost, fmt.Sprintf("/parcelamento/planos/%d/materializar/", planID), req)
	if err != nil {
		return nil, err
	}
	var out MaterializeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding materialize response: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", op, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	log := logger.Get().With(zap.String("op", op), zap.String("request_id", reqID))
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(op, "transport_error").Inc()
		log.Warn("backend request failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(op, "read_error").Inc()
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	log.Debug("backend response", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequests.WithLabelValues(op, "http_error").Inc()
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	metrics.BackendRequests.WithLabelValues(op, "ok").Inc()
	return data, nil
}
