// Package remote calls the analytics API that computes performance
// metrics authoritatively.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// PerformancePath is the analytics API route serving the KPI payload.
const PerformancePath = "/api/v1/analytics/performance"

const maxBodyBytes = 1 << 20

// TokenSource supplies the bearer token sent with each request.
type TokenSource interface {
	Token() (string, error)
}

// Client fetches performance metrics from the analytics API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
}

var _ ports.RemoteMetricsSource = (*Client)(nil)

// NewClient creates a client for the API at baseURL. tokens may be nil
// when the API does not require authentication.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		timeout:    timeout,
	}
}

// FetchPerformance runs one remote computation for filter. Failures wrap
// ErrRemoteUnavailable, ErrRemoteStatus or ErrRemoteDecode; a timeout
// additionally wraps context.DeadlineExceeded.
func (c *Client) FetchPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.performanceURL(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: signing service token: %w", apperrors.ErrRemoteUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %d", apperrors.ErrRemoteStatus, resp.StatusCode)
	}

	var metrics domain.PerformanceMetrics
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&metrics); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRemoteDecode, err)
	}
	return &metrics, nil
}

func (c *Client) performanceURL(filter domain.MetricsFilter) string {
	q := QueryValues(filter)
	u := c.baseURL + PerformancePath
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// QueryValues encodes the supplied filter fields as query parameters.
func QueryValues(filter domain.MetricsFilter) url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("scope", string(filter.Scope))
	set("date_from", filter.DateFrom)
	set("date_to", filter.DateTo)
	set("category", filter.Category)
	set("assignee", filter.Assignee)
	return q
}
