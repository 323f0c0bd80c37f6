// Package exchangerate is a client for a currency conversion API that serves
// GET /convert?from=XXX&to=YYY. Both the flat {"rate": n} answer and the
// exchangerate.host style {"info": {"rate": n}} answer are understood.
package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateNotFound is returned when the API knows no rate for the pair.
var ErrRateNotFound = errors.New("exchangerate: no rate for currency pair")

type Client struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// NewClient builds a client. accessKey, when set, is sent as the access_key
// query parameter.
func NewClient(baseURL, accessKey string, rps int, maxRetries int) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

type convertResponse struct {
	Rate *float64 `json:"rate"`
	Info struct {
		Rate *float64 `json:"rate"`
	} `json:"info"`
}

func (r convertResponse) rate() *float64 {
	if r.Rate != nil {
		return r.Rate
	}
	return r.Info.Rate
}

// GetRate returns how many units of `to` one unit of `from` buys.
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	if c.accessKey != "" {
		q.Set("access_key", c.accessKey)
	}
	u := c.baseURL + "/convert?" + q.Encode()

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * c.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		r, retry, err := c.fetch(ctx, u)
		if err == nil {
			return r, nil
		}
		if !retry {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) fetch(ctx context.Context, u string) (float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return 0, false, ErrRateNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return 0, true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return 0, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, fmt.Errorf("decode rate: %w", err)
	}
	r := body.rate()
	if r == nil || *r <= 0 {
		return 0, false, ErrRateNotFound
	}
	return *r, false, nil
}
