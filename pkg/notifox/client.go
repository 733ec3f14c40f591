// Package notifox is the HTTP client for the Notifox alerting API.
package notifox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/notifoxhq/notifox/pkg/segment"
)

const (
	// DefaultBaseURL is the default base URL for the Notifox API.
	DefaultBaseURL = "https://api.notifox.com"
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the default number of retries for failed requests.
	DefaultMaxRetries = 3
	// EnvAPIKey is the environment variable name for the API key.
	EnvAPIKey = "NOTIFOX_API_KEY"
)

// Client is the Notifox API client. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	retry      RetryPolicy
	httpClient *http.Client
	calc       *segment.Calculator
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key, overriding NOTIFOX_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets the base URL for the client.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout is left alone.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithCalculator sets the calculator used by CalculateParts.
func WithCalculator(calc *segment.Calculator) Option {
	return func(c *Client) {
		c.calc = calc
	}
}

// WithLogger sets the logger for retry and failure messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client. Without WithAPIKey the key is read from
// NOTIFOX_API_KEY; if neither is set an input error is returned.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:  os.Getenv(EnvAPIKey),
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		retry:   DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, inputError("api key is required (provide it directly or set %s environment variable)", EnvAPIKey)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.calc == nil {
		c.calc = segment.NewCalculator(nil)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Validate checks req the way SendAlert does, without sending anything.
func Validate(req AlertRequest) error {
	if req.Audience == "" {
		return inputError("audience cannot be empty")
	}
	if req.Alert == "" {
		return inputError("alert message cannot be empty")
	}
	if req.Channel != "" && req.Channel != SMS && req.Channel != Email {
		return inputError("channel must be either 'sms' or 'email', got %q", req.Channel)
	}
	return nil
}

// SendAlert sends an alert to a verified audience. Failed attempts are
// retried according to the client's RetryPolicy.
func (c *Client) SendAlert(ctx context.Context, req AlertRequest) (*AlertResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	url := c.baseURL + "/alert"

	var lastErr error
	for attempt := 0; ; attempt++ {
		var resp AlertResponse
		err := c.doRequest(ctx, http.MethodPost, url, req, &resp)
		if err == nil {
			return &resp, nil
		}
		lastErr = err

		if attempt >= c.retry.MaxRetries || !c.retry.retryable(err) {
			break
		}

		wait := c.retry.delay(attempt)
		c.logger.Warn("retrying alert",
			"audience", req.Audience,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, connectionError("context done while waiting to retry", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// CalculateParts estimates parts, cost, encoding and characters for alert
// locally. It never touches the network.
func (c *Client) CalculateParts(alert string) segment.Result {
	return c.calc.CalculateParts(alert)
}

func (c *Client) doRequest(ctx context.Context, method, url string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInput, Message: "failed to marshal request", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return &Error{Kind: KindInput, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return connectionError("failed to read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return &Error{
					Kind:       KindAPI,
					StatusCode: resp.StatusCode,
					Body:       string(respBody),
					Message:    "failed to decode response",
					Err:        err,
				}
			}
		}
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		return errorFromStatus(resp.StatusCode, string(respBody), errResp.Error)
	}
	return errorFromStatus(resp.StatusCode, string(respBody), "")
}
