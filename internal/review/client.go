package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTimeout  = 30 * time.Second

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
)

// payloadJSON keeps numbers as json.Number so timestamps stay exact.
var payloadJSON = jsoniter.Config{
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client (which has a DefaultTimeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client pulls homework statuses from the review API.
type Client struct {
	endpoint   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(endpoint, token string, opts ...ClientOption) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		token:    token,
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

// Fetch requests homeworks updated since cursor (unix seconds) and returns
// the decoded body unvalidated.
func (c *Client) Fetch(ctx context.Context, cursor int64) (any, error) {
	params := url.Values{}
	params.Set("from_date", strconv.FormatInt(cursor, 10))

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("review endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("from_date", params.Get("from_date"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build review request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Shutdown is not a connectivity problem.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectivityError{URL: c.endpoint, Params: params, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &RemoteStatusError{Code: resp.StatusCode, URL: c.endpoint, Params: params}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &ConnectivityError{URL: c.endpoint, Params: params, Err: err}
	}
	if len(body) > maxBodyBytes {
		return nil, &PayloadError{Kind: ErrMalformedResponse, Reason: fmt.Sprintf("body too large (over %d bytes)", maxBodyBytes)}
	}

	var payload any
	if err := payloadJSON.Unmarshal(body, &payload); err != nil {
		return nil, &PayloadError{Kind: ErrMalformedResponse, Reason: "body is not valid json: " + err.Error()}
	}

	if m, ok := payload.(map[string]any); ok {
		msg, hasErr := m["error"]
		code, hasCode := m["code"]
		if hasErr || hasCode {
			return nil, &RemoteErrorPayload{Message: msg, Code: code, Params: params}
		}
	}
	return payload, nil
}
