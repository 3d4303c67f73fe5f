// Package restclient sends typed JSON messages to the Proton REST API.
// It owns connection handling and (de)serialization only; authentication
// headers are attached by the caller before dispatch.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Sender dispatches a message and returns the HTTP status of the attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) (int, error)
}

// Client sends messages to a single API host.
type Client struct {
	host       *url.URL
	httpClient *http.Client
	userAgent  string
	appVersion string
	logger     zerolog.Logger
}

var _ Sender = (*Client)(nil)

// Option modifies a Client during construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header applied to requests that do not
// carry their own.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithAppVersion sets the x-pm-appversion header applied to requests that do
// not carry their own.
func WithAppVersion(v string) Option {
	return func(c *Client) { c.appVersion = v }
}

// WithLogger sets the logger used for per-request logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the given host URI.
func New(host string, options ...Option) (*Client, error) {
	if strings.TrimSpace(host) == "" {
		return nil, errors.New("[restclient.New] host is required")
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrap(err, "[restclient.New] invalid host")
	}

	client := &Client{
		host:       u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Send dispatches msg and decodes the reply into msg's response body.
// The returned status is the HTTP status of the attempt, zero when the
// request never produced one. A non-2xx status or a transport fault is
// returned as *Error with the raw body preserved.
func (c *Client) Send(ctx context.Context, msg Message) (int, error) {
	if msg == nil {
		return 0, errors.New("[Client.Send] nil message")
	}

	var body io.Reader
	if payload, ok := msg.RequestBody(); ok {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, errors.Wrap(err, "[Client.Send] encode payload")
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := c.host.JoinPath(msg.Endpoint())
	req, err := http.NewRequestWithContext(ctx, msg.Method(), endpoint.String(), body)
	if err != nil {
		return 0, errors.Wrap(err, "[Client.Send] build request")
	}

	requestID := uuid.New().String()
	c.decorate(req, msg.Header(), body != nil)

	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", msg.Method()).
		Str("endpoint", msg.Endpoint()).
		Logger()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("transport fault")
		return 0, &Error{cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{StatusCode: resp.StatusCode, cause: err}
	}

	logger.Debug().Int("status", resp.StatusCode).Msg("request complete")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, &Error{StatusCode: resp.StatusCode, Body: raw}
	}

	if sink := msg.ResponseBody(); sink != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, sink); err != nil {
			return resp.StatusCode, &Error{StatusCode: resp.StatusCode, Body: raw, cause: err}
		}
	}
	return resp.StatusCode, nil
}

// decorate fills in the ambient headers, letting per-message values win.
func (c *Client) decorate(req *http.Request, header http.Header, hasBody bool) {
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("x-pm-appversion") == "" && c.appVersion != "" {
		req.Header.Set("x-pm-appversion", c.appVersion)
	}
}
