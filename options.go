package streamq

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// --- Client Options ---

// ClientOption configures a StreamQ client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	endpoint       string
	httpHeader     http.Header
	httpClient     *http.Client
	requestTimeout time.Duration
	dialer         func(ctx context.Context) (Transport, error)
	logger         *slog.Logger
	onSend         func(*Request)
	onReceive      func(*ChatEvent)
}

// WithEndpoint sets the endpoint URL to dial.
func WithEndpoint(url string) ClientOption {
	return func(c *clientConfig) {
		c.endpoint = url
	}
}

// WithHTTPHeader sets additional headers sent during the handshake.
func WithHTTPHeader(h http.Header) ClientOption {
	return func(c *clientConfig) {
		c.httpHeader = h
	}
}

// WithHTTPClient sets the HTTP client used for the handshake.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithRequestTimeout sets a default per-request deadline applied to
// every chat call that does not carry its own.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.requestTimeout = d
	}
}

// WithDialer replaces the transport dialer. This is useful for testing
// or custom transport implementations.
func WithDialer(dial func(ctx context.Context) (Transport, error)) ClientOption {
	return func(c *clientConfig) {
		c.dialer = dial
	}
}

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithOnSend sets a callback invoked before each request is sent.
func WithOnSend(fn func(*Request)) ClientOption {
	return func(c *clientConfig) {
		c.onSend = fn
	}
}

// WithOnReceive sets a callback invoked for each decoded event.
func WithOnReceive(fn func(*ChatEvent)) ClientOption {
	return func(c *clientConfig) {
		c.onReceive = fn
	}
}

// --- Chat Options ---

// ChatOption configures one chat request.
type ChatOption func(*chatConfig)

type chatConfig struct {
	options     map[string]any
	clientToken string
	deadline    time.Time
}

// Recognized request option keys. Values are passed through to the
// server verbatim; unknown keys are rejected.
var recognizedOptions = map[string]bool{
	"user_id":      true,
	"user_groups":  true,
	"chat_mode":    true,
	"client_token": true,
	"locale":       true,
}

// WithOption sets one request option.
func WithOption(key string, value any) ChatOption {
	return func(c *chatConfig) {
		if c.options == nil {
			c.options = make(map[string]any)
		}
		c.options[key] = value
	}
}

// WithOptions sets request options from a map.
func WithOptions(opts map[string]any) ChatOption {
	return func(c *chatConfig) {
		if c.options == nil {
			c.options = make(map[string]any, len(opts))
		}
		for k, v := range opts {
			c.options[k] = v
		}
	}
}

// WithClientToken sets the idempotency token for the request. A random
// token is generated when none is set.
func WithClientToken(token string) ChatOption {
	return func(c *chatConfig) {
		c.clientToken = token
	}
}

// WithTimeout bounds the initial send and every receive wait of the
// request. On expiry the session yields an ErrorEvent of kind Timeout
// and closes.
func WithTimeout(d time.Duration) ChatOption {
	return func(c *chatConfig) {
		c.deadline = time.Now().Add(d)
	}
}

// WithDeadline is like WithTimeout with an absolute deadline.
func WithDeadline(t time.Time) ChatOption {
	return func(c *chatConfig) {
		c.deadline = t
	}
}

// validateOptions rejects option keys outside the recognized set.
func validateOptions(opts map[string]any) error {
	for k := range opts {
		if !recognizedOptions[k] {
			return &InvalidOptionError{Key: k}
		}
	}
	return nil
}
