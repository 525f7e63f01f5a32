package streamq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultEndpoint is the endpoint dialed when none is configured.
const DefaultEndpoint = "wss://chat.streamq.dev/v1/stream"

// Client is the entry point for issuing chat requests against one
// application. It is safe for concurrent use by multiple goroutines,
// but a single channel carries at most one session at a time; a second
// Chat call while a session is open fails with ErrSessionActive.
type Client struct {
	appID string
	cfg   clientConfig

	mu     sync.Mutex
	ch     *channel
	closed bool
}

// New creates a Client for the given application identifier. The
// identifier must be a UUID per the protocol; otherwise New fails with
// an AuthConfigError. No connection is established until the first
// request.
func New(appID string, opts ...ClientOption) (*Client, error) {
	if _, err := uuid.Parse(appID); err != nil {
		return nil, &AuthConfigError{AppID: appID, Err: err}
	}

	cfg := clientConfig{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{appID: appID, cfg: cfg}, nil
}

// NewFromConfig creates a Client from a loaded configuration file.
// Options are applied after the file settings and take precedence.
func NewFromConfig(fileCfg *Config, opts ...ClientOption) (*Client, error) {
	base := []ClientOption{}
	if fileCfg.Endpoint != "" {
		base = append(base, WithEndpoint(fileCfg.Endpoint))
	}
	if fileCfg.RequestTimeout > 0 {
		base = append(base, WithRequestTimeout(time.Duration(fileCfg.RequestTimeout)))
	}
	return New(fileCfg.ApplicationID, append(base, opts...)...)
}

// NewWithTransport creates a Client with an established transport.
// This is useful for testing or custom transport implementations.
func NewWithTransport(appID string, t Transport, opts ...ClientOption) (*Client, error) {
	c, err := New(appID, opts...)
	if err != nil {
		return nil, err
	}
	c.ch = &channel{Transport: t}
	return c, nil
}

// Chat sends a one-shot chat request and returns the session carrying
// its response stream. conv optionally continues a prior conversation
// and is passed through verbatim.
//
// The channel is dialed lazily on first use and reused across calls.
// If a previously healthy channel has failed, one reconnect is
// attempted transparently; a second failure surfaces as a
// ConnectionError.
func (c *Client) Chat(ctx context.Context, prompt string, conv *ConversationRef, opts ...ChatOption) (*ChatSession, error) {
	if prompt == "" {
		return nil, &RequestError{Op: "chat", Err: ErrEmptyPrompt}
	}

	cfg := chatConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateOptions(cfg.options); err != nil {
		return nil, &RequestError{Op: "chat", Err: err}
	}

	deadline := cfg.deadline
	if deadline.IsZero() && c.cfg.requestTimeout > 0 {
		deadline = time.Now().Add(c.cfg.requestTimeout)
	}

	ch, fresh, err := c.ensureChannel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.acquire(); err != nil {
		return nil, &RequestError{Op: "chat", Err: err}
	}

	clientToken := cfg.clientToken
	if clientToken == "" {
		clientToken = uuid.New().String()
	}

	data := ChatRequestData{
		UserMessage: prompt,
		ClientToken: clientToken,
		Options:     cfg.options,
	}
	if conv != nil {
		data.ConversationID = conv.ConversationID
		data.ParentMessageID = conv.ParentMessageID
	}

	cid := uuid.New().String()
	req := NewChatRequest(cid, data)

	sctx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		sctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	if err := c.send(sctx, ch, req); err != nil {
		c.dropChannel(ch)
		var connErr *ConnectionError
		if fresh || sctx.Err() != nil || !errors.As(err, &connErr) {
			return nil, err
		}
		// The reused channel failed under us: one transparent
		// reconnect, then give up.
		ch, err = c.redial(ctx)
		if err != nil {
			return nil, err
		}
		if err := ch.acquire(); err != nil {
			return nil, &RequestError{Op: "chat", Err: err}
		}
		if err := c.send(sctx, ch, req); err != nil {
			c.dropChannel(ch)
			return nil, err
		}
	}

	return newChatSession(c, ch, cid, deadline), nil
}

// ListApplications returns the application identifiers visible to the
// caller. It shares the chat channel and so fails with
// ErrSessionActive while a session is open.
func (c *Client) ListApplications(ctx context.Context) ([]string, error) {
	ch, _, err := c.ensureChannel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.acquire(); err != nil {
		return nil, &RequestError{Op: "list_applications", Err: err}
	}

	req := NewListApplicationsRequest(uuid.New().String())
	if err := c.send(ctx, ch, req); err != nil {
		c.dropChannel(ch)
		return nil, err
	}

	dec := newDecoder(ch)
	for {
		frame, err := dec.readFrame(ctx)
		if err != nil {
			c.dropChannel(ch)
			return nil, &ConnectionError{Op: "list_applications", Err: err}
		}

		raw, err := decodeWireFrame(frame)
		if err != nil {
			c.dropChannel(ch)
			return nil, &ProtocolError{Message: err.Error()}
		}

		switch raw.Event {
		case eventApplications:
			if dec.drained() {
				ch.release()
			} else {
				c.dropChannel(ch)
			}
			return raw.ApplicationIDs, nil
		case eventError:
			ch.release()
			return nil, &ProtocolError{Code: raw.Code, Message: raw.Message}
		case eventHeartbeat:
			continue
		default:
			c.dropChannel(ch)
			return nil, &ProtocolError{Message: "unexpected event " + raw.Event}
		}
	}
}

// Close closes the client and its channel. Any open session fails on
// its next pull.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ch != nil {
		err := c.ch.Close()
		c.ch = nil
		return err
	}
	return nil
}

// ensureChannel returns the current channel, dialing one if needed.
// fresh reports whether this call established it.
func (c *Client) ensureChannel(ctx context.Context) (ch *channel, fresh bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrClosed
	}
	if c.ch != nil {
		return c.ch, false, nil
	}

	t, err := c.dial(ctx)
	if err != nil {
		return nil, false, err
	}
	c.ch = &channel{Transport: t}
	return c.ch, true, nil
}

// redial discards any current channel and dials a fresh one.
func (c *Client) redial(ctx context.Context) (*channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}

	t, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.ch = &channel{Transport: t}
	return c.ch, nil
}

func (c *Client) dial(ctx context.Context) (Transport, error) {
	if c.cfg.dialer != nil {
		return c.cfg.dialer(ctx)
	}
	return Dial(ctx, c.cfg.endpoint, c.appID, &DialOptions{
		HTTPHeader: c.cfg.httpHeader,
		HTTPClient: c.cfg.httpClient,
	})
}

// dropChannel closes a failed channel so the next call dials fresh.
func (c *Client) dropChannel(ch *channel) {
	ch.Close()

	c.mu.Lock()
	if c.ch == ch {
		c.ch = nil
	}
	c.mu.Unlock()
}

// endSession releases a session's channel. A fully drained channel is
// kept for reuse; otherwise it is torn down.
func (c *Client) endSession(s *ChatSession, reusable bool) {
	s.ch.release()
	if !reusable {
		c.dropChannel(s.ch)
	}
}

// observeEvent runs the receive hook and debug logging for one event.
func (c *Client) observeEvent(event *ChatEvent) {
	if c.cfg.onReceive != nil {
		c.cfg.onReceive(event)
	}
	if c.cfg.logger != nil {
		c.cfg.logger.Debug("received event",
			slog.String("kind", string(event.Kind)),
		)
	}
}

// send encodes and sends one request frame.
func (c *Client) send(ctx context.Context, ch *channel, req *Request) error {
	if c.cfg.onSend != nil {
		c.cfg.onSend(req)
	}
	if c.cfg.logger != nil {
		c.cfg.logger.Debug("sending request",
			slog.String("request", req.Request),
			slog.String("cid", req.CID),
		)
	}

	frame, err := encodeFrame(req)
	if err != nil {
		return &RequestError{Op: "marshal", Err: err}
	}
	return ch.Send(ctx, frame)
}
