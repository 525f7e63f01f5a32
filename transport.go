package streamq

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Transport provides byte-level send and receive over one network
// session. Receive returns whatever bytes arrived next on the wire;
// callers must not assume frame alignment. End of stream is reported
// as io.EOF. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Dial connects to a StreamQ endpoint and returns a Transport. The
// application identifier is presented during the handshake.
func Dial(ctx context.Context, url string, appID string, opts *DialOptions) (Transport, error) {
	headers := http.Header{}
	if opts != nil && opts.HTTPHeader != nil {
		headers = opts.HTTPHeader.Clone()
	}
	if appID != "" {
		headers.Set("X-Application-Id", appID)
	}

	dialOpts := &websocket.DialOptions{
		HTTPHeader:   headers,
		Subprotocols: []string{"streamq.v1"},
	}
	if opts != nil && opts.HTTPClient != nil {
		dialOpts.HTTPClient = opts.HTTPClient
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}

	// Responses can be large
	conn.SetReadLimit(32 * 1024 * 1024) // 32MB

	return &wsTransport{conn: conn}, nil
}

// wsTransport implements Transport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Send sends one frame to the server.
func (t *wsTransport) Send(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if err := t.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}

	return nil
}

// Receive returns the next bytes from the server. A normal peer close
// is reported as io.EOF.
func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, io.EOF
		}
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, io.EOF
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	return data, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.conn.Close(websocket.StatusNormalClosure, "")
}

// channel pairs a Transport with the single-outstanding-request guard.
// At most one unread request may be in flight per channel.
type channel struct {
	Transport

	mu       sync.Mutex
	inFlight bool
}

// acquire claims the channel for one request.
func (ch *channel) acquire() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.inFlight {
		return ErrSessionActive
	}
	ch.inFlight = true
	return nil
}

// release returns the channel for reuse.
func (ch *channel) release() {
	ch.mu.Lock()
	ch.inFlight = false
	ch.mu.Unlock()
}
