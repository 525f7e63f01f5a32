package streamq

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"
)

// SessionState represents the state of a chat session.
type SessionState string

const (
	SessionOpen     SessionState = "open"
	SessionDraining SessionState = "draining"
	SessionClosed   SessionState = "closed"
)

// ChatSession represents one in-flight chat request and its response
// stream. Events are pulled: no network read happens ahead of demand.
//
// The event sequence is single-pass and forward-only. Exactly one
// range over [ChatSession.Events] (or one [ChatSession.Text] call) is
// permitted per session.
type ChatSession struct {
	client *Client
	ch     *channel
	cid    string
	dec    *decoder

	// deadline bounds the send and every receive; zero means none.
	deadline time.Time

	mu       sync.Mutex
	consumed bool
	terminal bool
	closed   bool
}

func newChatSession(client *Client, ch *channel, cid string, deadline time.Time) *ChatSession {
	return &ChatSession{
		client:   client,
		ch:       ch,
		cid:      cid,
		dec:      newDecoder(ch),
		deadline: deadline,
	}
}

// CID returns the correlation id of the request.
func (s *ChatSession) CID() string {
	return s.cid
}

// State returns the current session state.
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return SessionClosed
	case s.terminal:
		return SessionDraining
	default:
		return SessionOpen
	}
}

// Next returns the next event, or nil once the stream is exhausted.
// The context can be used to cancel waiting for the next event.
// After the terminal event the session is closed and its channel is
// released or torn down.
func (s *ChatSession) Next(ctx context.Context) (*ChatEvent, error) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return nil, nil
	}
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	rctx := ctx
	cancel := func() {}
	if !s.deadline.IsZero() {
		rctx, cancel = context.WithDeadline(ctx, s.deadline)
	}
	defer cancel()

	// An already-expired deadline must not consume any bytes.
	if rctx.Err() != nil && ctx.Err() == nil {
		return s.timeout(), nil
	}

	event, err := s.dec.next(rctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return s.timeout(), nil
		}
		s.teardown()
		return nil, err
	}
	if event == nil {
		s.finish()
		return nil, nil
	}

	s.client.observeEvent(event)

	if event.IsTerminal() {
		s.mu.Lock()
		s.terminal = true
		s.mu.Unlock()
		s.finish()
	}
	return event, nil
}

// Events returns an iterator over all events of the response. The
// sequence is not restartable: a second call yields ErrConsumed.
// Breaking out of the loop closes the session; the channel is torn
// down unless the stream was fully drained.
func (s *ChatSession) Events(ctx context.Context) iter.Seq2[*ChatEvent, error] {
	return func(yield func(*ChatEvent, error) bool) {
		s.mu.Lock()
		if s.consumed {
			s.mu.Unlock()
			yield(nil, ErrConsumed)
			return
		}
		s.consumed = true
		s.mu.Unlock()

		defer s.Close()

		for {
			event, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if event == nil {
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// Text consumes the session and returns the concatenation of all text
// deltas in emission order. A terminal ErrorEvent is returned as the
// error alongside the text accumulated so far.
func (s *ChatSession) Text(ctx context.Context) (string, error) {
	var sb strings.Builder

	for event, err := range s.Events(ctx) {
		if err != nil {
			return sb.String(), err
		}
		if event.Text != nil {
			sb.WriteString(*event.Text)
		}
		if event.Kind == KindError {
			return sb.String(), event.Err
		}
	}
	return sb.String(), nil
}

// Close releases the session. It is idempotent and safe to call at any
// point; abandoning iteration early closes the underlying channel so a
// later chat call cannot hang on stale response bytes.
func (s *ChatSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	reusable := s.terminal && s.dec.drained()
	s.mu.Unlock()

	s.client.endSession(s, reusable)
	return nil
}

// timeout ends the session with a Timeout error event.
func (s *ChatSession) timeout() *ChatEvent {
	s.mu.Lock()
	s.terminal = true
	s.mu.Unlock()
	s.teardown()

	return &ChatEvent{
		Kind: KindError,
		Err: &EventError{
			Kind:    ErrorKindTimeout,
			Message: "request deadline exceeded",
		},
	}
}

// finish closes the session after its terminal event.
func (s *ChatSession) finish() {
	s.Close()
}

// teardown closes the session discarding the channel.
func (s *ChatSession) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.client.endSession(s, false)
}
