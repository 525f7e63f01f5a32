package streamq

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// decoder turns the raw byte sequence of a Transport into ChatEvents.
// Frames may arrive fragmented across reads; the decoder buffers
// partial bytes and emits an event only once a complete frame is
// recognized. It reads from the transport only when the buffer holds
// no complete frame, so a slow consumer simply delays further reads.
//
// A decoder is driven by a single goroutine.
type decoder struct {
	t   Transport
	buf bytes.Buffer
	eof bool

	// terminal is set once a completion or error event has been
	// produced; no further events are emitted after that.
	terminal bool
}

func newDecoder(t Transport) *decoder {
	return &decoder{t: t}
}

// readFrame returns the next complete frame, not including the
// delimiter. It returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream ends inside a frame.
func (d *decoder) readFrame(ctx context.Context) ([]byte, error) {
	for {
		if i := bytes.IndexByte(d.buf.Bytes(), frameDelimiter); i >= 0 {
			line := d.buf.Next(i + 1)
			frame := bytes.TrimSpace(line[:i])
			if len(frame) == 0 {
				// blank keepalive line
				continue
			}
			return append([]byte(nil), frame...), nil
		}

		if d.eof {
			if d.buf.Len() > 0 {
				d.buf.Reset()
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}

		chunk, err := d.t.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.eof = true
				continue
			}
			return nil, err
		}
		d.buf.Write(chunk)
	}
}

// next returns the next event in wire order, or (nil, nil) once a
// terminal event has already been produced. Decode failures and
// unexpected end of stream are reported as terminal ErrorEvents, not
// as Go errors; only transport and context errors propagate.
func (d *decoder) next(ctx context.Context) (*ChatEvent, error) {
	if d.terminal {
		return nil, nil
	}

	frame, err := d.readFrame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.terminal = true
			return &ChatEvent{
				Kind: KindError,
				Err: &EventError{
					Kind:    ErrorKindUnexpectedEOF,
					Message: "stream ended before completion",
				},
			}, nil
		}
		return nil, err
	}

	event, err := decodeEvent(frame)
	if err != nil {
		// No partial recovery mid-frame: one malformed frame ends
		// the session.
		d.terminal = true
		return &ChatEvent{
			Kind: KindError,
			Err: &EventError{
				Kind:    ErrorKindMalformedFrame,
				Message: err.Error(),
			},
		}, nil
	}

	if event.IsTerminal() {
		d.terminal = true
	}
	return event, nil
}

// drained reports whether no undelivered bytes remain buffered. A
// channel may only be released for reuse once its stream is drained.
func (d *decoder) drained() bool {
	return d.buf.Len() == 0
}
