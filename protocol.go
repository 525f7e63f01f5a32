package streamq

import (
	"encoding/json"
	"fmt"
)

// Frame delimiter. Frames are single-line JSON objects.
const frameDelimiter = '\n'

// --- Requests (Client -> Server) ---

const (
	reqChat             = "chat"
	reqListApplications = "list_applications"
)

// Request represents a request frame sent to the server.
type Request struct {
	Request string `json:"request"`
	CID     string `json:"cid"`
	Data    any    `json:"data,omitempty"`
}

// ChatRequestData is the data for a chat request.
type ChatRequestData struct {
	UserMessage     string         `json:"user_message"`
	ConversationID  string         `json:"conversation_id,omitempty"`
	ParentMessageID string         `json:"parent_message_id,omitempty"`
	ClientToken     string         `json:"client_token,omitempty"`
	Options         map[string]any `json:"options,omitempty"`
}

// NewChatRequest creates a new chat request.
func NewChatRequest(cid string, data ChatRequestData) *Request {
	return &Request{
		Request: reqChat,
		CID:     cid,
		Data:    data,
	}
}

// NewListApplicationsRequest creates a new list_applications request.
func NewListApplicationsRequest(cid string) *Request {
	return &Request{
		Request: reqListApplications,
		CID:     cid,
	}
}

// encodeFrame marshals a request into one delimited wire frame.
func encodeFrame(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(data, frameDelimiter), nil
}

// ConversationRef identifies a position in a prior conversation. Both
// fields are opaque server-issued identifiers and are passed through
// verbatim.
type ConversationRef struct {
	ConversationID  string
	ParentMessageID string
}

// --- Events (Server -> Client) ---

const (
	eventText         = "text"
	eventMetadata     = "metadata"
	eventHeartbeat    = "heartbeat"
	eventDone         = "done"
	eventError        = "error"
	eventApplications = "applications"
)

// wireEvent is the union of all event frame fields.
type wireEvent struct {
	Event string `json:"event"`

	// text fields
	Text *string `json:"text,omitempty"`

	// metadata fields
	ConversationID  string `json:"conversation_id,omitempty"`
	UserMessageID   string `json:"user_message_id,omitempty"`
	SystemMessageID string `json:"system_message_id,omitempty"`

	// applications fields
	ApplicationIDs []string `json:"application_ids,omitempty"`

	// error fields
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// EventKind identifies the variant of a ChatEvent.
type EventKind string

const (
	KindTextDelta  EventKind = "text_delta"
	KindStatus     EventKind = "status"
	KindError      EventKind = "error"
	KindCompletion EventKind = "completion"
)

// Metadata carries the identifiers the server attaches to an exchange.
type Metadata struct {
	ConversationID  string
	UserMessageID   string
	SystemMessageID string
}

// ChatEvent is one decoded item of a chat response stream.
//
// Text is non-nil exactly for text delta events, so callers may branch
// on its presence rather than on Kind; this mirrors the wire shape.
type ChatEvent struct {
	Kind     EventKind
	Text     *string
	Metadata *Metadata
	Err      *EventError
}

// IsText returns true if this event carries a content fragment.
func (e *ChatEvent) IsText() bool {
	return e.Kind == KindTextDelta
}

// IsTerminal returns true for completion and error events. No further
// events follow a terminal event.
func (e *ChatEvent) IsTerminal() bool {
	return e.Kind == KindCompletion || e.Kind == KindError
}

func (e *ChatEvent) String() string {
	switch e.Kind {
	case KindTextDelta:
		return fmt.Sprintf("Text(%s)", *e.Text)
	case KindStatus:
		if e.Metadata != nil {
			return fmt.Sprintf("Metadata{ConversationID: %s, Usr: %s, Sys: %s}",
				e.Metadata.ConversationID, e.Metadata.UserMessageID, e.Metadata.SystemMessageID)
		}
		return "Status"
	case KindError:
		return fmt.Sprintf("Error(%v)", e.Err)
	case KindCompletion:
		return "Completion"
	}
	return string(e.Kind)
}

// decodeWireFrame unmarshals one raw frame.
func decodeWireFrame(frame []byte) (*wireEvent, error) {
	var raw wireEvent
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, err
	}
	if raw.Event == "" {
		return nil, fmt.Errorf("frame has no event field")
	}
	return &raw, nil
}

// decodeEvent maps one raw frame to a ChatEvent. Frames that are not
// valid inside a chat exchange are decode errors.
func decodeEvent(frame []byte) (*ChatEvent, error) {
	raw, err := decodeWireFrame(frame)
	if err != nil {
		return nil, err
	}

	switch raw.Event {
	case eventText:
		var text string
		if raw.Text != nil {
			text = *raw.Text
		}
		return &ChatEvent{Kind: KindTextDelta, Text: &text}, nil

	case eventMetadata:
		return &ChatEvent{
			Kind: KindStatus,
			Metadata: &Metadata{
				ConversationID:  raw.ConversationID,
				UserMessageID:   raw.UserMessageID,
				SystemMessageID: raw.SystemMessageID,
			},
		}, nil

	case eventHeartbeat:
		return &ChatEvent{Kind: KindStatus}, nil

	case eventDone:
		return &ChatEvent{Kind: KindCompletion}, nil

	case eventError:
		return &ChatEvent{
			Kind: KindError,
			Err: &EventError{
				Kind:    ErrorKindServer,
				Code:    raw.Code,
				Message: raw.Message,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unexpected event %q in chat stream", raw.Event)
	}
}
