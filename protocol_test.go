package streamq

import (
	"encoding/json"
	"testing"
)

func TestNewChatRequest_MarshalJSON(t *testing.T) {
	req := NewChatRequest("cid-1", ChatRequestData{
		UserMessage:     "Explain what Kendra does?",
		ConversationID:  "conv-1",
		ParentMessageID: "msg-2",
		ClientToken:     "tok-3",
		Options:         map[string]any{"chat_mode": "retrieval"},
	})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if parsed["request"] != "chat" {
		t.Errorf("request = %v, want chat", parsed["request"])
	}
	if parsed["cid"] != "cid-1" {
		t.Errorf("cid = %v, want cid-1", parsed["cid"])
	}

	dataField := parsed["data"].(map[string]interface{})
	if dataField["user_message"] != "Explain what Kendra does?" {
		t.Errorf("data.user_message = %v", dataField["user_message"])
	}
	if dataField["conversation_id"] != "conv-1" {
		t.Errorf("data.conversation_id = %v", dataField["conversation_id"])
	}
	if dataField["parent_message_id"] != "msg-2" {
		t.Errorf("data.parent_message_id = %v", dataField["parent_message_id"])
	}
}

func TestNewChatRequest_OmitsEmptyFields(t *testing.T) {
	req := NewChatRequest("cid-1", ChatRequestData{UserMessage: "hi"})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	dataField := parsed["data"].(map[string]interface{})
	for _, key := range []string{"conversation_id", "parent_message_id", "client_token", "options"} {
		if _, ok := dataField[key]; ok {
			t.Errorf("data.%s should be omitted when empty", key)
		}
	}
}

func TestNewListApplicationsRequest_MarshalJSON(t *testing.T) {
	req := NewListApplicationsRequest("cid-9")

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if parsed["request"] != "list_applications" {
		t.Errorf("request = %v, want list_applications", parsed["request"])
	}
	if _, ok := parsed["data"]; ok {
		t.Error("data should be omitted")
	}
}

func TestEncodeFrame_Delimited(t *testing.T) {
	frame, err := encodeFrame(NewListApplicationsRequest("cid-1"))
	if err != nil {
		t.Fatalf("encodeFrame error: %v", err)
	}
	if frame[len(frame)-1] != frameDelimiter {
		t.Error("frame not delimited")
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind EventKind
		check    func(*ChatEvent) bool
	}{
		{
			name:     "text",
			input:    `{"event":"text","text":"Hello"}`,
			wantKind: KindTextDelta,
			check: func(e *ChatEvent) bool {
				return e.Text != nil && *e.Text == "Hello"
			},
		},
		{
			name:     "metadata",
			input:    `{"event":"metadata","conversation_id":"c1","user_message_id":"u1","system_message_id":"s1"}`,
			wantKind: KindStatus,
			check: func(e *ChatEvent) bool {
				return e.Text == nil && e.Metadata != nil && e.Metadata.ConversationID == "c1"
			},
		},
		{
			name:     "heartbeat",
			input:    `{"event":"heartbeat"}`,
			wantKind: KindStatus,
			check: func(e *ChatEvent) bool {
				return e.Text == nil && e.Metadata == nil
			},
		},
		{
			name:     "done",
			input:    `{"event":"done"}`,
			wantKind: KindCompletion,
			check: func(e *ChatEvent) bool {
				return e.Text == nil && e.IsTerminal()
			},
		},
		{
			name:     "error",
			input:    `{"event":"error","code":"throttled","message":"slow down"}`,
			wantKind: KindError,
			check: func(e *ChatEvent) bool {
				return e.IsTerminal() && e.Err.Kind == ErrorKindServer && e.Err.Code == "throttled"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodeEvent([]byte(tt.input))
			if err != nil {
				t.Fatalf("decodeEvent error: %v", err)
			}
			if event.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", event.Kind, tt.wantKind)
			}
			if !tt.check(event) {
				t.Errorf("check failed for %+v", event)
			}
		})
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	for _, input := range []string{
		``,
		`not json`,
		`{"no_event":"field"}`,
		`{"event":"applications","application_ids":["a"]}`,
		`{"event":"seq_text"}`,
	} {
		if _, err := decodeEvent([]byte(input)); err == nil {
			t.Errorf("decodeEvent(%q) should fail", input)
		}
	}
}

func TestChatEvent_TextPresence(t *testing.T) {
	text, err := decodeEvent([]byte(`{"event":"text","text":"hi"}`))
	if err != nil {
		t.Fatalf("decodeEvent error: %v", err)
	}
	if text.Text == nil {
		t.Error("text event must carry non-nil Text")
	}

	for _, input := range []string{
		`{"event":"metadata","conversation_id":"c1"}`,
		`{"event":"heartbeat"}`,
		`{"event":"done"}`,
		`{"event":"error","message":"x"}`,
	} {
		event, err := decodeEvent([]byte(input))
		if err != nil {
			t.Fatalf("decodeEvent(%q) error: %v", input, err)
		}
		if event.Text != nil {
			t.Errorf("event %q must carry nil Text", input)
		}
	}
}

func TestChatEvent_String(t *testing.T) {
	event, _ := decodeEvent([]byte(`{"event":"text","text":"hi"}`))
	if got := event.String(); got != "Text(hi)" {
		t.Errorf("String() = %q, want Text(hi)", got)
	}

	event, _ = decodeEvent([]byte(`{"event":"metadata","conversation_id":"c1","user_message_id":"u1","system_message_id":"s1"}`))
	if got := event.String(); got != "Metadata{ConversationID: c1, Usr: u1, Sys: s1}" {
		t.Errorf("String() = %q", got)
	}
}
