package streamq

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestClientOptions(t *testing.T) {
	logger := slog.Default()
	dialer := func(ctx context.Context) (Transport, error) {
		return newMockTransport(), nil
	}

	cfg := clientConfig{}
	for _, opt := range []ClientOption{
		WithEndpoint("wss://example.com/stream"),
		WithRequestTimeout(30 * time.Second),
		WithLogger(logger),
		WithDialer(dialer),
	} {
		opt(&cfg)
	}

	if cfg.endpoint != "wss://example.com/stream" {
		t.Errorf("endpoint = %q", cfg.endpoint)
	}
	if cfg.requestTimeout != 30*time.Second {
		t.Errorf("requestTimeout = %v", cfg.requestTimeout)
	}
	if cfg.logger != logger {
		t.Error("logger not set")
	}
	if cfg.dialer == nil {
		t.Error("dialer not set")
	}
}

func TestChatOptions_Merge(t *testing.T) {
	cfg := chatConfig{}
	for _, opt := range []ChatOption{
		WithOptions(map[string]any{"user_id": "u-1", "locale": "en"}),
		WithOption("chat_mode", "retrieval"),
		WithOption("locale", "fr"),
	} {
		opt(&cfg)
	}

	if len(cfg.options) != 3 {
		t.Fatalf("len(options) = %d, want 3", len(cfg.options))
	}
	if cfg.options["locale"] != "fr" {
		t.Errorf("locale = %v, want fr (later option wins)", cfg.options["locale"])
	}
	if cfg.options["chat_mode"] != "retrieval" {
		t.Errorf("chat_mode = %v", cfg.options["chat_mode"])
	}
}

func TestChatOptions_Deadline(t *testing.T) {
	before := time.Now()
	cfg := chatConfig{}
	WithTimeout(time.Minute)(&cfg)

	if cfg.deadline.Before(before.Add(time.Minute)) || cfg.deadline.After(time.Now().Add(time.Minute)) {
		t.Errorf("deadline = %v, want about %v", cfg.deadline, before.Add(time.Minute))
	}

	at := time.Now().Add(5 * time.Second)
	WithDeadline(at)(&cfg)
	if !cfg.deadline.Equal(at) {
		t.Errorf("deadline = %v, want %v", cfg.deadline, at)
	}
}

func TestValidateOptions(t *testing.T) {
	ok := map[string]any{
		"user_id":      "u-1",
		"user_groups":  []string{"eng"},
		"chat_mode":    "retrieval",
		"client_token": "tok",
		"locale":       "en",
	}
	if err := validateOptions(ok); err != nil {
		t.Errorf("validateOptions(recognized) = %v", err)
	}

	if err := validateOptions(nil); err != nil {
		t.Errorf("validateOptions(nil) = %v", err)
	}

	err := validateOptions(map[string]any{"max_tokens": 100})
	var optErr *InvalidOptionError
	if !errors.As(err, &optErr) {
		t.Fatalf("err = %v, want InvalidOptionError", err)
	}
	if optErr.Key != "max_tokens" {
		t.Errorf("Key = %q, want max_tokens", optErr.Key)
	}
}
