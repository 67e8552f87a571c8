package botauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted by the authenticator.
const (
	EventCycleStarted     = "auth_cycle_started"
	EventCycleCompleted   = "auth_cycle_completed"
	EventRateGated        = "auth_rate_gated"
	EventExchange         = "token_exchange"
	EventRetriesExhausted = "auth_retries_exhausted"
)

// AuthEvent describes one step of the authentication lifecycle. Token values are
// never included.
type AuthEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	Bot        string            `json:"bot"`
	Endpoint   string            `json:"endpoint,omitempty"`
	Cycle      int               `json:"cycle,omitempty"`
	Attempt    int               `json:"attempt,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// EventSink receives auth events from the dispatcher goroutine.
type EventSink interface {
	Emit(ctx context.Context, event AuthEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuthEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuthEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuthEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuthEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuthEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuthEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
