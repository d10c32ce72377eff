package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a structured security audit record. Navigation events carry
// Route/Decision/Guard; session events carry SessionID and the method.
type Event struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	DeviceID  string            `json:"device_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Route     string            `json:"route,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Guard     string            `json:"guard,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEventID returns a unique identifier for an audit event.
func NewEventID() string {
	return uuid.NewString()
}

// Sink receives events from the dispatcher. Emit is fire-and-forget; the
// engine never consumes a return value from it.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink silently discards all events.
type NoOpSink struct{}

// Emit implements [Sink].
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events to a buffered channel for test harnesses
// and in-process consumers.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

// Emit implements [Sink].
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receiving side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON-encoded event per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [Sink].
func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
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

// ZerologSink logs each event as a structured zerolog record.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink writing through the given logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Emit implements [Sink].
func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	evt := s.logger.Info()
	if !event.Success {
		evt = s.logger.Warn()
	}
	evt = evt.
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Time("ts", event.Timestamp).
		Bool("success", event.Success)
	if event.UserID != "" {
		evt = evt.Str("user_id", event.UserID)
	}
	if event.DeviceID != "" {
		evt = evt.Str("device_id", event.DeviceID)
	}
	if event.Route != "" {
		evt = evt.Str("route", event.Route).Str("decision", event.Decision)
	}
	if event.Guard != "" {
		evt = evt.Str("guard", event.Guard)
	}
	if event.Error != "" {
		evt = evt.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		evt = evt.Str("meta_"+k, v)
	}
	evt.Msg("audit")
}
