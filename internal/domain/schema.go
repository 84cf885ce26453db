// Package domain holds the gateway's canonical wire types: the schema
// every provider adapter translates into and out of. Nothing in this
// package depends on any upstream provider's dialect.
package domain

import "encoding/json"

// Role is the tag on a canonical message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// StopReason is the normalized completion reason, independent of the
// upstream provider's own vocabulary.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
	StopError        StopReason = "error"
)

// ContentBlock is deliberately narrow: text only. Richer modalities
// (images, tool calls) are out of scope and would be additive variants
// of this type in a future revision.
type ContentBlock struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// Message is one turn of a CanonicalRequest's conversation.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=100000"`
}

// CanonicalRequest is the gateway's single request shape, modeled on
// Anthropic's /v1/messages.
type CanonicalRequest struct {
	Model       string    `json:"model" validate:"required,min=1,max=256"`
	Messages    []Message `json:"messages" validate:"required,min=1,dive"`
	MaxTokens   int       `json:"max_tokens" validate:"required,min=1"`
	Stream      bool      `json:"stream,omitempty"`
	Temperature *float64  `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	TopP        *float64  `json:"top_p,omitempty" validate:"omitempty,min=0,max=1"`
	Stop        []string  `json:"stop,omitempty"`
}

// Clone returns a shallow copy with the model swapped for the
// upstream-facing model identifier the router resolved. Messages and
// Stop are not deep-copied: adapters treat them read-only.
func (r *CanonicalRequest) Clone(upstreamModel string) *CanonicalRequest {
	c := *r
	c.Model = upstreamModel
	return &c
}

// Usage mirrors the Anthropic usage shape.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CanonicalResponse is the gateway's single non-streaming response
// shape.
type CanonicalResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// EventType enumerates the canonical streaming event vocabulary. Every
// adapter, regardless of upstream dialect, emits only these.
type EventType string

const (
	EventMessageStart      EventType = "message_start"
	EventContentBlockStart EventType = "content_block_start"
	EventContentBlockDelta EventType = "content_block_delta"
	EventContentBlockStop  EventType = "content_block_stop"
	EventMessageDelta      EventType = "message_delta"
	EventMessageStop       EventType = "message_stop"
	EventError             EventType = "error"
)

// TextDelta is the payload of a content_block_delta event.
type TextDelta struct {
	Type string `json:"type"` // "text_delta"
	Text string `json:"text"`
}

// MessageDeltaPayload carries the stop reason and/or final usage
// count, whichever is known at the point the upstream emits it.
type MessageDeltaPayload struct {
	StopReason StopReason `json:"stop_reason,omitempty"`
	Usage      *Usage     `json:"usage,omitempty"`
}

// ErrorPayload is the terminal error event's body.
type ErrorPayload struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
}

// CanonicalEvent is the tagged-variant type streamed as one SSE frame
// per value. Exactly one field matching Type is populated; the rest
// are nil. An adapter or the handler's SSE encoder never needs to
// guess which field is live — they switch on Type.
type CanonicalEvent struct {
	Type EventType `json:"-"`

	Message      *CanonicalResponse   `json:"message,omitempty"`       // message_start
	Index        int                  `json:"index"`                   // content_block_start/delta/stop
	Block        *ContentBlock        `json:"content_block,omitempty"` // content_block_start
	Delta        *TextDelta           `json:"delta,omitempty"`         // content_block_delta
	MessageDelta *MessageDeltaPayload `json:"-"`                       // message_delta (flattened by encoder)
	Error        *ErrorPayload        `json:"error,omitempty"`         // error
}

func StartEvent(skeleton *CanonicalResponse) CanonicalEvent {
	return CanonicalEvent{Type: EventMessageStart, Message: skeleton}
}

func BlockStartEvent(index int) CanonicalEvent {
	block := TextBlock("")
	return CanonicalEvent{Type: EventContentBlockStart, Index: index, Block: &block}
}

func BlockDeltaEvent(index int, text string) CanonicalEvent {
	return CanonicalEvent{Type: EventContentBlockDelta, Index: index, Delta: &TextDelta{Type: "text_delta", Text: text}}
}

func BlockStopEvent(index int) CanonicalEvent {
	return CanonicalEvent{Type: EventContentBlockStop, Index: index}
}

func DeltaEvent(stopReason StopReason, usage *Usage) CanonicalEvent {
	return CanonicalEvent{Type: EventMessageDelta, MessageDelta: &MessageDeltaPayload{StopReason: stopReason, Usage: usage}}
}

func StopEvent() CanonicalEvent {
	return CanonicalEvent{Type: EventMessageStop}
}

func ErrorEvent(kind, message string) CanonicalEvent {
	return CanonicalEvent{Type: EventError, Error: &ErrorPayload{Kind: kind, Message: message}}
}

// EncodeData renders the SSE "data:" line's JSON payload for this
// event. message_delta is flattened to the top level since it has no
// other field to nest under; every other variant serializes via its
// already-tagged struct fields.
func (e CanonicalEvent) EncodeData() ([]byte, error) {
	if e.Type == EventMessageDelta && e.MessageDelta != nil {
		return json.Marshal(e.MessageDelta)
	}
	return json.Marshal(e)
}

// StreamResult is the element type of the pull-based event sequence a
// streaming adapter call returns. Exactly one of Event/Err is set on
// any value taken off the channel except for the implicit zero value
// signaling channel closure.
type StreamResult struct {
	Event CanonicalEvent
	Err   error
}

// ModelInfo is advertised by an adapter's list_models and aggregated
// by the gateway service on demand.
type ModelInfo struct {
	ID       string `json:"id"`
	OwnedBy  string `json:"owned_by"`
	Created  int64  `json:"created"`
}

// HealthState is the three-valued liveness classification a health
// probe resolves to.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus is the per-adapter result of a liveness probe. LatencyMs
// is absent (nil) iff no probe has completed.
type HealthStatus struct {
	State     HealthState `json:"state"`
	LatencyMs *int64      `json:"latency_ms,omitempty"`
	LastError string      `json:"last_error,omitempty"`
}
