// Package anthropic adapts the canonical schema to Anthropic's
// /v1/messages wire dialect. Because the canonical schema is already
// Anthropic-shaped, this adapter is a near-identity translation: it
// validates and forwards, and for streaming re-emits upstream SSE
// events after normalizing their names to the canonical vocabulary.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/httpclient"
	"github.com/nulzo/model-router-api/internal/provider"
)

const defaultAnthropicVersion = "2023-06-01"

func init() {
	provider.Register("anthropic", NewAdapter)
}

type Adapter struct {
	cfg    domain.ProviderConfig
	client *http.Client
}

func NewAdapter(cfg domain.ProviderConfig) (provider.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}}, nil
}

func (a *Adapter) Name() string { return a.cfg.ID }
func (a *Adapter) Type() string { return "anthropic" }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	StopSeq     []string      `json:"stop_sequences,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

func toWireRequest(req *domain.CanonicalRequest) wireRequest {
	wr := wireRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		StopSeq:     req.Stop,
		Stream:      req.Stream,
	}
	var system []string
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		wr.Messages = append(wr.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	if len(system) > 0 {
		wr.System = strings.Join(system, "\n")
	}
	return wr
}

func mapStopReason(reason string) domain.StopReason {
	switch reason {
	case "end_turn":
		return domain.StopEndTurn
	case "stop_sequence":
		return domain.StopStopSequence
	case "max_tokens":
		return domain.StopMaxTokens
	default:
		return domain.StopEndTurn
	}
}

type upstreamErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func classifyError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return domain.UpstreamTransportError(err.Error(), domain.WithLog(err))
	}
	status := upstreamErr.StatusCode
	if status < 400 {
		status = http.StatusBadGateway
	}
	var body upstreamErrorBody
	if jsonErr := json.Unmarshal(upstreamErr.Body, &body); jsonErr != nil {
		return domain.ProviderError(status, string(upstreamErr.Body), domain.WithLog(err))
	}
	return domain.ProviderError(status, body.Error.Message,
		domain.WithExtension("upstream_type", body.Error.Type),
		domain.WithLog(err))
}

func (a *Adapter) Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error) {
	wr := toWireRequest(req)
	wr.Stream = false

	var resp wireResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", a.messagesURL(), a.headers(), wr, &resp); err != nil {
		return nil, classifyError(err)
	}

	content := make([]domain.ContentBlock, 0, len(resp.Content))
	for _, c := range resp.Content {
		if c.Type == "text" {
			content = append(content, domain.TextBlock(c.Text))
		}
	}
	if len(content) == 0 {
		content = append(content, domain.TextBlock(""))
	}

	return &domain.CanonicalResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    content,
		StopReason: mapStopReason(resp.StopReason),
		Usage:      domain.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}

// wireEvent is the union of every Anthropic streaming event shape;
// fields are populated according to Type.
type wireEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content_block,omitempty"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Message *struct {
		ID    string    `json:"id"`
		Model string    `json:"model"`
		Usage wireUsage `json:"usage"`
	} `json:"message,omitempty"`
	Usage *wireUsage `json:"usage,omitempty"`
}

func (a *Adapter) Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	ch := make(chan domain.StreamResult)
	wr := toWireRequest(req)
	wr.Stream = true

	go func() {
		defer close(ch)

		emit := func(e domain.CanonicalEvent) { ch <- domain.StreamResult{Event: e} }
		var pendingUsage domain.Usage

		err := httpclient.StreamRequest(ctx, a.client, "POST", a.messagesURL(), a.headers(), wr, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			var ev wireEvent
			if jsonErr := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); jsonErr != nil {
				return nil
			}

			switch ev.Type {
			case "message_start":
				skeleton := &domain.CanonicalResponse{}
				if ev.Message != nil {
					skeleton.ID = ev.Message.ID
					skeleton.Model = ev.Message.Model
					pendingUsage.InputTokens = ev.Message.Usage.InputTokens
				}
				emit(domain.StartEvent(skeleton))
			case "content_block_start":
				emit(domain.BlockStartEvent(ev.Index))
			case "content_block_delta":
				if ev.Delta != nil && ev.Delta.Type == "text_delta" {
					emit(domain.BlockDeltaEvent(ev.Index, ev.Delta.Text))
				}
			case "content_block_stop":
				emit(domain.BlockStopEvent(ev.Index))
			case "message_delta":
				stopReason := domain.StopEndTurn
				if ev.Delta != nil && ev.Delta.StopReason != "" {
					stopReason = mapStopReason(ev.Delta.StopReason)
				}
				if ev.Usage != nil {
					pendingUsage.OutputTokens = ev.Usage.OutputTokens
				}
				usage := pendingUsage
				emit(domain.DeltaEvent(stopReason, &usage))
			case "message_stop":
				emit(domain.StopEvent())
			case "error":
				emit(domain.ErrorEvent("upstream_transport", "upstream emitted a stream error event"))
			}
			return nil
		})

		if err != nil {
			ch <- domain.StreamResult{Err: classifyError(err)}
		}
	}()

	return ch, nil
}

func (a *Adapter) Models(ctx context.Context) ([]domain.ModelInfo, error) {
	return a.cfg.Models, nil
}

func (a *Adapter) Health(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	url := fmt.Sprintf("%s/models?limit=1", strings.TrimRight(a.cfg.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return domain.HealthStatus{State: domain.HealthUnhealthy, LastError: err.Error()}
	}
	for k, v := range a.headers() {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.HealthStatus{State: domain.HealthUnhealthy, LastError: domain.Redact(err.Error())}
	}
	defer func() { _ = resp.Body.Close() }()

	latency := time.Since(start).Milliseconds()
	if resp.StatusCode != http.StatusOK {
		return domain.HealthStatus{State: domain.HealthUnhealthy, LatencyMs: &latency, LastError: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return domain.HealthStatus{State: domain.HealthHealthy, LatencyMs: &latency}
}

func (a *Adapter) messagesURL() string {
	return fmt.Sprintf("%s/messages", strings.TrimRight(a.cfg.BaseURL, "/"))
}

func (a *Adapter) headers() map[string]string {
	version := defaultAnthropicVersion
	if v, ok := a.cfg.Extra["version"]; ok && v != "" {
		version = v
	}
	return map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": version,
	}
}
