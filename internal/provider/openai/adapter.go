// Package openai adapts the canonical schema to OpenAI's chat
// completions wire dialect.
package openai

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

func init() {
	provider.Register("openai", NewAdapter)
}

type Adapter struct {
	cfg    domain.ProviderConfig
	client *http.Client
}

func NewAdapter(cfg domain.ProviderConfig) (provider.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}}, nil
}

func (a *Adapter) Name() string { return a.cfg.ID }
func (a *Adapter) Type() string { return "openai" }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireChoice struct {
	Index        int          `json:"index"`
	Message      *wireMessage `json:"message,omitempty"`
	Delta        *wireMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
}

func toWireRequest(req *domain.CanonicalRequest) wireRequest {
	wr := wireRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      req.Stream,
	}
	for _, m := range req.Messages {
		wr.Messages = append(wr.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return wr
}

func mapFinishReason(reason string) domain.StopReason {
	switch reason {
	case "stop":
		return domain.StopEndTurn
	case "length":
		return domain.StopMaxTokens
	case "content_filter":
		return domain.StopStopSequence
	default:
		return domain.StopEndTurn
	}
}

type upstreamErrorBody struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Param   interface{} `json:"param"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// classifyError turns a *httpclient.UpstreamError into a *domain.Problem
// carrying the clamped upstream status and a redacted message.
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

	headers := a.authHeaders()
	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.cfg.BaseURL, "/"))

	var resp wireResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, headers, wr, &resp); err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.InternalError(fmt.Errorf("openai: empty choices in response"))
	}

	choice := resp.Choices[0]
	stopReason := domain.StopEndTurn
	if choice.FinishReason != nil {
		stopReason = mapFinishReason(*choice.FinishReason)
	}

	text := ""
	if choice.Message != nil {
		text = choice.Message.Content
	}

	canonical := &domain.CanonicalResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    []domain.ContentBlock{domain.TextBlock(text)},
		StopReason: stopReason,
	}
	if resp.Usage != nil {
		canonical.Usage = domain.Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return canonical, nil
}

func (a *Adapter) Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	ch := make(chan domain.StreamResult)
	wr := toWireRequest(req)
	wr.Stream = true

	headers := a.authHeaders()
	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.cfg.BaseURL, "/"))

	go func() {
		defer close(ch)

		started := false
		blockOpen := false
		stopped := false

		emit := func(e domain.CanonicalEvent) { ch <- domain.StreamResult{Event: e} }

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, headers, wr, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				if blockOpen {
					emit(domain.BlockStopEvent(0))
					blockOpen = false
				}
				if !stopped {
					emit(domain.DeltaEvent(domain.StopEndTurn, nil))
					emit(domain.StopEvent())
					stopped = true
				}
				return nil
			}

			var chunk wireResponse
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr != nil {
				return nil
			}

			if !started {
				started = true
				emit(domain.StartEvent(&domain.CanonicalResponse{ID: chunk.ID, Model: chunk.Model}))
				emit(domain.BlockStartEvent(0))
				blockOpen = true
			}

			if len(chunk.Choices) == 0 {
				return nil
			}
			choice := chunk.Choices[0]
			if choice.Delta != nil && choice.Delta.Content != "" {
				emit(domain.BlockDeltaEvent(0, choice.Delta.Content))
			}
			if choice.FinishReason != nil && !stopped {
				if blockOpen {
					emit(domain.BlockStopEvent(0))
					blockOpen = false
				}
				usage := (*domain.Usage)(nil)
				if chunk.Usage != nil {
					usage = &domain.Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
				}
				emit(domain.DeltaEvent(mapFinishReason(*choice.FinishReason), usage))
				emit(domain.StopEvent())
				stopped = true
			}
			return nil
		})

		if err != nil {
			ch <- domain.StreamResult{Err: classifyError(err)}
			return
		}
		if !stopped {
			if blockOpen {
				emit(domain.BlockStopEvent(0))
			}
			emit(domain.DeltaEvent(domain.StopEndTurn, nil))
			emit(domain.StopEvent())
		}
	}()

	return ch, nil
}

func (a *Adapter) Models(ctx context.Context) ([]domain.ModelInfo, error) {
	return a.cfg.Models, nil
}

func (a *Adapter) Health(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	url := fmt.Sprintf("%s/models", strings.TrimRight(a.cfg.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return domain.HealthStatus{State: domain.HealthUnhealthy, LastError: err.Error()}
	}
	for k, v := range a.authHeaders() {
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

func (a *Adapter) authHeaders() map[string]string {
	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
	if org, ok := a.cfg.Extra["organization"]; ok {
		headers["OpenAI-Organization"] = org
	}
	return headers
}
