// Package gemini adapts the canonical schema to Google's Gemini
// generateContent / streamGenerateContent wire dialect.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/httpclient"
	"github.com/nulzo/model-router-api/internal/provider"
)

func init() {
	provider.Register("gemini", NewAdapter)
}

type Adapter struct {
	cfg              domain.ProviderConfig
	client           *http.Client
	useSystemInstr   bool
}

func NewAdapter(cfg domain.ProviderConfig) (provider.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	useSystemInstr := true
	if v, ok := cfg.Extra["system_instruction"]; ok && v == "false" {
		useSystemInstr = false
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}, useSystemInstr: useSystemInstr}, nil
}

func (a *Adapter) Name() string { return a.cfg.ID }
func (a *Adapter) Type() string { return "gemini" }

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type wireRequest struct {
	Contents          []wireContent         `json:"contents"`
	SystemInstruction *wireContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  wireGenerationConfig  `json:"generationConfig,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason"`
}

type wireUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type wireResponse struct {
	Candidates    []wireCandidate    `json:"candidates"`
	UsageMetadata *wireUsageMetadata `json:"usageMetadata,omitempty"`
}

// shape flattens canonical messages into Gemini's contents array,
// either emitting a leading synthesized user turn for system messages
// or a dedicated systemInstruction, per the adapter's configuration.
func (a *Adapter) shape(req *domain.CanonicalRequest) wireRequest {
	wr := wireRequest{
		GenerationConfig: wireGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			StopSequences:   req.Stop,
		},
	}

	var systemParts []string
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		wr.Contents = append(wr.Contents, wireContent{Role: role, Parts: []wirePart{{Text: m.Content}}})
	}

	if len(systemParts) == 0 {
		return wr
	}
	joined := strings.Join(systemParts, "\n")
	if a.useSystemInstr {
		wr.SystemInstruction = &wireContent{Parts: []wirePart{{Text: joined}}}
		return wr
	}
	// Synthesize a leading user turn instead.
	wr.Contents = append([]wireContent{{Role: "user", Parts: []wirePart{{Text: joined}}}}, wr.Contents...)
	return wr
}

func mapFinishReason(reason string) domain.StopReason {
	switch reason {
	case "STOP":
		return domain.StopEndTurn
	case "MAX_TOKENS":
		return domain.StopMaxTokens
	case "SAFETY", "RECITATION":
		return domain.StopStopSequence
	default:
		return domain.StopEndTurn
	}
}

func concatText(content wireContent) string {
	var b strings.Builder
	for _, p := range content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
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
		domain.WithExtension("upstream_status", body.Error.Status),
		domain.WithLog(err))
}

// base returns the configured base URL with any trailing "models" or
// "models/" segment trimmed, so the model-list/health endpoints can
// be built from the same configured value the chat endpoints use.
func (a *Adapter) base() string {
	b := strings.TrimRight(a.cfg.BaseURL, "/")
	b = strings.TrimSuffix(b, "/models")
	return b
}

func (a *Adapter) Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error) {
	wr := a.shape(req)
	genURL := fmt.Sprintf("%s%s:generateContent?key=%s", a.cfg.BaseURL, req.Model, url.QueryEscape(a.cfg.APIKey))

	var resp wireResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", genURL, nil, wr, &resp); err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, domain.InternalError(fmt.Errorf("gemini: empty candidates in response"))
	}

	candidate := resp.Candidates[0]
	canonical := &domain.CanonicalResponse{
		Model:      req.Model,
		Content:    []domain.ContentBlock{domain.TextBlock(concatText(candidate.Content))},
		StopReason: mapFinishReason(candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		canonical.Usage = domain.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		}
	}
	return canonical, nil
}

func (a *Adapter) Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	ch := make(chan domain.StreamResult)
	wr := a.shape(req)
	streamURL := fmt.Sprintf("%s%s:streamGenerateContent?alt=sse&key=%s", a.cfg.BaseURL, req.Model, url.QueryEscape(a.cfg.APIKey))

	go func() {
		defer close(ch)

		started := false
		blockOpen := false
		emit := func(e domain.CanonicalEvent) { ch <- domain.StreamResult{Event: e} }

		err := httpclient.StreamRequest(ctx, a.client, "POST", streamURL, nil, wr, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			var chunk wireResponse
			if jsonErr := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); jsonErr != nil {
				return nil
			}

			if !started {
				started = true
				emit(domain.StartEvent(&domain.CanonicalResponse{Model: req.Model}))
				emit(domain.BlockStartEvent(0))
				blockOpen = true
			}
			if len(chunk.Candidates) == 0 {
				return nil
			}
			candidate := chunk.Candidates[0]
			if text := concatText(candidate.Content); text != "" {
				emit(domain.BlockDeltaEvent(0, text))
			}
			if candidate.FinishReason != "" {
				if blockOpen {
					emit(domain.BlockStopEvent(0))
					blockOpen = false
				}
				var usage *domain.Usage
				if chunk.UsageMetadata != nil {
					usage = &domain.Usage{InputTokens: chunk.UsageMetadata.PromptTokenCount, OutputTokens: chunk.UsageMetadata.CandidatesTokenCount}
				}
				emit(domain.DeltaEvent(mapFinishReason(candidate.FinishReason), usage))
				emit(domain.StopEvent())
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
	if len(a.cfg.Models) > 0 {
		return a.cfg.Models, nil
	}

	type listResponse struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	var resp listResponse
	listURL := fmt.Sprintf("%s/models?key=%s", a.base(), url.QueryEscape(a.cfg.APIKey))
	if err := httpclient.SendRequest(ctx, a.client, "GET", listURL, nil, nil, &resp); err != nil {
		return nil, classifyError(err)
	}

	models := make([]domain.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, domain.ModelInfo{ID: strings.TrimPrefix(m.Name, "models/"), OwnedBy: a.cfg.ID})
	}
	return models, nil
}

func (a *Adapter) Health(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	listURL := fmt.Sprintf("%s/models?key=%s&pageSize=1", a.base(), url.QueryEscape(a.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, "GET", listURL, nil)
	if err != nil {
		return domain.HealthStatus{State: domain.HealthUnhealthy, LastError: err.Error()}
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
