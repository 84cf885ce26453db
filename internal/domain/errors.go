package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Problem is an RFC 9457 "problem detail" value. Its JSON form is the
// external error body written by MarshalJSON; extensions are folded
// into that body's "error" object next to "type" and "message".
type Problem struct {
	Type       string `json:"type,omitempty"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Kind       string `json:"-"` // machine-readable error.type in the external body
	Extensions map[string]any `json:"-"`
	Log        error  `json:"-"` // attached for the logging middleware, never serialized
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// MarshalJSON renders the external body shape spec.md mandates:
// {"error":{"type":"<kind>","message":"<human readable>"}}, with any
// extensions folded into the same "error" object.
func (p *Problem) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"type":    p.Kind,
		"message": p.Detail,
	}
	for k, v := range p.Extensions {
		body[k] = v
	}
	return json.Marshal(map[string]any{"error": body})
}

type ProblemOption func(*Problem)

func WithExtension(key string, value any) ProblemOption {
	return func(p *Problem) {
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = value
	}
}

func WithLog(err error) ProblemOption {
	return func(p *Problem) { p.Log = err }
}

func WithType(t string) ProblemOption {
	return func(p *Problem) { p.Type = t }
}

func newProblem(status int, kind, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
		Kind:   kind,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return newProblem(http.StatusBadRequest, "bad_request", "Bad Request", detail, opts...)
}

func ValidationError(detail string, opts ...ProblemOption) *Problem {
	return newProblem(http.StatusBadRequest, "validation_error", "Validation Error", detail, opts...)
}

func ProviderNotFoundError(model string, opts ...ProblemOption) *Problem {
	return newProblem(http.StatusNotFound, "provider_not_found", "Provider Not Found",
		fmt.Sprintf("no provider is configured to serve model %q", model), opts...)
}

// ProviderError echoes the upstream status, clamped to the 4xx/5xx
// range callers of this constructor are expected to have already
// clamped (see httpclient.UpstreamError handling in each adapter).
func ProviderError(status int, message string, opts ...ProblemOption) *Problem {
	return newProblem(status, "provider_error", "Upstream Provider Error", Redact(message), opts...)
}

func UpstreamTransportError(detail string, opts ...ProblemOption) *Problem {
	return newProblem(http.StatusBadGateway, "upstream_transport", "Upstream Transport Error", Redact(detail), opts...)
}

func TimeoutError(detail string, opts ...ProblemOption) *Problem {
	return newProblem(http.StatusGatewayTimeout, "timeout", "Request Timeout", detail, opts...)
}

func InternalError(err error, opts ...ProblemOption) *Problem {
	opts = append(opts, WithLog(err))
	return newProblem(http.StatusInternalServerError, "internal_error", "Internal Server Error",
		"an internal error occurred", opts...)
}

var keyLikeFieldPattern = regexp.MustCompile(`(?i)(api[_-]?key|authorization|bearer)\S*`)

var bearerTokenPattern = regexp.MustCompile(`(?i)bearer\s+\S+`)

// Redact strips API keys and full upstream URLs from a message before
// it is ever attached to an external error body or a log line. Every
// adapter must pass upstream-derived error text through this before
// it reaches Problem.Detail.
func Redact(s string) string {
	s = bearerTokenPattern.ReplaceAllString(s, "[redacted]")
	s = keyLikeFieldPattern.ReplaceAllString(s, "[redacted]")
	// Collapse any absolute URL down to its host, dropping path/query
	// (which may carry an ?key= parameter for Gemini).
	return redactURLs(s)
}

func redactURLs(s string) string {
	var b strings.Builder
	fields := strings.Fields(s)
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		if u, err := url.Parse(f); err == nil && u.Scheme != "" && u.Host != "" {
			b.WriteString(u.Scheme + "://" + u.Host + "/[redacted]")
			continue
		}
		b.WriteString(f)
	}
	return b.String()
}
