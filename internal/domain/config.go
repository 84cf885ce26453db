package domain

import "time"

// ProviderConfig is loaded from external configuration once and held
// immutably; it is shared read-only by every adapter instance built
// from it.
type ProviderConfig struct {
	ID         string            `validate:"required"`
	Type       string            `validate:"required,oneof=openai anthropic gemini ollama"`
	APIKey     string            `validate:"required_if=Enabled true"`
	BaseURL    string            `validate:"omitempty,url"`
	Models     []ModelInfo       `validate:"-"`
	Timeout    time.Duration     `validate:"required"`
	MaxRetries int               `validate:"gte=0"`
	Enabled    bool
	Extra      map[string]string // e.g. "organization", "version"
}

// RouteConfig is an explicit model_id -> provider_id mapping entry.
// Explicit entries always win over prefix dispatch (see router).
type RouteConfig struct {
	ModelID    string
	ProviderID string
}

// RateLimitConfig configures the per-client-IP token bucket in front
// of the public HTTP surface.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig is the configuration the core's collaborators build
// and hand to the HTTP server at construction.
type ServerConfig struct {
	Host             string
	Port             int
	RequestTimeout   time.Duration
	MaxRequestBytes  int64
	MaxTokensCeiling int
	APIKeys          []string
	RateLimit        RateLimitConfig
	Providers        []ProviderConfig
	Routes           []RouteConfig
}
