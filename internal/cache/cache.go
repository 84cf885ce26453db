// Package cache defines the cache Service collaborator the gateway
// uses to avoid re-fetching an expensive provider model catalog on
// every GET /v1/models call.
package cache

import (
	"context"
	"time"
)

// Service is implemented by both the in-process memory cache and the
// optional Redis-backed cache; which one is wired is a configuration
// choice made at startup, never a core concern.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }
