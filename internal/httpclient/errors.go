package httpclient

import (
	"fmt"
	"net/url"
)

// UpstreamError represents a non-2xx response from an upstream
// provider. The raw Body/URL are kept for adapters to inspect and
// reclassify, but Error() never includes query parameters (an
// upstream API key is frequently carried as one, e.g. Gemini's
// ?key=...) or the response body.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	host := e.URL
	if u, err := url.Parse(e.URL); err == nil {
		host = u.Scheme + "://" + u.Host + u.Path
	}
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, host)
}
