package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/gateway"
)

type ChatHandler struct {
	service          *gateway.Service
	maxTokensCeiling int
}

func NewChatHandler(service *gateway.Service, maxTokensCeiling int) *ChatHandler {
	return &ChatHandler{service: service, maxTokensCeiling: maxTokensCeiling}
}

// CreateMessage is POST /v1/messages. Deserialize, validate, route,
// then either serialize a buffered response or stream SSE frames.
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	var req domain.CanonicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			_ = c.Error(domain.ValidationError(domain.ParseValidationError(err)))
			return
		}
		_ = c.Error(domain.BadRequestError("malformed JSON body"))
		return
	}

	if err := domain.ValidateRequest(&req, h.maxTokensCeiling); err != nil {
		_ = c.Error(err)
		return
	}

	if req.Stream {
		h.handleStream(c, &req)
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleStream implements the pull-based SSE encoder: gin's c.Stream
// only invokes the callback again once the previous write has been
// accepted by the client's socket, which is exactly the "encoder only
// asks for the next event after the previous frame has been flushed"
// backpressure rule this handler must uphold. Dropping out of the
// callback (returning false, or the surrounding request context being
// cancelled) causes the deferred cancel() to propagate upstream.
func (h *ChatHandler) handleStream(c *gin.Context, req *domain.CanonicalRequest) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.service.StreamChat(ctx, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	terminated := false
	c.Stream(func(w io.Writer) bool {
		result, ok := <-events
		if !ok {
			if !terminated {
				writeSSEEvent(w, domain.ErrorEvent("upstream_transport", "stream closed before a terminal event"))
			}
			return false
		}
		if result.Err != nil {
			writeSSEEvent(w, domain.ErrorEvent(errorKind(result.Err), errorMessage(result.Err)))
			return false
		}
		writeSSEEvent(w, result.Event)
		if result.Event.Type == domain.EventMessageStop || result.Event.Type == domain.EventError {
			terminated = true
			return false
		}
		return true
	})
}

func writeSSEEvent(w io.Writer, e domain.CanonicalEvent) {
	data, err := e.EncodeData()
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}

func errorKind(err error) string {
	if p, ok := err.(*domain.Problem); ok {
		return p.Kind
	}
	return "internal_error"
}

func errorMessage(err error) string {
	if p, ok := err.(*domain.Problem); ok {
		return p.Detail
	}
	return domain.Redact(err.Error())
}
