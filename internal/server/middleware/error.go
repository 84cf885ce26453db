package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/domain"
	"go.uber.org/zap"
)

// ErrorHandler is the single bridge from a handler-attached error
// (via c.Error) to the HTTP response. Handlers never call c.JSON on
// an error path themselves; they attach the error and return.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if problem, ok := err.(*domain.Problem); ok {
			if problem.Log != nil {
				logger.Error("request failed", zap.Error(problem.Log), zap.Int("status", problem.Status))
			}
			if !c.Writer.Written() {
				c.JSON(problem.Status, problem)
			}
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, domain.InternalError(err))
		}
		c.Abort()
	}
}
