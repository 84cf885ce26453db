package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger is the access-log middleware: ginzap.Ginzap with RFC 3339
// timestamps in UTC. It adds no request ID to the log line.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return ginzap.Ginzap(logger, time.RFC3339, true)
}

// Recovery is the panic-recovery middleware, logging the stack trace
// through the same zap logger instead of gin's default stderr writer.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return ginzap.RecoveryWithZap(logger, true)
}
