package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/domain"
)

// Auth checks for a Bearer token matching one of the configured API
// keys. If no keys are configured, the gateway is open — matching the
// teacher's fail-open-when-unconfigured stance, appropriate for local
// development.
func Auth(validKeys []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(validKeys))
	for _, k := range validKeys {
		allowed[k] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, domain.BadRequestError("missing or malformed Authorization header"))
			return
		}

		if _, ok := allowed[parts[1]]; !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &domain.Problem{Status: http.StatusUnauthorized, Kind: "unauthorized", Detail: "invalid API key"})
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, p *domain.Problem) {
	c.AbortWithStatusJSON(p.Status, p)
}
