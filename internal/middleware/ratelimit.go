package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/internal/cache"
	apperrors "github.com/charlesng35/accounthub/pkg/errors"
	"github.com/charlesng35/accounthub/pkg/logger"
	"github.com/charlesng35/accounthub/pkg/response"
)

// ErrRateLimited is returned to clients that exceed their request budget.
var ErrRateLimited = apperrors.New("RATE_LIMITED", "Too many requests, try again later", http.StatusTooManyRequests)

// RateLimit limits requests per client IP within a fixed window, counting in store
// under scope. Counter failures let the request through.
func RateLimit(store cache.Store, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + scope + ":" + c.ClientIP()
		count, resetIn, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit counter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > int64(maxRequests) {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.Error(c, ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
