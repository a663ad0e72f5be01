package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ticketing/internal/shared/utils/response"
	"ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
)

// holdWrites are the routes that mutate holds. They compete for scarce seats
// and share the strictest bucket.
var holdWrites = []string{
	"/seats/reserve",
	"/seats/release",
	"/seats/confirm",
	"/reservations/:id/payment",
}

// Middleware applies the bucket of the matched route to every request. When
// the limiter backend fails the request is let through.
func Middleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()
		route := c.FullPath()

		result, err := limiter.IsAllowed(ctx, ip, bucketFor(route))
		if err != nil {
			logger.GetDefault().WarnContext(ctx, "rate limit check failed, allowing request",
				"client_ip", ip, "route", route, "error", err)
			c.Next()
			return
		}

		writeHeaders(c, result)
		if result.Allowed {
			c.Next()
			return
		}

		logger.GetDefault().LogRateLimitExceeded(ctx, ip, route)
		response.RespondJSON(c, "error", http.StatusTooManyRequests, "Rate limit exceeded", nil, map[string]interface{}{
			"limit":      result.Limit,
			"reset_time": result.ResetTime,
		})
		c.Abort()
	}
}

func bucketFor(route string) RateLimitType {
	switch {
	case route == "/health", route == "/ping", route == "/status":
		return RateLimitTypeHealth
	case strings.Contains(route, "/admin/"):
		return RateLimitTypeAdmin
	case isHoldWrite(route):
		return RateLimitTypeHold
	case strings.Contains(route, "/seats/"):
		return RateLimitTypePublic
	}
	return RateLimitTypeDefault
}

func isHoldWrite(route string) bool {
	for _, suffix := range holdWrites {
		if strings.HasSuffix(route, suffix) {
			return true
		}
	}
	return false
}

func writeHeaders(c *gin.Context, result *Result) {
	header := c.Writer.Header()
	header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))
	if !result.Allowed {
		header.Set("Retry-After", strconv.FormatInt(max(result.ResetTime-time.Now().Unix(), 1), 10))
	}
}
