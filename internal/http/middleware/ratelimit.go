package middleware

import (
	"net/http"
	"strconv"
	"time"

	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit is a fixed-window limit per client IP. A nil limiter or a
// limiter error lets the request through.
func RateLimit(l ratelimit.Limiter, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		key := "api:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		d, err := l.Allow(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Header("X-RateLimit-Error", "limiter-error")
			c.Next()
			return
		}

		if !d.Allowed {
			metrics.RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		metrics.RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// GameRateLimit limits game actions per participant (not per IP). JWT must
// run before it.
func GameRateLimit(l ratelimit.Limiter, maxActions int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "game:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		d, err := l.Allow(c.Request.Context(), key, maxActions, window)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("game rate limiter unavailable", "error", err)
			c.Header("X-GameRateLimit-Error", "limiter-error")
			c.Next()
			return
		}

		c.Header("X-GameRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-GameRateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			metrics.RLBlocked.WithLabelValues("game:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "game rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		metrics.RLRequests.WithLabelValues("game:" + c.FullPath()).Inc()
		c.Next()
	}
}
