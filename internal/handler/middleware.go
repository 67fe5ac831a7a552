package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/ratelimit"
	"github.com/hpn/hpn-llm-gateway/internal/ui"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware assigns every request an id, echoing a client-supplied
// X-Request-ID when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestIDFrom(c)
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// CORSMiddleware returns a middleware that allows browser calls from the
// given origins. Entries are exact origins, "*" or single-label wildcards
// such as "https://*.office.com".
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(origin, allowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
		}
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, pattern := range allowed {
		if pattern == "*" || strings.EqualFold(pattern, origin) {
			return true
		}
		if matchWildcardOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

// matchWildcardOrigin matches "scheme://*.rest" against an origin whose
// leftmost host label replaces the star. The label may not contain a dot.
func matchWildcardOrigin(pattern, origin string) bool {
	star := strings.Index(pattern, "*.")
	if star < 0 {
		return false
	}
	prefix, suffix := pattern[:star], pattern[star+1:]

	origin = strings.ToLower(origin)
	prefix, suffix = strings.ToLower(prefix), strings.ToLower(suffix)
	if len(prefix)+len(suffix) >= len(origin) {
		return false
	}
	if !strings.HasPrefix(origin, prefix) || !strings.HasSuffix(origin, suffix) {
		return false
	}

	label := origin[len(prefix) : len(origin)-len(suffix)]
	return !strings.ContainsAny(label, "./:")
}

// LoggingMiddleware returns a middleware that logs request details in JSON format.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, "request completed",
			slog.String("request_id", c.GetString(ctxKeyRequestID)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
			slog.String("provider", c.GetString(ctxKeyProvider)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// ConsoleMiddleware prints one styled line per request.
func ConsoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ui.PrintRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.GetString(ctxKeyProvider))
	}
}

// RecoveryMiddleware returns a middleware that recovers from panics.
// It logs the error and returns a 500 response in OpenAI-compatible format.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("request_id", c.GetString(ctxKeyRequestID)),
					slog.String("path", c.Request.URL.Path),
				)

				sendOpenAIError(c, http.StatusInternalServerError, "server_error", "Internal server error")
			}
		}()

		c.Next()
	}
}

// RateLimiter decides whether a client may make another request.
type RateLimiter interface {
	Allow(ctx context.Context, client string, now time.Time) (ratelimit.Decision, error)
}

// RateLimitMiddleware rejects clients over their per-window quota with 429.
// The limiter failing lets the request through. onReject may be nil.
func RateLimitMiddleware(limiter RateLimiter, logger *slog.Logger, onReject func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP(), now)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				slog.String("request_id", c.GetString(ctxKeyRequestID)),
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining(), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int64(decision.ResetAt.Sub(now).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))

			if onReject != nil {
				onReject()
			}
			logger.Warn("rate limit exceeded",
				slog.String("request_id", c.GetString(ctxKeyRequestID)),
				slog.String("client_ip", c.ClientIP()),
				slog.Int64("limit", decision.Limit),
			)
			sendOpenAIError(c, http.StatusTooManyRequests, errorTypeRateLimit, "Rate limit exceeded. Please retry later.")
			return
		}

		c.Next()
	}
}
