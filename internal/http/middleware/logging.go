// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides structured request logging with secret masking, a
// panic-safe recovery handler, and a request ID injector:
//
//   - RequestID() ensures every request carries a correlation ID
//     (propagated via X-Request-ID and stored in the Gin context).
//   - Logger() emits one structured access log per request, attaches a
//     request-scoped zerolog.Logger, and selects the level by outcome.
//     Credential headers and query parameters are masked before logging.
//   - Recovery() converts panics into JSON 500 responses.
//   - LoggerFrom() retrieves the request-scoped logger.
//
// Recommended order: RequestID(), Logger(), Recovery().
package middleware

import (
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the query string logged.
	maxQueryLogLength = 2048

	redacted = "[REDACTED]"
)

// LogOptions configures Logger.
//
// MaskHeaders and MaskQuery name extra headers and query parameters whose
// values are replaced before logging. Matching is case-insensitive and merged
// with the built-in set (Authorization, Cookie, X-API-Key, api_key).
type LogOptions struct {
	MaskHeaders []string
	MaskQuery   []string
	// LogHeaders adds the (masked) request headers to each access log.
	LogHeaders bool
}

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log for each request.
//
// The level is error for 5xx or when Gin collected errors, warn for 4xx and
// info otherwise. Place it after RequestID() so logs carry the correlation ID.
func Logger(opts LogOptions) gin.HandlerFunc {
	maskH := lowerSet([]string{"authorization", "cookie", "set-cookie", "x-api-key"}, opts.MaskHeaders)
	maskQ := lowerSet([]string{"api_key", "apikey", "token"}, opts.MaskQuery)

	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(maskQuery(c.Request.URL.RawQuery, maskQ), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength)
		if opts.LogHeaders {
			ctx = ctx.Interface("headers", maskHeaders(c.Request.Header, maskH))
		}
		l := ctx.Logger()
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics, logs a stack trace, and returns the standard
// JSON 500 envelope when nothing was written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when Logger() did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func lowerSet(base, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// maskQuery replaces the values of masked parameters. Unparseable queries are
// dropped entirely.
func maskQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}
	hit := false
	for k := range vals {
		if _, ok := mask[strings.ToLower(k)]; ok {
			vals[k] = []string{redacted}
			hit = true
		}
	}
	if !hit {
		return raw
	}
	return vals.Encode()
}

func maskHeaders(h http.Header, mask map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = strings.Join(vv, ", ")
	}
	return out
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
