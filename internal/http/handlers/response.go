// Package handlers provides HTTP handler implementations for the catalog API.
//
// This file defines the response helpers shared by all endpoints. Every
// failure is written as an ErrorResponse with a stable code; server-side
// failures are logged with the request-scoped logger and the underlying
// error, which never reaches the client verbatim.
//
// Example error response:
//
//	HTTP/1.1 502 Bad Gateway
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "upstream_failed",
//	  "message": "append page 3: server error: status 503",
//	  "retryable": true
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dogbreeds/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching client reports to server logs.
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code (see errors.go constants).
	Code string `json:"code"`
	// Safe to show to users.
	Message string `json:"message"`
	// Retryable hints that repeating the same request may succeed, e.g. a
	// page load that failed while offline.
	Retryable bool `json:"retryable,omitempty"`
}

// abort writes resp with status and stops the handler chain. Responses with
// status >= 500 are logged together with cause.
func abort(c *gin.Context, status int, resp ErrorResponse, cause error) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Bool("retryable", resp.Retryable)
		if cause != nil {
			ev = ev.Err(cause)
			_ = c.Error(cause)
		}
		ev.Msg(resp.Message)
	}

	c.AbortWithStatusJSON(status, resp)
}

// fail aborts the request with a structured error.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg}, nil)
}

// failErr is fail with an underlying cause that is logged but not returned.
func failErr(c *gin.Context, status int, code, msg string, cause error) {
	abort(c, status, ErrorResponse{Code: code, Message: msg}, cause)
}

// Fail is the exported variant of fail(), used by the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
