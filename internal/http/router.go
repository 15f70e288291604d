// Package httpapi wires the HTTP transport (Gin) to the breed catalog
// service, middleware and route handlers. It centralizes cross-cutting
// concerns: tracing, correlation IDs, logging with credential masking, panic
// recovery, metrics, rate limiting, CORS, compression and security headers.
//
// Event-stream routes are exempt from rate limiting and compression so that
// long-lived connections neither consume tokens nor buffer inside gzip.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-dogbreeds/internal/config"
	"github.com/tbourn/go-dogbreeds/internal/http/handlers"
	"github.com/tbourn/go-dogbreeds/internal/http/middleware"
	"github.com/tbourn/go-dogbreeds/internal/services"
)

// maxBodyBytes caps request bodies; the largest accepted body is a favorite.
const maxBodyBytes = 64 << 10

// streamPaths are the SSE routes relative to the API base path.
var streamPaths = []string{"/breeds/stream", "/breeds/:id/stream", "/favorites/stream"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the catalog API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs with masked credentials
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP, streams and probes exempt)
//  8. CORS, compression and security headers
func RegisterRoutes(r *gin.Engine, svc *services.BreedService, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	exempt := []string{"/health", "/metrics"}
	for _, p := range streamPaths {
		exempt = append(exempt, joinPath(apiBase, p))
	}
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP(), exempt...)
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/stream$`})))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		CacheControl: "no-cache",
		EnablePolicy: true,
		Expose:       []string{"ETag"},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(svc, svc)
	h.DefaultPageSize = cfg.Paging.PageSize

	api := groupWithPrefix(r, apiBase)
	{
		// Breeds
		api.GET("/breeds", h.ListBreeds)
		api.POST("/breeds/refresh", h.RefreshBreeds)
		api.POST("/breeds/append", h.AppendBreeds)
		api.GET("/breeds/search", h.SearchBreeds)
		api.GET("/breeds/stream", h.StreamBreeds)
		api.GET("/breeds/:id", h.GetBreed)
		api.GET("/breeds/:id/stream", h.StreamBreed)

		// Favorites
		api.GET("/favorites", h.ListFavorites)
		api.GET("/favorites/stream", h.StreamFavorites)
		api.PUT("/favorites/:id", h.PutFavorite)
		api.DELETE("/favorites/:id", h.DeleteFavorite)

		// Cache + connectivity
		api.GET("/status", h.Status)
		api.DELETE("/cache", h.ClearCache)
	}
}

// useCORS installs the CORS posture: any origin when no allowlist is
// configured, otherwise only the listed origins.
func useCORS(r *gin.Engine, origins []string) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", "Last-Event-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = origins
	r.Use(cors.New(base))
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
