package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"site-ai-gateway/internal/llm-router/config"
	"site-ai-gateway/internal/llm-router/service"
	"site-ai-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware tags every request with an id, reusing the caller's
// X-Request-ID when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			// Generate unique ID: "req_a1b2c3d4"
			requestID = "req_" + uuid.New().String()[:8]
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Log before request
		logger.Info(
			"Incoming request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)

		c.Next()

		// Log after request
		logger.Info(
			"Request completed",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Error handling middleware
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", c.Errors.Errors()...)
		}
	}
}

// CORSMiddleware echoes the request origin when it is allow-listed and falls
// back to the first configured origin otherwise. With no origins configured
// any origin is accepted.
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		origin := "*"
		if requestOrigin := c.GetHeader("Origin"); allowed[requestOrigin] {
			origin = requestOrigin
		} else if len(cfg.AllowedOrigins) > 0 {
			origin = strings.TrimSpace(cfg.AllowedOrigins[0])
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a token bucket per client IP. Idle clients are
// forgotten after ten minutes.
func RateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	const idle = 10 * time.Minute

	var (
		mu        sync.Mutex
		visitors  = map[string]*visitor{}
		lastSweep = time.Now()
		limit     = rate.Limit(cfg.RequestsPerMinute / 60)
		burst     = cfg.Burst
	)
	if burst <= 0 {
		burst = 1
	}

	allow := func(ip string, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(lastSweep) > idle {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > idle {
					delete(visitors, k)
				}
			}
			lastSweep = now
		}

		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(limit, burst)}
			visitors[ip] = v
		}
		v.lastSeen = now
		return v.limiter.AllowN(now, 1)
	}

	return func(c *gin.Context) {
		if !allow(c.ClientIP(), time.Now()) {
			logger.Warn("Rate limit exceeded", "client_ip", c.ClientIP(), "request_id", c.GetString(requestIDKey))
			ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests - please wait")
			return
		}
		c.Next()
	}
}

// AuthMiddleware accepts HS256 bearer tokens signed with the configured
// secret. Without a secret every request is rejected.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		if cfg.JWTSecret == "" {
			ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Access is not configured")
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(
			strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			},
		)
		if err != nil {
			reason := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				reason = "Token expired"
			}
			logger.Warn("Rejected token", "request_id", c.GetString(requestIDKey), "error", err.Error())
			ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", reason)
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
