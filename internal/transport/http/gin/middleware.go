package httpgin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/metrics"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
)

const (
	ctxRequestID = "request_id"
	ctxStaff     = "staff"

	headerDeviceID = "X-Device-ID"
	headerRevision = "X-Check-Revision"
)

type TokenParser interface {
	Parse(raw string) (domain.Staff, error)
}

type DeviceChecker interface {
	Trusted(ctx context.Context, deviceID string) (bool, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
	Limit() int
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			headerDeviceID,
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			headerRevision,
			"ETag",
			"Cache-Control",
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

// LoggingMiddleware writes one line per request. Errors attached with
// c.Error are logged here and never sent to the client.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.String("ua", c.Request.UserAgent()),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes_out", c.Writer.Size()),
		}

		if staff, ok := staffFrom(c); ok {
			fields = append(fields, zap.String("staff", staff.Email))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
			logger.Error("http", fields...)
			return
		}

		logger.Info("http", fields...)
	}
}

// RecoveryMiddleware turns panics into a logged 500.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	})
}

func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// StaffAuth requires a valid bearer token and stores the staff identity.
func StaffAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing staff session"})
			return
		}

		staff, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid staff session"})
			return
		}

		c.Set(ctxStaff, staff)
		c.Next()
	}
}

// DeviceGate admits only registered terminals. A nil checker disables the gate.
func DeviceGate(devices DeviceChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if devices == nil {
			c.Next()
			return
		}

		deviceID := strings.TrimSpace(c.GetHeader(headerDeviceID))
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "device not permitted", Code: "untrusted_device"})
			return
		}

		ok, err := devices.Trusted(c.Request.Context(), deviceID)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "device not permitted", Code: "untrusted_device"})
			return
		}

		c.Next()
	}
}

// RequireRole lets only the listed roles through. Must run after StaffAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, ok := staffFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing staff session"})
			return
		}

		for _, r := range roles {
			if staff.Role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "role not permitted", Code: "forbidden"})
	}
}

// RateLimit caps mutations per device, or per staff member when the request
// carries no device id. A nil limiter disables it.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		id := strings.TrimSpace(c.GetHeader(headerDeviceID))
		if id == "" {
			if staff, ok := staffFrom(c); ok {
				id = "staff:" + staff.Email
			} else {
				id = "ip:" + c.ClientIP()
			}
		}

		d, err := limiter.Allow(c.Request.Context(), id)
		if err != nil {
			// limiter outage must not stop service
			_ = c.Error(err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			secs := int(d.RetryAfter.Seconds() + 0.999)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "rate_limited"})
			return
		}

		c.Next()
	}
}

func staffFrom(c *gin.Context) (domain.Staff, bool) {
	v, ok := c.Get(ctxStaff)
	if !ok {
		return domain.Staff{}, false
	}
	staff, ok := v.(domain.Staff)
	return staff, ok
}
