package handler

import (
	"campus_api/internal/auth"
	"campus_api/internal/common"
	"campus_api/internal/models"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "RequestID"
)

// AuthMiddleware accepts "Authorization: <token>" or "Authorization: Bearer <token>".
// An expired token is 401 and any other verification failure is 403.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			newErrorResponse(c, http.StatusUnauthorized, "Missing authorization header")

			return
		}

		tokenStr := header
		if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			tokenStr = strings.TrimSpace(rest)
		} else if strings.EqualFold(header, "Bearer") {
			tokenStr = ""
		}

		if tokenStr == "" {
			newErrorResponse(c, http.StatusUnauthorized, "Missing token")

			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenExpired):
				newErrorResponse(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, common.ErrServerMisconfigured):
				newErrorResponse(c, http.StatusInternalServerError, "Server misconfigured")
			default:
				newErrorResponse(c, http.StatusForbidden, "Invalid token")
			}

			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))

		c.Next()
	}
}

// RequireRole must run after AuthMiddleware. A role outside the known set never passes.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			newErrorResponse(c, http.StatusUnauthorized, "Not authenticated")

			return
		}

		switch claims.Role {
		case models.RoleStudent, models.RoleOrganisation:
			if claims.Role != role {
				newErrorResponse(c, http.StatusForbidden, "Insufficient permissions")

				return
			}
		default:
			newErrorResponse(c, http.StatusForbidden, "Insufficient permissions")

			return
		}

		c.Next()
	}
}

// RequestID propagates the caller's X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		h.log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

func (h *Handler) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		h.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		h.metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)

		c.Next()
	}
}
