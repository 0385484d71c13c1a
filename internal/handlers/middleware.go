package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atharvakonge/stocksim/internal/accounts"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxClaims    = "claims"
)

// requestLogger tags every request with an id and logs one line when it completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

func (h *Handler) recovered(c *gin.Context, v any) {
	h.log(c).Error("panic recovered", slog.Any("panic", v))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalMessage})
}

// requireAuth accepts "Authorization: Bearer <jwt>" only.
func (h *Handler) requireAuth(c *gin.Context) {
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
		return
	}

	claims, err := h.tokens.Parse(raw)
	if err != nil {
		h.log(c).Debug("token rejected", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Your session has expired. Please log in again."})
		return
	}

	c.Set(ctxClaims, claims)
	c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func claimsFrom(c *gin.Context) *accounts.Claims {
	v, _ := c.Get(ctxClaims)
	claims, _ := v.(*accounts.Claims)
	return claims
}

func userID(c *gin.Context) int64 {
	if claims := claimsFrom(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func (h *Handler) log(c *gin.Context) *slog.Logger {
	return h.logger.With(slog.String("request_id", c.GetString(ctxRequestID)))
}
