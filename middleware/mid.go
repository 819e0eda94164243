package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/armahpen/backend-smilepill/internal/auth"
	"github.com/armahpen/backend-smilepill/internal/users"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

// PermissionStore is the slice of user data access the middleware needs to
// authorize admin routes.
type PermissionStore interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	HasAdminPermission(ctx context.Context, userID string, permission users.Permission) (bool, error)
}

type Mid struct {
	keys  *auth.Keys
	store PermissionStore
}

func NewMid(keys *auth.Keys, store PermissionStore) *Mid {
	return &Mid{keys: keys, store: store}
}

// Authentication verifies the bearer session token and stores the claims in
// the request context under auth.ClaimsKey.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)

		authHeader := c.Request.Header.Get("Authorization")
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			slog.Error("missing or malformed authorization header", slog.String(logkey.TraceID, traceID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := m.keys.ParseToken(parts[1])
		if err != nil {
			slog.Error("invalid session token", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize wraps a handler with the admin chain: valid session, admin flag,
// then the named permission. Missing any link yields 401/403.
func (m *Mid) Authorize(next gin.HandlerFunc, permission users.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)

		claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		if !ok {
			slog.Error("claims not found", slog.String(logkey.TraceID, traceID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := m.store.GetUser(c.Request.Context(), claims.Subject)
		if err != nil {
			slog.Error("failed to load user for authorization", slog.String(logkey.TraceID, traceID),
				slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !user.IsAdmin {
			slog.Error("user is not an admin", slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, user.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		allowed, err := m.store.HasAdminPermission(c.Request.Context(), user.ID, permission)
		if err != nil {
			slog.Error("failed to check permission", slog.String(logkey.TraceID, traceID),
				slog.String(logkey.UserID, user.ID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			slog.Error("missing admin permission", slog.String(logkey.TraceID, traceID),
				slog.String(logkey.UserID, user.ID), slog.String("permission", string(permission)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			return
		}

		next(c)
	}
}
