package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/armahpen/backend-smilepill/internal/auth"
	"github.com/armahpen/backend-smilepill/internal/users"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

const sessionValidity = 24 * time.Hour

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) Register(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Explicit duplicate checks give the client a precise message; the
	// unique constraints still backstop the race between check and insert.
	if _, err := h.users.GetUserByUsername(c.Request.Context(), req.Username); err == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		return
	} else if !isNotFound(err) {
		slog.Error("failed to check username", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	if _, err := h.users.GetUserByEmail(c.Request.Context(), req.Email); err == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	} else if !isNotFound(err) {
		slog.Error("failed to check email", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), users.NewUser{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if isUniqueViolation(err) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
			return
		}
		slog.Error("failed to create user", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	slog.Info("user registered", slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, user.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !isNotFound(err) {
			slog.Error("failed to load user", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if user.PasswordHash == nil {
		// Externally-authenticated identity; no password to compare.
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err := auth.CheckPassword(*user.PasswordHash, req.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.keys.GenerateToken(user.ID, sessionValidity)
	if err != nil {
		slog.Error("failed to generate session token", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	slog.Info("user logged in", slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user, "token": token})
}
