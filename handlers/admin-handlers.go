package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/internal/users"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

// CreateAdminProduct adds a catalog product. Slug conflicts surface as 409.
func (h *Handler) CreateAdminProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	var np catalog.NewProduct
	if err := c.ShouldBindJSON(&np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Name, slug and price are required"})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), np)
	if err != nil {
		if isUniqueViolation(err) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A product with this slug already exists"})
			return
		}
		slog.Error("failed to create product", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	slog.Info("product created", slog.String(logkey.TraceID, traceID), slog.String(logkey.ProductID, product.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": product})
}

// UpdateAdminProduct applies a partial product update.
func (h *Handler) UpdateAdminProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	var up catalog.UpdateProduct
	if err := c.ShouldBindJSON(&up); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), productID, up)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if isUniqueViolation(err) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A product with this slug already exists"})
			return
		}
		slog.Error("failed to update product", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

type updateStockRequest struct {
	StockQuantity *int `json:"stock_quantity" validate:"required"`
}

// UpdateProductStock sets an absolute stock level.
func (h *Handler) UpdateProductStock(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil || *req.StockQuantity < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Stock quantity must be zero or greater"})
		return
	}

	product, err := h.catalog.UpdateProductStock(c.Request.Context(), productID, *req.StockQuantity)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("failed to update stock", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "product": product})
}

func (h *Handler) DeleteAdminProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	if err := h.catalog.DeleteProduct(c.Request.Context(), productID); err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("failed to delete product", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	slog.Info("product deleted", slog.String(logkey.TraceID, traceID), slog.String(logkey.ProductID, productID))
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func (h *Handler) ListUsers(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h *Handler) GetUserWithPermissions(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID := c.Param("id")

	user, err := h.users.GetUserWithPermissions(c.Request.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		slog.Error("failed to fetch user", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type setAdminRequest struct {
	IsAdmin bool    `json:"is_admin"`
	Role    *string `json:"role"`
}

// SetUserAdmin grants or revokes admin standing. The role is always written
// from the request, so omitting it clears any stored role.
func (h *Handler) SetUserAdmin(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID := c.Param("id")

	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.users.SetUserAdmin(c.Request.Context(), userID, req.IsAdmin, req.Role)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		slog.Error("failed to set admin status", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	slog.Info("admin status updated", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.Bool("is_admin", req.IsAdmin))
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
}

type addPermissionRequest struct {
	Permission string `json:"permission" validate:"required"`
}

func (h *Handler) AddPermission(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID := c.Param("id")

	var req addPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	permission := users.Permission(req.Permission)
	if !permission.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown permission"})
		return
	}

	grant, err := h.users.AddAdminPermission(c.Request.Context(), userID, permission)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		slog.Error("failed to add permission", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add permission"})
		return
	}

	slog.Info("permission granted", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.String("permission", string(permission)))
	c.JSON(http.StatusCreated, gin.H{"message": "Permission added", "grant": grant})
}

func (h *Handler) RemovePermission(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID := c.Param("id")

	permission := users.Permission(c.Param("permission"))
	if !permission.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown permission"})
		return
	}

	if err := h.users.RemoveAdminPermission(c.Request.Context(), userID, permission); err != nil {
		slog.Error("failed to remove permission", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove permission"})
		return
	}

	slog.Info("permission revoked", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.String("permission", string(permission)))
	c.JSON(http.StatusOK, gin.H{"message": "Permission removed"})
}
