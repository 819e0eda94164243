package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

func (h *Handler) GetCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	items, err := h.cart.GetCartItems(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to fetch cart items", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type addToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product ID and quantity must be valid"})
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("failed to fetch product", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.ProductID, req.ProductID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add product to cart"})
		return
	}
	if !product.IsActive {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product is not available"})
		return
	}
	if product.StockQuantity < req.Quantity {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock available"})
		return
	}

	item, err := h.cart.AddToCart(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		slog.Error("failed to add to cart", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ProductID, req.ProductID),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add product to cart"})
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.String(logkey.ProductID, req.ProductID),
		slog.Int("quantity", item.Quantity))
	c.JSON(http.StatusOK, gin.H{"message": "Product added to cart", "item": item})
}

type updateCartRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID := c.Param("productID")

	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		return
	}

	item, err := h.cart.UpdateCartItem(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}
		slog.Error("failed to update cart item", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ProductID, productID),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart item updated", "item": item})
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID := c.Param("productID")

	if err := h.cart.RemoveFromCart(c.Request.Context(), userID, productID); err != nil {
		slog.Error("failed to remove cart item", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ProductID, productID),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.cart.ClearCart(c.Request.Context(), userID); err != nil {
		slog.Error("failed to clear cart", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
