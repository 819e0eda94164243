package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

// ListProducts serves the public catalog with the full filter set.
func (h *Handler) ListProducts(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	filters := catalog.ProductFilters{
		CategoryID: c.Query("categoryId"),
		BrandID:    c.Query("brandId"),
		Search:     c.Query("search"),
		InStock:    c.Query("inStock") == "true",
	}

	if v := c.Query("minPrice"); v != "" {
		minPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid minPrice parameter"})
			return
		}
		filters.MinPrice = &minPrice
	}
	if v := c.Query("maxPrice"); v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid maxPrice parameter"})
			return
		}
		filters.MaxPrice = &maxPrice
	}
	if v := c.DefaultQuery("limit", "50"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		filters.Limit = limit
	}
	if v := c.DefaultQuery("offset", "0"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
		filters.Offset = offset
	}

	products, err := h.catalog.GetProducts(c.Request.Context(), filters)
	if err != nil {
		slog.Error("failed to list products", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct serves a single product by id or, when the parameter is not a
// UUID, by slug.
func (h *Handler) GetProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	idOrSlug := c.Param("idOrSlug")

	var product catalog.Product
	var err error
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = h.catalog.GetProduct(c.Request.Context(), idOrSlug)
	} else {
		product, err = h.catalog.GetProductBySlug(c.Request.Context(), strings.ToLower(idOrSlug))
	}
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("failed to fetch product", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.ProductID, idOrSlug), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) ListCategories(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	categories, err := h.catalog.GetCategories(c.Request.Context())
	if err != nil {
		slog.Error("failed to list categories", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) ListBrands(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	brands, err := h.catalog.GetBrands(c.Request.Context())
	if err != nil {
		slog.Error("failed to list brands", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brands"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}
