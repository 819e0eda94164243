package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/armahpen/backend-smilepill/internal/auth"
	"github.com/armahpen/backend-smilepill/internal/users"
	"github.com/armahpen/backend-smilepill/middleware"
)

// Handler carries every dependency the route layer needs.
type Handler struct {
	users         UserStore
	catalog       CatalogStore
	cart          CartStore
	orders        OrderStore
	prescriptions PrescriptionStore
	events        EventProducer
	keys          *auth.Keys
	validate      *validator.Validate
	environment   string
	startTime     time.Time
}

// Config wires the router. Events may be nil when Kafka is not configured.
type Config struct {
	Keys          *auth.Keys
	Users         UserStore
	Catalog       CatalogStore
	Cart          CartStore
	Orders        OrderStore
	Prescriptions PrescriptionStore
	Events        EventProducer
	Environment   string
}

func NewHandler(cfg Config) *Handler {
	return &Handler{
		users:         cfg.Users,
		catalog:       cfg.Catalog,
		cart:          cfg.Cart,
		orders:        cfg.Orders,
		prescriptions: cfg.Prescriptions,
		events:        cfg.Events,
		keys:          cfg.Keys,
		validate:      validator.New(),
		environment:   cfg.Environment,
		startTime:     time.Now(),
	}
}

// API builds the gin engine with the full route surface.
func API(cfg Config) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	h := NewHandler(cfg)
	m := middleware.NewMid(cfg.Keys, cfg.Users)

	r.Use(middleware.Logger(), gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		api.GET("/products", h.ListProducts)
		api.GET("/products/:idOrSlug", h.GetProduct)
		api.GET("/categories", h.ListCategories)
		api.GET("/brands", h.ListBrands)

		api.POST("/orders/webhook", h.Webhook)
	}

	authed := r.Group("/api")
	authed.Use(m.Authentication())
	{
		authed.GET("/cart", h.GetCart)
		authed.POST("/cart", h.AddToCart)
		authed.PUT("/cart/:productID", h.UpdateCartItem)
		authed.DELETE("/cart/:productID", h.RemoveFromCart)
		authed.DELETE("/cart", h.ClearCart)

		authed.GET("/orders", h.ListOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.GET("/orders/number/:orderNumber", h.GetOrderByNumber)
		authed.POST("/orders", h.CreateOrder)
		authed.POST("/orders/checkout", h.Checkout)

		authed.POST("/prescriptions/submit", h.SubmitPrescription)
		authed.GET("/prescriptions", h.ListMyPrescriptions)
	}

	admin := r.Group("/api/admin")
	admin.Use(m.Authentication())
	{
		admin.POST("/products", m.Authorize(h.CreateAdminProduct, users.PermissionAddProducts))
		admin.PUT("/products/:id", m.Authorize(h.UpdateAdminProduct, users.PermissionEditProducts))
		admin.PUT("/products/:id/stock", m.Authorize(h.UpdateProductStock, users.PermissionEditProducts))
		admin.DELETE("/products/:id", m.Authorize(h.DeleteAdminProduct, users.PermissionEditProducts))

		admin.PUT("/orders/:id/status", m.Authorize(h.UpdateOrderStatus, users.PermissionEditProducts))

		admin.GET("/prescriptions", m.Authorize(h.ListPrescriptions, users.PermissionViewPrescriptions))
		admin.PUT("/prescriptions/:id/review", m.Authorize(h.ReviewPrescription, users.PermissionViewPrescriptions))

		admin.GET("/users", m.Authorize(h.ListUsers, users.PermissionManageUsers))
		admin.GET("/users/:id", m.Authorize(h.GetUserWithPermissions, users.PermissionManageUsers))
		admin.PUT("/users/:id/admin", m.Authorize(h.SetUserAdmin, users.PermissionManageUsers))
		admin.POST("/users/:id/permissions", m.Authorize(h.AddPermission, users.PermissionManageUsers))
		admin.DELETE("/users/:id/permissions/:permission", m.Authorize(h.RemovePermission, users.PermissionManageUsers))
	}

	return r
}

// HealthCheck always reports healthy; it only proves the process is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startTime).String(),
		"environment": h.environment,
	})
}
