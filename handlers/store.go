package handlers

import (
	"context"

	"github.com/armahpen/backend-smilepill/internal/cart"
	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/internal/orders"
	"github.com/armahpen/backend-smilepill/internal/prescriptions"
	"github.com/armahpen/backend-smilepill/internal/users"
)

// The handler layer talks to the data access layer through these interfaces
// so route tests can run against in-memory fakes.

type UserStore interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	GetUserByUsername(ctx context.Context, username string) (users.User, error)
	GetUserByEmail(ctx context.Context, email string) (users.User, error)
	CreateUser(ctx context.Context, nu users.NewUser) (users.User, error)
	ListUsers(ctx context.Context) ([]users.User, error)
	GetUserWithPermissions(ctx context.Context, id string) (users.UserWithPermissions, error)
	SetUserAdmin(ctx context.Context, id string, isAdmin bool, role *string) (users.User, error)
	HasAdminPermission(ctx context.Context, userID string, permission users.Permission) (bool, error)
	AddAdminPermission(ctx context.Context, userID string, permission users.Permission) (users.AdminPermission, error)
	RemoveAdminPermission(ctx context.Context, userID string, permission users.Permission) error
}

type CatalogStore interface {
	GetProducts(ctx context.Context, f catalog.ProductFilters) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (catalog.Product, error)
	CreateProduct(ctx context.Context, np catalog.NewProduct) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, up catalog.UpdateProduct) (catalog.Product, error)
	UpdateProductStock(ctx context.Context, id string, quantity int) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetCategories(ctx context.Context) ([]catalog.Category, error)
	GetBrands(ctx context.Context) ([]catalog.Brand, error)
}

type CartStore interface {
	GetCartItems(ctx context.Context, userID string) ([]cart.CartItem, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) (cart.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (cart.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, no orders.NewOrder, items []orders.NewOrderItem) (orders.Order, error)
	GetOrders(ctx context.Context, userID string) ([]orders.Order, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status orders.OrderStatus, paymentStatus *orders.PaymentStatus) (orders.Order, error)
	AttachPaymentIntent(ctx context.Context, id, paymentIntentID string) error
}

type PrescriptionStore interface {
	CreatePrescription(ctx context.Context, np prescriptions.NewPrescription) (prescriptions.Prescription, error)
	GetPrescriptions(ctx context.Context, userID *string) ([]prescriptions.Prescription, error)
	UpdatePrescriptionStatus(ctx context.Context, id string, status prescriptions.Status, notes *string, reviewerID string) error
}

// EventProducer publishes domain events. Nil-safe at the call sites: when
// Kafka is not configured the handlers simply skip publishing.
type EventProducer interface {
	ProduceMessage(topic string, key, value []byte) error
}
