package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/armahpen/backend-smilepill/internal/cart"
	"github.com/armahpen/backend-smilepill/internal/orders"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

func (h *Handler) ListOrders(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.orders.GetOrders(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list orders", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID := c.Param("id")

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("failed to fetch order", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order.UserID != userID {
		// Orders are private; an order belonging to someone else is
		// indistinguishable from a missing one.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderByNumber resolves an order by the customer-facing number printed on
// receipts and confirmation emails.
func (h *Handler) GetOrderByNumber(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderNumber := c.Param("orderNumber")

	order, err := h.orders.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("failed to fetch order", slog.String(logkey.TraceID, traceID),
			slog.String("order_number", orderNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order.UserID != userID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

type createOrderRequest struct {
	ShippingAddress json.RawMessage `json:"shipping_address"`
	BillingAddress  json.RawMessage `json:"billing_address"`
}

// CreateOrder turns the caller's cart into an order at current catalog
// prices and clears the cart. The order and its items are written in one
// transaction by the data layer.
func (h *Handler) CreateOrder(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	items, err := h.cart.GetCartItems(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to fetch cart items", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	if len(items) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	orderItems, total, err := buildOrderItems(items)
	if err != nil {
		slog.Error("failed to price cart items", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), orders.NewOrder{
		UserID:          userID,
		OrderNumber:     generateOrderNumber(),
		Status:          orders.StatusPending,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentStatus:   orders.PaymentPending,
	}, orderItems)
	if err != nil {
		slog.Error("failed to create order", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	if err := h.cart.ClearCart(c.Request.Context(), userID); err != nil {
		// The order exists; a stale cart is an annoyance, not a failure.
		slog.Error("failed to clear cart after order", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.String(logkey.OrderID, order.ID))
	c.JSON(http.StatusCreated, order)
}

// Checkout creates a pending order from the cart and a Stripe checkout
// session for it, returning the hosted payment URL.
func (h *Handler) Checkout(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sKey := os.Getenv("STRIPE_SECRET_KEY")
	if sKey == "" {
		slog.Error("stripe secret key not configured", slog.String(logkey.TraceID, traceID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Payments are not configured"})
		return
	}
	stripe.Key = sKey

	items, err := h.cart.GetCartItems(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to fetch cart items", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}
	if len(items) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	lineItems := []*stripe.CheckoutSessionLineItemParams{}
	for _, item := range items {
		if item.Product.StockQuantity < item.Quantity {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock for " + item.Product.Name})
			return
		}
		cents, err := priceToCents(item.Product.Price)
		if err != nil {
			slog.Error("invalid product price", slog.String(logkey.TraceID, traceID),
				slog.String(logkey.ProductID, item.ProductID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
			return
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(cents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Product.Name),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	orderItems, total, err := buildOrderItems(items)
	if err != nil {
		slog.Error("failed to price cart items", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), orders.NewOrder{
		UserID:        userID,
		OrderNumber:   generateOrderNumber(),
		Status:        orders.StatusPending,
		TotalAmount:   total,
		PaymentStatus: orders.PaymentPending,
	}, orderItems)
	if err != nil {
		slog.Error("failed to create order", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}

	successURL := os.Getenv("CHECKOUT_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://example.com/success"
	}
	cancelURL := os.Getenv("CHECKOUT_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "https://example.com/cancel"
	}
	params := &stripe.CheckoutSessionParams{
		SubmitType: stripe.String("pay"),
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": order.ID,
				"user_id":  userID,
			},
		},
	}
	sessionStripe, err := session.New(params)
	if err != nil {
		slog.Error("failed to create stripe checkout session", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	if err := h.cart.ClearCart(c.Request.Context(), userID); err != nil {
		slog.Error("failed to clear cart after checkout", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{"checkout_session_url": sessionStripe.URL, "order": order})
}

type updateOrderStatusRequest struct {
	Status        string  `json:"status" validate:"required"`
	PaymentStatus *string `json:"payment_status"`
}

// UpdateOrderStatus is the admin fulfilment endpoint. Payment status is only
// written when the request provides one.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	orderID := c.Param("id")

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	status := orders.OrderStatus(req.Status)
	if !status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}
	var paymentStatus *orders.PaymentStatus
	if req.PaymentStatus != nil {
		ps := orders.PaymentStatus(*req.PaymentStatus)
		if !ps.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid payment status"})
			return
		}
		paymentStatus = &ps
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, status, paymentStatus)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("failed to update order status", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": order})
}

// buildOrderItems captures each cart item's current product price as the
// immutable order unit price and sums the total.
func buildOrderItems(items []cart.CartItem) ([]orders.NewOrderItem, string, error) {
	orderItems := make([]orders.NewOrderItem, 0, len(items))
	total := 0.0
	for _, item := range items {
		price, err := strconv.ParseFloat(item.Product.Price, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid price for product %s: %w", item.ProductID, err)
		}
		total += price * float64(item.Quantity)
		orderItems = append(orderItems, orders.NewOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		})
	}
	return orderItems, fmt.Sprintf("%.2f", total), nil
}

func priceToCents(price string) (int64, error) {
	f, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f * 100)), nil
}

func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SP-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
