package orders

import (
	"encoding/json"
	"time"
)

// OrderStatus is the fulfilment lifecycle. Stored as plain text; typed here
// so invalid values are rejected before persistence.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Order is an order row with its items attached. An order with zero items is
// still a valid order with an empty item list.
type Order struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"user_id"`
	OrderNumber           string          `json:"order_number"`
	Status                OrderStatus     `json:"status"`
	TotalAmount           string          `json:"total_amount"`
	ShippingAddress       json.RawMessage `json:"shipping_address,omitempty"`
	BillingAddress        json.RawMessage `json:"billing_address,omitempty"`
	PaymentStatus         PaymentStatus   `json:"payment_status"`
	StripePaymentIntentID *string         `json:"stripe_payment_intent_id,omitempty"`
	Items                 []OrderItem     `json:"items"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// OrderItem captures the unit price at purchase time. It is never re-read
// from the live product price, so historical orders keep their pricing.
type OrderItem struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	ProductID string        `json:"product_id"`
	Quantity  int           `json:"quantity"`
	UnitPrice string        `json:"unit_price"`
	Product   *OrderProduct `json:"product,omitempty"`
}

// OrderProduct is the slice of product detail attached to an order item.
type OrderProduct struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Price  string `json:"price"`
	Dosage string `json:"dosage"`
}

type NewOrder struct {
	UserID                string
	OrderNumber           string
	Status                OrderStatus
	TotalAmount           string
	ShippingAddress       json.RawMessage
	BillingAddress        json.RawMessage
	PaymentStatus         PaymentStatus
	StripePaymentIntentID *string
}

type NewOrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice string
}
