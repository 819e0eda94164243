package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"

	"github.com/armahpen/backend-smilepill/internal/orders"
	"github.com/armahpen/backend-smilepill/internal/stores/kafka"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

// Webhook receives Stripe payment events. A successful payment intent moves
// the referenced order to processing/paid and publishes an order-paid event.
// Stripe retries on non-2xx, so transient failures return 500.
func (h *Handler) Webhook(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		slog.Error("failed to parse webhook event", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if event.Type != "payment_intent.succeeded" {
		// Acknowledge everything else so Stripe stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		slog.Error("failed to parse payment intent", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	orderID := intent.Metadata["order_id"]
	if orderID == "" {
		slog.Error("payment intent without order metadata", slog.String(logkey.TraceID, traceID),
			slog.String("payment_intent_id", intent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	paid := orders.PaymentPaid
	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, orders.StatusProcessing, &paid)
	if err != nil {
		if isNotFound(err) {
			slog.Error("payment for unknown order", slog.String(logkey.TraceID, traceID),
				slog.String(logkey.OrderID, orderID))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		slog.Error("failed to mark order paid", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment event"})
		return
	}

	if err := h.orders.AttachPaymentIntent(c.Request.Context(), orderID, intent.ID); err != nil {
		slog.Error("failed to attach payment intent", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
	}

	if h.events != nil {
		payload, err := json.Marshal(kafka.OrderPaidEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			CreatedAt:   time.Now().UTC(),
		})
		if err == nil {
			if err := h.events.ProduceMessage(kafka.TopicOrderPaid, []byte(order.ID), payload); err != nil {
				slog.Error("failed to publish order paid event", slog.String(logkey.TraceID, traceID),
					slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
			}
		}
	}

	slog.Info("order marked paid", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.OrderID, order.ID), slog.String("payment_intent_id", intent.ID))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
