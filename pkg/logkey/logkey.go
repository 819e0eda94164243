package logkey

// Keys used for structured logging across the service, so log fields stay
// greppable.
const (
	TraceID        = "trace_id"
	ERROR          = "error"
	UserID         = "user_id"
	ProductID      = "product_id"
	OrderID        = "order_id"
	PrescriptionID = "prescription_id"
)
