package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Conf provides data access for orders and order items.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}

// CreateOrder inserts the order row and all of its items in one transaction,
// so a failure after the order insert leaves no orphaned order behind. The
// returned order carries its items enriched with product details.
func (c *Conf) CreateOrder(ctx context.Context, no NewOrder, items []NewOrderItem) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		insertOrder := `
			INSERT INTO orders (id, user_id, order_number, status, total_amount,
			                    shipping_address, billing_address, payment_status,
			                    stripe_payment_intent_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err := tx.QueryRowContext(ctx, insertOrder,
			uuid.NewString(), no.UserID, no.OrderNumber, no.Status, no.TotalAmount,
			nullableJSON(no.ShippingAddress), nullableJSON(no.BillingAddress),
			no.PaymentStatus, no.StripePaymentIntentID).
			Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		order.UserID = no.UserID
		order.OrderNumber = no.OrderNumber
		order.Status = no.Status
		order.TotalAmount = no.TotalAmount
		order.ShippingAddress = no.ShippingAddress
		order.BillingAddress = no.BillingAddress
		order.PaymentStatus = no.PaymentStatus
		order.StripePaymentIntentID = no.StripePaymentIntentID
		order.Items = []OrderItem{}

		insertItem := `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		fetchProduct := `SELECT id, name, slug, price, dosage FROM products WHERE id = $1`

		for _, it := range items {
			item := OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			}
			if err := tx.QueryRowContext(ctx, insertItem,
				uuid.NewString(), order.ID, it.ProductID, it.Quantity, it.UnitPrice).Scan(&item.ID); err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}

			var p OrderProduct
			if err := tx.QueryRowContext(ctx, fetchProduct, it.ProductID).
				Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Dosage); err != nil {
				return fmt.Errorf("failed to fetch product %s: %w", it.ProductID, err)
			}
			item.Product = &p
			order.Items = append(order.Items, item)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

const orderSelect = `
	SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount,
	       o.shipping_address, o.billing_address, o.payment_status,
	       o.stripe_payment_intent_id, o.created_at, o.updated_at,
	       oi.id, oi.product_id, oi.quantity, oi.unit_price,
	       p.id, p.name, p.slug, p.price, p.dosage
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id
	LEFT JOIN products p ON p.id = oi.product_id`

// orderRow is one row of the orders left join before grouping. Item and
// product columns are null for orders with no items.
type orderRow struct {
	order     Order
	itemID    sql.NullString
	productID sql.NullString
	quantity  sql.NullInt64
	unitPrice sql.NullString
	prodID    sql.NullString
	prodName  sql.NullString
	prodSlug  sql.NullString
	prodPrice sql.NullString
	dosage    sql.NullString
}

func (c *Conf) queryOrderRows(ctx context.Context, query string, args ...any) ([]orderRow, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []orderRow
	for rows.Next() {
		var r orderRow
		var shipping, billing []byte
		var paymentIntent sql.NullString
		err := rows.Scan(&r.order.ID, &r.order.UserID, &r.order.OrderNumber, &r.order.Status, &r.order.TotalAmount,
			&shipping, &billing, &r.order.PaymentStatus,
			&paymentIntent, &r.order.CreatedAt, &r.order.UpdatedAt,
			&r.itemID, &r.productID, &r.quantity, &r.unitPrice,
			&r.prodID, &r.prodName, &r.prodSlug, &r.prodPrice, &r.dosage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		r.order.ShippingAddress = shipping
		r.order.BillingAddress = billing
		if paymentIntent.Valid {
			r.order.StripePaymentIntentID = &paymentIntent.String
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return result, nil
}

// groupOrderRows folds join rows into orders keyed by order id, preserving
// first-seen order. Rows where the left join produced no item are kept as
// orders with an empty item list.
func groupOrderRows(rows []orderRow) []Order {
	index := map[string]int{}
	grouped := []Order{}
	for _, r := range rows {
		i, seen := index[r.order.ID]
		if !seen {
			o := r.order
			o.Items = []OrderItem{}
			grouped = append(grouped, o)
			i = len(grouped) - 1
			index[r.order.ID] = i
		}
		if !r.itemID.Valid {
			continue
		}
		item := OrderItem{
			ID:        r.itemID.String,
			OrderID:   r.order.ID,
			ProductID: r.productID.String,
			Quantity:  int(r.quantity.Int64),
			UnitPrice: r.unitPrice.String,
		}
		if r.prodID.Valid {
			item.Product = &OrderProduct{
				ID:     r.prodID.String,
				Name:   r.prodName.String,
				Slug:   r.prodSlug.String,
				Price:  r.prodPrice.String,
				Dosage: r.dosage.String,
			}
		}
		grouped[i].Items = append(grouped[i].Items, item)
	}
	return grouped
}

// GetOrders lists a user's orders, newest first, with items attached.
func (c *Conf) GetOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := c.queryOrderRows(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, oi.id`, userID)
	if err != nil {
		return nil, err
	}
	return groupOrderRows(rows), nil
}

// GetOrder fetches one order with its items. Returns sql.ErrNoRows when the
// order does not exist; a zero-item order is returned with an empty list.
func (c *Conf) GetOrder(ctx context.Context, id string) (Order, error) {
	rows, err := c.queryOrderRows(ctx, orderSelect+` WHERE o.id = $1 ORDER BY oi.id`, id)
	if err != nil {
		return Order{}, err
	}
	grouped := groupOrderRows(rows)
	if len(grouped) == 0 {
		return Order{}, sql.ErrNoRows
	}
	return grouped[0], nil
}

// GetOrderByNumber fetches one order by its customer-facing order number.
func (c *Conf) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	rows, err := c.queryOrderRows(ctx, orderSelect+` WHERE o.order_number = $1 ORDER BY oi.id`, orderNumber)
	if err != nil {
		return Order{}, err
	}
	grouped := groupOrderRows(rows)
	if len(grouped) == 0 {
		return Order{}, sql.ErrNoRows
	}
	return grouped[0], nil
}

// AttachPaymentIntent stores the payment provider's transaction reference on
// the order once checkout has produced one.
func (c *Conf) AttachPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET stripe_payment_intent_id = $2, updated_at = NOW() WHERE id = $1`,
		id, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to attach payment intent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateOrderStatus always updates status and updated_at. The payment status
// is written only when provided; passing nil leaves it untouched.
func (c *Conf) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus, paymentStatus *PaymentStatus) (Order, error) {
	var res sql.Result
	var err error
	if paymentStatus != nil {
		res, err = c.db.ExecContext(ctx,
			`UPDATE orders SET status = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`,
			id, status, *paymentStatus)
	} else {
		res, err = c.db.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
			id, status)
	}
	if err != nil {
		return Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Order{}, sql.ErrNoRows
	}
	return c.GetOrder(ctx, id)
}
