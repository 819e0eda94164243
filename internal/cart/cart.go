package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/armahpen/backend-smilepill/internal/catalog"
)

// CartItem is one (user, product) row. Product is attached on reads.
type CartItem struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Product   *catalog.Product `json:"product,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Conf provides data access for cart items.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// AddToCart accumulates quantity onto the (user, product) row, inserting it
// if absent. The unique index on (user_id, product_id) makes this one atomic
// statement, so two concurrent adds both land.
func (c *Conf) AddToCart(ctx context.Context, userID, productID string, quantity int) (CartItem, error) {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = NOW()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`
	var item CartItem
	err := c.db.QueryRowContext(ctx, query, uuid.NewString(), userID, productID, quantity).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return CartItem{}, fmt.Errorf("failed to add to cart: %w", err)
	}
	return item, nil
}

// UpdateCartItem replaces the quantity with an absolute value. Returns
// sql.ErrNoRows when no such cart item exists; callers surface that rather
// than silently ignoring it.
func (c *Conf) UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (CartItem, error) {
	query := `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`
	var item CartItem
	err := c.db.QueryRowContext(ctx, query, userID, productID, quantity).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// RemoveFromCart deletes the (user, product) row. Deleting a non-existent
// row is a no-op.
func (c *Conf) RemoveFromCart(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	if _, err := c.db.ExecContext(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

// ClearCart deletes every cart row for the user.
func (c *Conf) ClearCart(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// GetCartItems lists the user's cart, newest first, each item inner-joined
// to its product and the product left-joined to category and brand.
func (c *Conf) GetCartItems(ctx context.Context, userID string) ([]CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.slug, p.description, p.short_description, p.price, p.original_price,
		       p.dosage, p.stock_quantity, p.requires_prescription, p.is_active, p.rating, p.review_count,
		       p.category_id, p.brand_id, p.created_at, p.updated_at,
		       c.id, c.name, c.slug, c.description,
		       b.id, b.name, b.description
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at DESC`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		var item CartItem
		var p catalog.Product
		var desc, shortDesc, origPrice, categoryID, brandID sql.NullString
		var catID, catName, catSlug, catDesc sql.NullString
		var brID, brName, brDesc sql.NullString

		err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Slug, &desc, &shortDesc, &p.Price, &origPrice,
			&p.Dosage, &p.StockQuantity, &p.RequiresPrescription, &p.IsActive, &p.Rating, &p.ReviewCount,
			&categoryID, &brandID, &p.CreatedAt, &p.UpdatedAt,
			&catID, &catName, &catSlug, &catDesc,
			&brID, &brName, &brDesc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		p.Description = nullable(desc)
		p.ShortDescription = nullable(shortDesc)
		p.OriginalPrice = nullable(origPrice)
		p.CategoryID = nullable(categoryID)
		p.BrandID = nullable(brandID)
		if catID.Valid {
			p.Category = &catalog.Category{ID: catID.String, Name: catName.String, Slug: catSlug.String, Description: nullable(catDesc)}
		}
		if brID.Valid {
			p.Brand = &catalog.Brand{ID: brID.String, Name: brName.String, Description: nullable(brDesc)}
		}
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
