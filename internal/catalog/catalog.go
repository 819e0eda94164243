package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Conf provides data access for the product catalog.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const productSelect = `
	SELECT p.id, p.name, p.slug, p.description, p.short_description, p.price, p.original_price,
	       p.dosage, p.stock_quantity, p.requires_prescription, p.is_active, p.rating, p.review_count,
	       p.category_id, p.brand_id, p.created_at, p.updated_at,
	       c.id, c.name, c.slug, c.description,
	       b.id, b.name, b.description
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN brands b ON b.id = p.brand_id`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var desc, shortDesc, origPrice, categoryID, brandID sql.NullString
	var catID, catName, catSlug, catDesc sql.NullString
	var brID, brName, brDesc sql.NullString

	err := row.Scan(&p.ID, &p.Name, &p.Slug, &desc, &shortDesc, &p.Price, &origPrice,
		&p.Dosage, &p.StockQuantity, &p.RequiresPrescription, &p.IsActive, &p.Rating, &p.ReviewCount,
		&categoryID, &brandID, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catSlug, &catDesc,
		&brID, &brName, &brDesc)
	if err != nil {
		return Product{}, err
	}

	p.Description = nullableString(desc)
	p.ShortDescription = nullableString(shortDesc)
	p.OriginalPrice = nullableString(origPrice)
	p.CategoryID = nullableString(categoryID)
	p.BrandID = nullableString(brandID)
	if catID.Valid {
		p.Category = &Category{ID: catID.String, Name: catName.String, Slug: catSlug.String, Description: nullableString(catDesc)}
	}
	if brID.Valid {
		p.Brand = &Brand{ID: brID.String, Name: brName.String, Description: nullableString(brDesc)}
	}
	return p, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// buildProductFilters turns the filter set into a WHERE clause and its
// positional args. Only active products are ever listed.
func buildProductFilters(f ProductFilters) (string, []any) {
	conditions := []string{"p.is_active = true"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategoryID != "" {
		conditions = append(conditions, "p.category_id = "+arg(f.CategoryID))
	}
	if f.BrandID != "" {
		conditions = append(conditions, "p.brand_id = "+arg(f.BrandID))
	}
	if f.Search != "" {
		conditions = append(conditions, "p.name ILIKE "+arg("%"+f.Search+"%"))
	}
	if f.MinPrice != nil {
		conditions = append(conditions, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conditions = append(conditions, "p.price <= "+arg(*f.MaxPrice))
	}
	if f.InStock {
		conditions = append(conditions, "p.stock_quantity > 0")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY p.created_at DESC"
	if f.Limit > 0 {
		clause += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		clause += " OFFSET " + arg(f.Offset)
	}
	return clause, args
}

// GetProducts lists active products matching every provided filter, newest
// first, each enriched with its category and brand.
func (c *Conf) GetProducts(ctx context.Context, f ProductFilters) ([]Product, error) {
	clause, args := buildProductFilters(f)
	rows, err := c.db.QueryContext(ctx, productSelect+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// GetProduct fetches one product by id with category/brand enrichment.
// Returns sql.ErrNoRows when absent.
func (c *Conf) GetProduct(ctx context.Context, id string) (Product, error) {
	return scanProduct(c.db.QueryRowContext(ctx, productSelect+" WHERE p.id = $1", id))
}

// GetProductBySlug fetches one product by its unique slug.
func (c *Conf) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return scanProduct(c.db.QueryRowContext(ctx, productSelect+" WHERE p.slug = $1", slug))
}

func (c *Conf) CreateProduct(ctx context.Context, np NewProduct) (Product, error) {
	rating := np.Rating
	if rating == "" {
		rating = "0"
	}
	query := `
		INSERT INTO products (id, name, slug, description, short_description, price, original_price,
		                      dosage, stock_quantity, requires_prescription, is_active, rating, review_count,
		                      category_id, brand_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id`
	var id string
	err := c.db.QueryRowContext(ctx, query,
		uuid.NewString(), np.Name, np.Slug, np.Description, np.ShortDescription, np.Price, np.OriginalPrice,
		np.Dosage, np.StockQuantity, np.RequiresPrescription, np.IsActive, rating, np.ReviewCount,
		np.CategoryID, np.BrandID).Scan(&id)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return c.GetProduct(ctx, id)
}

// UpdateProduct applies only the provided fields and refreshes updated_at.
// Returns sql.ErrNoRows when the product does not exist.
func (c *Conf) UpdateProduct(ctx context.Context, id string, up UpdateProduct) (Product, error) {
	sets := []string{}
	args := []any{id}

	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if up.Name != nil {
		set("name", *up.Name)
	}
	if up.Slug != nil {
		set("slug", *up.Slug)
	}
	if up.Description != nil {
		set("description", *up.Description)
	}
	if up.ShortDescription != nil {
		set("short_description", *up.ShortDescription)
	}
	if up.Price != nil {
		set("price", *up.Price)
	}
	if up.OriginalPrice != nil {
		set("original_price", *up.OriginalPrice)
	}
	if up.Dosage != nil {
		set("dosage", *up.Dosage)
	}
	if up.StockQuantity != nil {
		set("stock_quantity", *up.StockQuantity)
	}
	if up.RequiresPrescription != nil {
		set("requires_prescription", *up.RequiresPrescription)
	}
	if up.IsActive != nil {
		set("is_active", *up.IsActive)
	}
	if up.CategoryID != nil {
		set("category_id", *up.CategoryID)
	}
	if up.BrandID != nil {
		set("brand_id", *up.BrandID)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, sql.ErrNoRows
	}
	return c.GetProduct(ctx, id)
}

// UpdateProductStock sets the stock to an absolute value, not a delta.
func (c *Conf) UpdateProductStock(ctx context.Context, id string, quantity int) (Product, error) {
	query := `UPDATE products SET stock_quantity = $2, updated_at = NOW() WHERE id = $1`
	res, err := c.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return Product{}, fmt.Errorf("failed to update stock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, sql.ErrNoRows
	}
	return c.GetProduct(ctx, id)
}

func (c *Conf) DeleteProduct(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (c *Conf) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	query := `
		INSERT INTO categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, description`
	var cat Category
	var desc sql.NullString
	err := c.db.QueryRowContext(ctx, query, uuid.NewString(), nc.Name, nc.Slug, nc.Description).
		Scan(&cat.ID, &cat.Name, &cat.Slug, &desc)
	if err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	cat.Description = nullableString(desc)
	return cat, nil
}

func (c *Conf) GetCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var cat Category
		var desc sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Description = nullableString(desc)
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (c *Conf) CreateBrand(ctx context.Context, nb NewBrand) (Brand, error) {
	query := `
		INSERT INTO brands (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description`
	var b Brand
	var desc sql.NullString
	err := c.db.QueryRowContext(ctx, query, uuid.NewString(), nb.Name, nb.Description).
		Scan(&b.ID, &b.Name, &desc)
	if err != nil {
		return Brand{}, fmt.Errorf("failed to insert brand: %w", err)
	}
	b.Description = nullableString(desc)
	return b, nil
}

func (c *Conf) GetBrands(ctx context.Context) ([]Brand, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, description FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	brands := []Brand{}
	for rows.Next() {
		var b Brand
		var desc sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		b.Description = nullableString(desc)
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brands: %w", err)
	}
	return brands, nil
}

// Bulk wipes used by reset tooling only. Products go first so category and
// brand foreign keys never dangle.

func (c *Conf) DeleteAllProducts(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func (c *Conf) DeleteAllCategories(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("failed to delete categories: %w", err)
	}
	return nil
}

func (c *Conf) DeleteAllBrands(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM brands`); err != nil {
		return fmt.Errorf("failed to delete brands: %w", err)
	}
	return nil
}
