package catalog

import "time"

// Category groups products for storefront navigation. Slug is globally
// unique.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
}

type NewCategory struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug" validate:"required"`
	Description *string `json:"description"`
}

type Brand struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type NewBrand struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// Product is a catalog row enriched with its category and brand via left
// join; both are optional, a product may be uncategorized or unbranded.
// Monetary fields are decimal strings to avoid float drift.
type Product struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Slug                 string    `json:"slug"`
	Description          *string   `json:"description,omitempty"`
	ShortDescription     *string   `json:"short_description,omitempty"`
	Price                string    `json:"price"`
	OriginalPrice        *string   `json:"original_price,omitempty"`
	Dosage               string    `json:"dosage"`
	StockQuantity        int       `json:"stock_quantity"`
	RequiresPrescription bool      `json:"requires_prescription"`
	IsActive             bool      `json:"is_active"`
	Rating               string    `json:"rating"`
	ReviewCount          int       `json:"review_count"`
	CategoryID           *string   `json:"category_id,omitempty"`
	BrandID              *string   `json:"brand_id,omitempty"`
	Category             *Category `json:"category,omitempty"`
	Brand                *Brand    `json:"brand,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type NewProduct struct {
	Name                 string  `json:"name" validate:"required"`
	Slug                 string  `json:"slug" validate:"required"`
	Description          *string `json:"description"`
	ShortDescription     *string `json:"short_description"`
	Price                string  `json:"price" validate:"required"`
	OriginalPrice        *string `json:"original_price"`
	Dosage               string  `json:"dosage"`
	StockQuantity        int     `json:"stock_quantity" validate:"min=0"`
	RequiresPrescription bool    `json:"requires_prescription"`
	IsActive             bool    `json:"is_active"`
	Rating               string  `json:"rating"`
	ReviewCount          int     `json:"review_count"`
	CategoryID           *string `json:"category_id"`
	BrandID              *string `json:"brand_id"`
}

// UpdateProduct carries a partial update: only non-nil fields are applied.
type UpdateProduct struct {
	Name                 *string `json:"name"`
	Slug                 *string `json:"slug"`
	Description          *string `json:"description"`
	ShortDescription     *string `json:"short_description"`
	Price                *string `json:"price"`
	OriginalPrice        *string `json:"original_price"`
	Dosage               *string `json:"dosage"`
	StockQuantity        *int    `json:"stock_quantity"`
	RequiresPrescription *bool   `json:"requires_prescription"`
	IsActive             *bool   `json:"is_active"`
	CategoryID           *string `json:"category_id"`
	BrandID              *string `json:"brand_id"`
}

// ProductFilters narrows GetProducts. Zero values mean "no filter"; price
// bounds are inclusive.
type ProductFilters struct {
	CategoryID string
	BrandID    string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	Limit      int
	Offset     int
}
