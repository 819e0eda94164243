// Package seed performs the one-time batch import of an external catalog
// feed into categories, brands and products.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/armahpen/backend-smilepill/internal/catalog"
)

// SourceItem is one row of the external catalog feed.
type SourceItem struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// Store is the subset of catalog data access the seeder needs.
type Store interface {
	CreateCategory(ctx context.Context, nc catalog.NewCategory) (catalog.Category, error)
	CreateBrand(ctx context.Context, nb catalog.NewBrand) (catalog.Brand, error)
	CreateProduct(ctx context.Context, np catalog.NewProduct) (catalog.Product, error)
}

// Summary counts what a run created.
type Summary struct {
	Categories int `json:"categories"`
	Brands     int `json:"brands"`
	Products   int `json:"products"`
}

const (
	fallbackCategory = "General Health"
	fallbackBrand    = "Generic"
)

func strptr(s string) *string { return &s }

// defaultCategories is the fixed category list created on every run. Seeding
// is not idempotent: run it against a clean catalog (see cmd/seed -reset).
var defaultCategories = []catalog.NewCategory{
	{Name: "Pain Relief", Slug: "pain-relief", Description: strptr("Analgesics and anti-inflammatory medication")},
	{Name: "Cold & Flu", Slug: "cold-flu", Description: strptr("Cough, cold and flu remedies")},
	{Name: "Vitamins & Supplements", Slug: "vitamins-supplements", Description: strptr("Daily vitamins, minerals and dietary supplements")},
	{Name: "Digestive Health", Slug: "digestive-health", Description: strptr("Antacids, probiotics and digestive aids")},
	{Name: "First Aid", Slug: "first-aid", Description: strptr("Bandages, antiseptics and wound care")},
	{Name: "Skin Care", Slug: "skin-care", Description: strptr("Dermatological creams and ointments")},
	{Name: "General Health", Slug: "general-health", Description: strptr("Everyday health essentials")},
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9]+`)
	dosagePat    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|tablets?|capsules?|count|ct)\b`)
	rxKeywords   = []string{"prescription", "rx", "antibiotic", "steroid"}
	maxSlugChars = 100
)

// Slugify lowercases, replaces runs of non-alphanumerics with a single
// hyphen and trims leading/trailing hyphens.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// extractDosage pulls a dosage token like "500 mg" or "30 tablets" out of a
// product name, defaulting to "As directed" when none matches.
func extractDosage(name string) string {
	if m := dosagePat.FindString(name); m != "" {
		return m
	}
	return "As directed"
}

// requiresPrescription flags products whose name suggests they are
// prescription-only.
func requiresPrescription(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range rxKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// dedupKey identifies a source item; items sharing name, brand and price are
// treated as the same listing.
func dedupKey(item SourceItem) string {
	return item.Name + "|" + item.Brand + "|" + item.Price
}

// Run imports the feed: the fixed categories unconditionally, one brand per
// distinct brand slug, then one product per deduplicated item. Stock, rating
// and review counts are randomized placeholders for data the feed lacks.
func Run(ctx context.Context, store Store, items []SourceItem) (Summary, error) {
	var summary Summary

	categoriesByName := map[string]catalog.Category{}
	for _, nc := range defaultCategories {
		created, err := store.CreateCategory(ctx, nc)
		if err != nil {
			return summary, fmt.Errorf("failed to create category %q: %w", nc.Name, err)
		}
		categoriesByName[created.Name] = created
		summary.Categories++
	}

	brandsBySlug := map[string]catalog.Brand{}
	for _, item := range items {
		name := item.Brand
		if name == "" {
			name = fallbackBrand
		}
		slug := Slugify(name)
		if _, ok := brandsBySlug[slug]; ok {
			continue
		}
		created, err := store.CreateBrand(ctx, catalog.NewBrand{Name: name})
		if err != nil {
			return summary, fmt.Errorf("failed to create brand %q: %w", name, err)
		}
		brandsBySlug[slug] = created
		summary.Brands++
	}
	if _, ok := brandsBySlug[Slugify(fallbackBrand)]; !ok {
		created, err := store.CreateBrand(ctx, catalog.NewBrand{Name: fallbackBrand})
		if err != nil {
			return summary, fmt.Errorf("failed to create fallback brand: %w", err)
		}
		brandsBySlug[Slugify(fallbackBrand)] = created
		summary.Brands++
	}

	seen := map[string]bool{}
	for _, item := range items {
		key := dedupKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true

		category, ok := categoriesByName[item.Category]
		if !ok {
			category = categoriesByName[fallbackCategory]
		}

		brandName := item.Brand
		if brandName == "" {
			brandName = fallbackBrand
		}
		brand, ok := brandsBySlug[Slugify(brandName)]
		if !ok {
			brand = brandsBySlug[Slugify(fallbackBrand)]
		}

		slug := Slugify(item.Name)
		if len(slug) > maxSlugChars {
			slug = slug[:maxSlugChars]
		}
		// Running count suffix keeps slugs unique across near-identical names.
		slug = fmt.Sprintf("%s-%d", slug, summary.Products+1)

		np := catalog.NewProduct{
			Name:                 item.Name,
			Slug:                 slug,
			Price:                item.Price,
			Dosage:               extractDosage(item.Name),
			StockQuantity:        20 + rand.Intn(200),
			RequiresPrescription: requiresPrescription(item.Name),
			IsActive:             true,
			Rating:               fmt.Sprintf("%.1f", 3.0+rand.Float64()*2.0),
			ReviewCount:          rand.Intn(500),
			CategoryID:           &category.ID,
			BrandID:              &brand.ID,
		}
		if item.Description != "" {
			np.Description = strptr(item.Description)
		}
		if _, err := store.CreateProduct(ctx, np); err != nil {
			return summary, fmt.Errorf("failed to create product %q: %w", item.Name, err)
		}
		summary.Products++
	}

	return summary, nil
}
