package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog view this service consumes. Category and brand
// names are denormalized onto the product because the content similarity
// feature text needs them.
type Product struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	CategoryID   uuid.UUID  `json:"category_id"`
	CategoryName string     `json:"category_name"`
	BrandID      *uuid.UUID `json:"brand_id,omitempty"`
	BrandName    string     `json:"brand_name,omitempty"`
	Price        float64    `json:"price"`
	IsAvailable  bool       `json:"is_available"`
	IsFeatured   bool       `json:"is_featured"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FeatureText concatenates the text fields used for TF-IDF vectorization.
func (p Product) FeatureText() string {
	text := p.Name + " " + p.Description + " " + p.CategoryName
	if p.BrandName != "" {
		text += " " + p.BrandName
	}
	return text
}

// ScoredProduct is the uniform (product, score) result element every
// strategy returns.
type ScoredProduct struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}
