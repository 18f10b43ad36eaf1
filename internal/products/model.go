// Package products manages the car-care catalog.
package products

import (
	"time"
)

// Category groups catalog items. The five main categories feed the loyalty
// classification; everything else falls under CategoryOther.
type Category string

const (
	CategoryDashboard Category = "dashboard_care"
	CategoryEngine    Category = "engine_care"
	CategoryExterior  Category = "exterior_care"
	CategoryTire      Category = "tire_care"
	CategoryInterior  Category = "interior_care"
	CategoryOther     Category = "other"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{
		CategoryDashboard,
		CategoryEngine,
		CategoryExterior,
		CategoryTire,
		CategoryInterior,
		CategoryOther,
	}
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a catalog item. PointsEarned is granted per unit sold;
// PointsRequired is the redemption cost per unit.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	Brand          string    `json:"brand,omitempty"`
	Unit           string    `json:"unit"`
	Price          float64   `json:"price"`
	PointsEarned   int64     `json:"points_earned"`
	PointsRequired int64     `json:"points_required"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
