package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxItemValue is the highest declarable item value.
const MaxItemValue = 100000

// Categories lists the fixed set of item categories.
var Categories = []string{
	"Tools", "Electronics", "Outdoor", "Home & Kitchen",
	"Books & Stationery", "Sports & Fitness", "Event Gear", "Miscellaneous",
}

var categoryMultipliers = map[string]float64{
	"Electronics":        1.5,
	"Tools":              1.2,
	"Event Gear":         1.3,
	"Sports & Fitness":   1.1,
	"Outdoor":            1.2,
	"Home & Kitchen":     1.0,
	"Books & Stationery": 0.8,
	"Miscellaneous":      1.0,
}

// ValidCategory reports whether the category is one of the fixed set.
func ValidCategory(category string) bool {
	_, ok := categoryMultipliers[category]
	return ok
}

// SuggestedTokens computes the suggested per-day token price for an item:
// one token per 1000 of declared value, scaled by category.
func SuggestedTokens(value int, category string) int {
	base := value / 1000
	if base < 1 {
		base = 1
	}
	multiplier, ok := categoryMultipliers[category]
	if !ok {
		multiplier = 1.0
	}
	return int(float64(base) * multiplier)
}

// Item represents a listed rental item
type Item struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description" db:"description"`
	Category          string    `json:"category" db:"category"`
	Value             int       `json:"value" db:"value"`
	TokenPerDay       int       `json:"token_per_day" db:"token_per_day"`
	OwnerID           uuid.UUID `json:"owner_id" db:"owner_id"`
	Images            []string  `json:"images" db:"images"`
	AvailabilityStart time.Time `json:"availability_start" db:"availability_start"`
	AvailabilityEnd   time.Time `json:"availability_end" db:"availability_end"`
	IsAvailable       bool      `json:"is_available" db:"is_available"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
