package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestedTokens(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		category string
		want     int
	}{
		{"electronics scale up", 10000, "Electronics", 15},
		{"books scale down", 10000, "Books & Stationery", 8},
		{"neutral category", 10000, "Home & Kitchen", 10},
		{"low value floors at one base token", 500, "Home & Kitchen", 1},
		{"floor then multiplier truncates", 500, "Electronics", 1},
		{"unknown category uses neutral multiplier", 3000, "Vehicles", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestedTokens(tt.value, tt.category))
		})
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, ValidCategory(c), c)
	}
	assert.False(t, ValidCategory("Vehicles"))
	assert.False(t, ValidCategory(""))
}
