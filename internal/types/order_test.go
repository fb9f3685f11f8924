package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestOrderItem_Describe(t *testing.T) {
	tests := []struct {
		name     string
		item     OrderItem
		expected string
	}{
		{
			name:     "name only",
			item:     OrderItem{Product: Product{ProductID: "P1", ProductName: "Tomatoes"}},
			expected: "Tomatoes",
		},
		{
			name:     "falls back to id",
			item:     OrderItem{Product: Product{ProductID: "P1"}, Quantity: intPtr(5)},
			expected: "5 x P1",
		},
		{
			name: "quantity unit and notes",
			item: OrderItem{
				Product:  Product{ProductID: "P2", ProductName: "Onions", UnitOfMeasure: "kg"},
				Quantity: intPtr(12),
				Notes:    "red",
			},
			expected: "12 kg x Onions (red)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.Describe())
		})
	}
}

func TestDescribeItems(t *testing.T) {
	items := []OrderItem{
		{Product: Product{ProductName: "A"}},
		{Product: Product{ProductName: "B"}, Quantity: intPtr(2)},
	}
	assert.Equal(t, "A, 2 x B", DescribeItems(items))
	assert.Equal(t, "", DescribeItems(nil))
}

func TestLanguage(t *testing.T) {
	assert.True(t, LanguageEnglish.Valid())
	assert.True(t, LanguageSpanish.Valid())
	assert.False(t, Language("fr").Valid())
	assert.Equal(t, "es-ES", LanguageSpanish.Locale())
	assert.Equal(t, "en-US", LanguageEnglish.Locale())
	assert.Equal(t, "en-US", Language("").Locale())
}
