package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaqqye/exit_slip_backend/internal/models"
)

func TestAggregate(t *testing.T) {
	t.Run("sums repeated names", func(t *testing.T) {
		got := Aggregate([]models.Item{
			{Name: "Books", Quantity: 2},
			{Name: "Books", Quantity: 1},
		})
		assert.Equal(t, []models.Item{{Name: "Books", Quantity: 3}}, got)
	})

	t.Run("keeps first occurrence order", func(t *testing.T) {
		got := Aggregate([]models.Item{
			{Name: "Shoes", Quantity: 1},
			{Name: "Books", Quantity: 2},
			{Name: "Shoes", Quantity: 3},
			{Name: "Clothing", Quantity: 4},
		})
		assert.Equal(t, []models.Item{
			{Name: "Shoes", Quantity: 4},
			{Name: "Books", Quantity: 2},
			{Name: "Clothing", Quantity: 4},
		}, got)
	})

	t.Run("sums non-positive quantities as given", func(t *testing.T) {
		got := Aggregate([]models.Item{
			{Name: "Electronics", Quantity: 2},
			{Name: "Electronics", Quantity: -1},
			{Name: "Bed Sheets", Quantity: 0},
		})
		assert.Equal(t, []models.Item{
			{Name: "Electronics", Quantity: 1},
			{Name: "Bed Sheets", Quantity: 0},
		}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil))
	})

	t.Run("does not modify input", func(t *testing.T) {
		in := []models.Item{{Name: "Books", Quantity: 1}, {Name: "Books", Quantity: 1}}
		Aggregate(in)
		assert.Equal(t, 1, in[0].Quantity)
	})
}
