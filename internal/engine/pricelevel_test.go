package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ironlattice/matchcore/internal/models"
)

func TestPriceLevelFIFOOrder(t *testing.T) {
	pl := NewPriceLevel(decimal.NewFromFloat(100))
	a := models.NewOrder(models.Buy, models.Limit, decimal.NewFromFloat(100), 5, models.GTC, "1", 1)
	b := models.NewOrder(models.Buy, models.Limit, decimal.NewFromFloat(100), 5, models.GTC, "2", 1)

	pl.Append(a)
	pl.Append(b)

	assert.Equal(t, a.ID, pl.Head().ID)
	assert.Equal(t, int64(10), pl.TotalQuantity())
	assert.Equal(t, 2, pl.Len())
}

func TestPriceLevelRemoveElementUpdatesTotal(t *testing.T) {
	pl := NewPriceLevel(decimal.NewFromFloat(100))
	a := models.NewOrder(models.Buy, models.Limit, decimal.NewFromFloat(100), 5, models.GTC, "1", 1)
	elem := pl.Append(a)

	pl.RemoveElement(elem)
	assert.True(t, pl.IsEmpty())
	assert.Equal(t, int64(0), pl.TotalQuantity())
}

func TestPriceLevelRemoveByID(t *testing.T) {
	pl := NewPriceLevel(decimal.NewFromFloat(100))
	a := models.NewOrder(models.Buy, models.Limit, decimal.NewFromFloat(100), 5, models.GTC, "1", 1)
	pl.Append(a)

	assert.True(t, pl.Remove(a.ID))
	assert.False(t, pl.Remove("unknown-id"))
}
