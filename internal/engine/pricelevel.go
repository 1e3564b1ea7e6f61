package engine

import (
	"container/list"

	"github.com/shopspring/decimal"

	"github.com/ironlattice/matchcore/internal/models"
)

// PriceLevel is a FIFO queue of resting orders sharing one price,
// grounded on original_source's PriceLevel.hpp. The enclosing OrderBook's
// lock is the only synchronization boundary — PriceLevel itself holds no
// lock, per spec.md §4.2.
type PriceLevel struct {
	Price    decimal.Decimal
	orders   *list.List // Value: *models.Order
	totalQty int64
}

// NewPriceLevel creates an empty level at price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, orders: list.New()}
}

// Append adds order to the back of the FIFO and returns the list element
// backing it, so the caller's id index can hold a direct handle for O(1)
// removal (the "arena of orders + handles" shape described in spec.md §9).
func (pl *PriceLevel) Append(o *models.Order) *list.Element {
	e := pl.orders.PushBack(o)
	pl.totalQty += o.RemainingQty
	return e
}

// Head returns the oldest resting order, or nil if the level is empty.
func (pl *PriceLevel) Head() *models.Order {
	front := pl.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*models.Order)
}

// RemoveElement removes a known element in O(1), decrementing the cached
// total by the order's remaining quantity at the time of removal.
func (pl *PriceLevel) RemoveElement(e *list.Element) {
	o := e.Value.(*models.Order)
	pl.totalQty -= o.RemainingQty
	pl.orders.Remove(e)
}

// Remove scans the FIFO for orderID and removes it if found. The book
// holds a parallel id index to avoid using this on the hot path
// (spec.md §4.2); it exists for completeness and for tests.
func (pl *PriceLevel) Remove(orderID string) bool {
	for e := pl.orders.Front(); e != nil; e = e.Next() {
		if e.Value.(*models.Order).ID == orderID {
			pl.RemoveElement(e)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the level has no resting orders.
func (pl *PriceLevel) IsEmpty() bool { return pl.orders.Len() == 0 }

// Len returns the number of resting orders at this level.
func (pl *PriceLevel) Len() int { return pl.orders.Len() }

// TotalQuantity returns the cached aggregate remaining quantity, which must
// equal the sum of members' remaining quantities (spec.md §3 invariant).
func (pl *PriceLevel) TotalQuantity() int64 { return pl.totalQty }
