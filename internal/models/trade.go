package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one matched execution.
type Trade struct {
	ID            string
	BuyOrderID    string
	SellOrderID   string
	Price         decimal.Decimal
	Quantity      int64
	ExecutedAt    time.Time
	BuyerID       string
	SellerID      string
	AggressorSide Side
	InstrumentID  int
}

// NewTrade constructs a Trade with a freshly minted id of the form
// "TRD-<instrumentId>-<10 digit random>".
func NewTrade(buyOrderID, sellOrderID string, price decimal.Decimal, qty int64, buyerID, sellerID string, aggressor Side, instrumentID int) *Trade {
	return &Trade{
		ID:            fmt.Sprintf("TRD-%d-%s", instrumentID, randomDigits10()),
		BuyOrderID:    buyOrderID,
		SellOrderID:   sellOrderID,
		Price:         price,
		Quantity:      qty,
		ExecutedAt:    time.Now(),
		BuyerID:       buyerID,
		SellerID:      sellerID,
		AggressorSide: aggressor,
		InstrumentID:  instrumentID,
	}
}

// AggressorTraderID returns the trader id of whichever side crossed the
// spread to trigger this trade.
func (t *Trade) AggressorTraderID() string {
	if t.AggressorSide == Buy {
		return t.BuyerID
	}
	return t.SellerID
}
