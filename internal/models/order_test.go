package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderDefaults(t *testing.T) {
	o := NewOrder(Buy, Limit, decimal.NewFromFloat(100.5), 10, GTC, "42", 1)
	require.NotEmpty(t, o.ID)
	assert.Equal(t, New, o.Status)
	assert.Equal(t, int64(10), o.RemainingQty)
	assert.Equal(t, NASentinel, o.TradeID)
	assert.Equal(t, NASentinel, o.BuyerID)
	assert.Equal(t, NASentinel, o.SellerID)
	assert.True(t, o.IsLive())
	assert.False(t, o.IsTerminal())
}

func TestValidateRejectsBadInput(t *testing.T) {
	zero := NewOrder(Buy, Limit, decimal.NewFromFloat(10), 0, GTC, "1", 1)
	assert.ErrorIs(t, zero.Validate(), ErrInvalidQuantity)

	badPrice := NewOrder(Buy, Limit, decimal.Zero, 10, GTC, "1", 1)
	assert.ErrorIs(t, badPrice.Validate(), ErrInvalidPrice)

	noInstr := NewOrder(Buy, Limit, decimal.NewFromFloat(10), 10, GTC, "1", 0)
	assert.ErrorIs(t, noInstr.Validate(), ErrMissingInstrument)

	// A MARKET order carries no meaningful limit price and must still
	// validate cleanly.
	mkt := NewOrder(Buy, Market, decimal.Zero, 10, IOC, "1", 1)
	assert.NoError(t, mkt.Validate())
}

func TestFillTransitionsToPartialThenFilled(t *testing.T) {
	o := NewOrder(Sell, Limit, decimal.NewFromFloat(50), 30, GTC, "1", 1)
	o.Fill(10)
	assert.Equal(t, Partial, o.Status)
	assert.Equal(t, int64(20), o.RemainingQty)

	o.Fill(20)
	assert.Equal(t, Filled, o.Status)
	assert.Equal(t, int64(0), o.RemainingQty)
}

func TestFillWithTradeContextStampsIDs(t *testing.T) {
	o := NewOrder(Buy, Limit, decimal.NewFromFloat(50), 10, GTC, "1", 1)
	o.FillWithTradeContext(10, "TRD-1-1234567890", "1", "2")
	assert.Equal(t, Filled, o.Status)
	assert.Equal(t, "TRD-1-1234567890", o.TradeID)
	assert.Equal(t, "1", o.BuyerID)
	assert.Equal(t, "2", o.SellerID)
}

func TestCancelIsNoopOnTerminalOrder(t *testing.T) {
	o := NewOrder(Buy, Limit, decimal.NewFromFloat(50), 10, GTC, "1", 1)
	o.Fill(10) // now FILLED
	ok := o.Cancel(time.Now())
	assert.False(t, ok)
	assert.Equal(t, Filled, o.Status)
}

func TestCancelTransitionsLiveOrder(t *testing.T) {
	o := NewOrder(Buy, Limit, decimal.NewFromFloat(50), 10, GTC, "1", 1)
	now := time.Now()
	ok := o.Cancel(now)
	assert.True(t, ok)
	assert.Equal(t, Cancelled, o.Status)
	assert.Equal(t, now, o.CancelTimestamp)

	// A second cancel is a noop.
	assert.False(t, o.Cancel(time.Now()))
}

func TestExpireTransitionsLiveOrder(t *testing.T) {
	o := NewOrder(Sell, Limit, decimal.NewFromFloat(50), 10, GTC, "1", 1)
	assert.True(t, o.Expire(time.Now()))
	assert.Equal(t, Expired, o.Status)
	assert.False(t, o.Expire(time.Now()))
}

func TestDeviceFingerprintIsStableAndUppercase8Hex(t *testing.T) {
	h1 := DeviceFingerprint("2500")
	h2 := DeviceFingerprint("2500")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 8)
	assert.Equal(t, h1, toUpperASCII(h1))
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestMarketPhaseAtBoundaries(t *testing.T) {
	// 2026-08-06 is a Thursday; times given in UTC, IST = UTC+5:30.
	loc := time.UTC
	preOpenStart := time.Date(2026, 8, 6, 3, 30, 0, 0, loc)  // 09:00 IST
	openStart := time.Date(2026, 8, 6, 3, 45, 0, 0, loc)     // 09:15 IST
	midSession := time.Date(2026, 8, 6, 7, 0, 0, 0, loc)     // 12:30 IST
	closedAfter := time.Date(2026, 8, 6, 10, 0, 0, 0, loc)   // 15:30 IST
	beforePreOpen := time.Date(2026, 8, 6, 2, 0, 0, 0, loc)  // 07:30 IST

	assert.Equal(t, PreOpen, MarketPhaseAt(preOpenStart))
	assert.Equal(t, Open, MarketPhaseAt(openStart))
	assert.Equal(t, Open, MarketPhaseAt(midSession))
	assert.Equal(t, Closed, MarketPhaseAt(closedAfter))
	assert.Equal(t, Closed, MarketPhaseAt(beforePreOpen))
}
