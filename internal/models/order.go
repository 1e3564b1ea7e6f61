// Package models holds the Order and Trade record types shared by the
// matching engine, the producers, and the event sink.
package models

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or the aggressor of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type distinguishes limit from market orders. The engine does not branch
// on Type: it matches every order against its LimitPrice, and producers give
// MARKET orders a synthesized crossing limit before submission
// (spec.md §4.1 / §9).
type Type string

const (
	Limit  Type = "LIMIT"
	Market Type = "MARKET"
)

// TimeInForce qualifies how long an order may rest. Only GTC and IOC
// participate in the core matching algorithm; FOK and DAY are accepted
// values but are not exercised by any component in this core.
type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
	DAY TimeInForce = "DAY"
)

// Status is a node in the order lifecycle state machine (spec.md §4.1).
type Status string

const (
	New       Status = "NEW"
	Partial   Status = "PARTIAL"
	Filled    Status = "FILLED"
	Cancelled Status = "CANCELLED"
	Expired   Status = "EXPIRED"
)

// MarketPhase is the wall-clock session classification used on every
// event-sink record.
type MarketPhase string

const (
	PreOpen MarketPhase = "PRE_OPEN"
	Open    MarketPhase = "OPEN"
	Closed  MarketPhase = "CLOSED"
)

// NASentinel is the placeholder value for trade-context fields before an
// order has participated in any match.
const NASentinel = "NA"

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("invalid price for limit order")
	ErrMissingInstrument = errors.New("missing instrument identifier")
)

// Order is the mutable lifecycle state of one order, identified by a
// stable id of the form "<instrumentId>-<10 digit random>-<traderId>".
//
// All mutation happens under the owning OrderBook's lock; Order carries no
// lock of its own, mirroring original_source's PriceLevel/OrderBook split
// where the book, not the order, is the synchronization boundary.
type Order struct {
	ID              string
	Side            Side
	Type            Type
	LimitPrice      decimal.Decimal
	OriginalQty     int64
	RemainingQty    int64
	TimeInForce     TimeInForce
	TraderID        string
	InstrumentID    int
	Status          Status
	SubmitTimestamp time.Time
	CancelTimestamp time.Time
	ShortSell       bool

	TradeID  string
	BuyerID  string
	SellerID string
}

var idRand = struct {
	mu  sync.Mutex
	src *rand.Rand
}{src: rand.New(rand.NewSource(time.Now().UnixNano()))}

func randomDigits10() string {
	idRand.mu.Lock()
	defer idRand.mu.Unlock()
	n := idRand.src.Int63n(9_000_000_000) + 1_000_000_000
	return strconv.FormatInt(n, 10)
}

// NewOrder constructs an order in the NEW state with a freshly minted id.
func NewOrder(side Side, typ Type, price decimal.Decimal, qty int64, tif TimeInForce, traderID string, instrumentID int) *Order {
	return &Order{
		ID:              fmt.Sprintf("%d-%s-%s", instrumentID, randomDigits10(), traderID),
		Side:            side,
		Type:            typ,
		LimitPrice:      price,
		OriginalQty:     qty,
		RemainingQty:    qty,
		TimeInForce:     tif,
		TraderID:        traderID,
		InstrumentID:    instrumentID,
		Status:          New,
		SubmitTimestamp: time.Now(),
		TradeID:         NASentinel,
		BuyerID:         NASentinel,
		SellerID:        NASentinel,
	}
}

// Validate rejects malformed boundary input (spec.md §7): zero/negative
// quantity, non-positive price on a LIMIT order, or a missing instrument.
func (o *Order) Validate() error {
	if o.OriginalQty <= 0 {
		return ErrInvalidQuantity
	}
	if o.Type == Limit && !o.LimitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	if o.InstrumentID == 0 {
		return ErrMissingInstrument
	}
	return nil
}

// IsLive reports whether the order may currently reside in a PriceLevel.
func (o *Order) IsLive() bool { return o.Status == New || o.Status == Partial }

// IsTerminal reports whether the order has reached an absorbing state.
func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled || o.Status == Expired
}

// Fill decrements remaining quantity by qty and advances status to PARTIAL
// or FILLED. qty must not exceed RemainingQty.
func (o *Order) Fill(qty int64) {
	o.RemainingQty -= qty
	if o.RemainingQty <= 0 {
		o.RemainingQty = 0
		o.Status = Filled
	} else {
		o.Status = Partial
	}
}

// FillWithTradeContext fills the order and stamps the executing trade's id
// and counterparty ids onto it, so every subsequent event row carries real
// ids instead of the "NA" sentinel (spec.md §4.1 step 3,
// grounded on original_source's OrderBook::executeTrade comment on
// fillWithTradeContext).
func (o *Order) FillWithTradeContext(qty int64, tradeID, buyerID, sellerID string) {
	o.Fill(qty)
	o.TradeID = tradeID
	o.BuyerID = buyerID
	o.SellerID = sellerID
}

// Cancel transitions a live order to CANCELLED. It is a silent noop on a
// terminal order, returning false.
func (o *Order) Cancel(now time.Time) bool {
	if o.IsTerminal() {
		return false
	}
	o.Status = Cancelled
	o.CancelTimestamp = now
	return true
}

// Expire transitions a live order to EXPIRED. It is a silent noop on a
// terminal order, returning false.
func (o *Order) Expire(now time.Time) bool {
	if o.IsTerminal() {
		return false
	}
	o.Status = Expired
	return true
}

// DeviceFingerprint is the standard FNV-1a 32-bit hash of the trader id,
// rendered as uppercase 8-hex.
func DeviceFingerprint(traderID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(traderID))
	return fmt.Sprintf("%08X", h.Sum32())
}

// istOffset is UTC+5h30m, the session clock used by the market-phase
// derivation below.
var istOffset = 5*time.Hour + 30*time.Minute

// MarketPhaseAt classifies t (any timezone) into PRE_OPEN / OPEN / CLOSED
// using the fixed UTC+5h30m session schedule.
func MarketPhaseAt(t time.Time) MarketPhase {
	ist := t.UTC().Add(istOffset)
	minutesOfDay := ist.Hour()*60 + ist.Minute()
	switch {
	case minutesOfDay >= 9*60 && minutesOfDay < 9*60+15:
		return PreOpen
	case minutesOfDay >= 9*60+15 && minutesOfDay < 15*60+30:
		return Open
	default:
		return Closed
	}
}
