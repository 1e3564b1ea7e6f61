package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlattice/matchcore/internal/models"
)

// recordingSink captures every row the book emits, so tests can assert on
// exact event sequencing without a real eventsink.
type recordingSink struct {
	mu     sync.Mutex
	orders []*models.Order
	trades []*models.Trade
}

func (s *recordingSink) LogOrder(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
}

func (s *recordingSink) LogTrade(t *models.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
}

func price(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestSubmitExactQuantityMatchFillsBothSides(t *testing.T) {
	sink := &recordingSink{}
	book := NewOrderBook(1, DefaultExpirySeconds, sink, nil)

	sell := models.NewOrder(models.Sell, models.Limit, price(100), 10, models.GTC, "seller", 1)
	book.Submit(sell)

	buy := models.NewOrder(models.Buy, models.Limit, price(100), 10, models.GTC, "buyer", 1)
	book.Submit(buy)

	assert.Equal(t, models.Filled, sell.Status)
	assert.Equal(t, models.Filled, buy.Status)
	assert.Equal(t, int64(0), sell.RemainingQty)
	assert.Equal(t, int64(0), buy.RemainingQty)

	require.Len(t, sink.trades, 1)
	trade := sink.trades[0]
	assert.Equal(t, int64(10), trade.Quantity)
	assert.True(t, trade.Price.Equal(price(100)))
	assert.Equal(t, "buyer", trade.BuyerID)
	assert.Equal(t, "seller", trade.SellerID)

	// The book only logs the resting order (sell); buy's rows are the
	// caller's responsibility.
	require.Len(t, sink.orders, 1)
	assert.Equal(t, sell.ID, sink.orders[0].ID)
}

func TestSubmitPartialFillLeavesRemainderResting(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)

	sell := models.NewOrder(models.Sell, models.Limit, price(100), 10, models.GTC, "seller", 1)
	book.Submit(sell)

	buy := models.NewOrder(models.Buy, models.Limit, price(100), 4, models.GTC, "buyer", 1)
	book.Submit(buy)

	assert.Equal(t, models.Partial, sell.Status)
	assert.Equal(t, int64(6), sell.RemainingQty)
	assert.Equal(t, models.Filled, buy.Status)

	assert.True(t, book.BestAsk().Equal(price(100)))
	assert.True(t, book.BestBid().IsZero())
}

func TestSubmitRespectsPriceThenTimePriority(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)

	cheaper := models.NewOrder(models.Sell, models.Limit, price(99), 5, models.GTC, "s1", 1)
	pricier := models.NewOrder(models.Sell, models.Limit, price(100), 5, models.GTC, "s2", 1)
	book.Submit(pricier)
	book.Submit(cheaper)

	buy := models.NewOrder(models.Buy, models.Limit, price(100), 5, models.GTC, "buyer", 1)
	book.Submit(buy)

	// The cheaper resting ask must fill first despite arriving second.
	assert.Equal(t, models.Filled, cheaper.Status)
	assert.Equal(t, models.New, pricier.Status)
}

func TestSubmitTimePriorityAtSamePrice(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)

	first := models.NewOrder(models.Sell, models.Limit, price(100), 5, models.GTC, "s1", 1)
	second := models.NewOrder(models.Sell, models.Limit, price(100), 5, models.GTC, "s2", 1)
	book.Submit(first)
	book.Submit(second)

	buy := models.NewOrder(models.Buy, models.Limit, price(100), 5, models.GTC, "buyer", 1)
	book.Submit(buy)

	assert.Equal(t, models.Filled, first.Status)
	assert.Equal(t, models.New, second.Status)
}

func TestSubmitIOCThatCannotMatchIsDiscardedNotRested(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)

	ioc := models.NewOrder(models.Buy, models.Limit, price(50), 10, models.IOC, "buyer", 1)
	book.Submit(ioc)

	assert.Equal(t, models.New, ioc.Status)
	assert.True(t, book.BestBid().IsZero())
}

func TestCancelRemovesLiveOrderAndIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	book := NewOrderBook(1, DefaultExpirySeconds, sink, nil)

	order := models.NewOrder(models.Buy, models.Limit, price(100), 10, models.GTC, "1", 1)
	book.Submit(order)
	assert.True(t, book.BestBid().Equal(price(100)))

	cancelled := book.Cancel(order.ID)
	require.NotNil(t, cancelled)
	assert.Equal(t, models.Cancelled, cancelled.Status)
	assert.True(t, book.BestBid().IsZero())

	require.Len(t, sink.orders, 1)
	assert.Equal(t, models.Cancelled, sink.orders[0].Status)

	// Cancelling again is a silent noop.
	assert.Nil(t, book.Cancel(order.ID))
	assert.Nil(t, book.Cancel("never-existed"))
}

func TestExpiryLoopExpiresStaleOrders(t *testing.T) {
	sink := &recordingSink{}
	book := NewOrderBook(1, DefaultExpirySeconds, sink, nil)
	book.expiryHorizon = 10 * time.Millisecond
	book.StartExpiryLoop()
	defer book.Stop()

	order := models.NewOrder(models.Buy, models.Limit, price(100), 10, models.GTC, "1", 1)
	book.Submit(order)

	require.Eventually(t, func() bool {
		return order.Status == models.Expired
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, book.BestBid().IsZero())
}

func TestDepthSnapshotOrdersBestFirst(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)
	book.Submit(models.NewOrder(models.Buy, models.Limit, price(99), 5, models.GTC, "b1", 1))
	book.Submit(models.NewOrder(models.Buy, models.Limit, price(101), 5, models.GTC, "b2", 1))
	book.Submit(models.NewOrder(models.Sell, models.Limit, price(110), 5, models.GTC, "s1", 1))
	book.Submit(models.NewOrder(models.Sell, models.Limit, price(105), 5, models.GTC, "s2", 1))

	bids, asks := book.DepthSnapshot(5)
	require.Len(t, bids, 2)
	require.Len(t, asks, 2)
	assert.True(t, bids[0].Price.Equal(price(101)))
	assert.True(t, asks[0].Price.Equal(price(105)))
}

func TestVolumeCountersTrackTrades(t *testing.T) {
	book := NewOrderBook(1, DefaultExpirySeconds, nil, nil)
	book.Submit(models.NewOrder(models.Sell, models.Limit, price(100), 10, models.GTC, "s", 1))
	book.Submit(models.NewOrder(models.Buy, models.Limit, price(100), 10, models.GTC, "b", 1))

	assert.Equal(t, int64(1), book.TradeCount())
	assert.Equal(t, int64(10), book.TotalVolume())
	assert.Equal(t, int64(10), book.BuyVolume())
	assert.Equal(t, int64(0), book.SellVolume())
}
