// Package engine implements the per-instrument limit-order-book matching
// core: price-time priority matching, cancellation, background expiry, and
// read-only depth snapshots. Grounded on original_source's OrderBook.hpp
// and PriceLevel.hpp, generalized to Go's idioms (a mutex instead of
// per-structure locks, a background goroutine instead of std::thread).
package engine

import (
	"container/list"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ironlattice/matchcore/internal/models"
)

// DefaultExpirySeconds is ORDER_EXPIRY_SECONDS from spec.md §4.1: orders
// resting in NEW or PARTIAL for at least this long are expired.
const DefaultExpirySeconds = 5

// Sink is the subset of EventSink the book needs: one row per affected
// resting order, one row per trade, and one row per cancelled/expired
// order. Declared here so engine does not import the eventsink package.
type Sink interface {
	LogOrder(o *models.Order)
	LogTrade(t *models.Trade)
}

type liveRef struct {
	side  models.Side
	level *PriceLevel
	elem  *list.Element
}

// OrderBook is the one-per-instrument matching engine.
type OrderBook struct {
	mu sync.Mutex

	instrumentID int

	buyLevels  map[string]*PriceLevel // key: price.String()
	buyPrices  []decimal.Decimal      // kept sorted descending
	sellLevels map[string]*PriceLevel
	sellPrices []decimal.Decimal // kept sorted ascending

	liveOrders map[string]*liveRef

	recentTrades []*models.Trade // bounded to last 100

	totalVolume atomic.Int64
	buyVolume   atomic.Int64
	sellVolume  atomic.Int64
	tradeCount  atomic.Int64

	sink          Sink
	expiryHorizon time.Duration
	logger        *zap.Logger

	stopCh  chan struct{}
	stopped atomic.Bool
	wg      sync.WaitGroup
}

// NewOrderBook creates a book for instrumentID. expirySeconds configures
// how long a resting NEW/PARTIAL order survives before the expiry loop
// reaps it (spec.md §4.1); callers that don't care can pass
// DefaultExpirySeconds. sink may be nil (no event-log shipping, useful in
// tests); logger may be nil (falls back to a no-op logger).
func NewOrderBook(instrumentID int, expirySeconds int, sink Sink, logger *zap.Logger) *OrderBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expirySeconds <= 0 {
		expirySeconds = DefaultExpirySeconds
	}
	return &OrderBook{
		instrumentID:  instrumentID,
		buyLevels:     make(map[string]*PriceLevel),
		sellLevels:    make(map[string]*PriceLevel),
		liveOrders:    make(map[string]*liveRef),
		sink:          sink,
		expiryHorizon: time.Duration(expirySeconds) * time.Second,
		logger:        logger.With(zap.Int("instrument_id", instrumentID)),
		stopCh:        make(chan struct{}),
	}
}

// execStep records one match within a single Submit call, so rows can be
// emitted in execution order after the book lock is released.
type execStep struct {
	resting *models.Order
	trade   *models.Trade
}

// Submit runs the price-time priority matching algorithm for order
// (spec.md §4.1). It mutates order and any crossed resting orders, then —
// after releasing the book lock — emits one event row per affected resting
// order and one TRADE_MATCH row per execution, in execution order. The
// caller is responsible for logging order's own NEW/post-submit event rows
// (spec.md §4.1 step 6).
func (b *OrderBook) Submit(order *models.Order) {
	b.mu.Lock()
	var steps []execStep

	own, opp := b.sideMaps(order.Side)
	for order.RemainingQty > 0 && b.sideHasLevels(opp) {
		bestPrice, ok := b.bestOppositePrice(order.Side)
		if !ok {
			break
		}
		if !crosses(order.Side, order.Type, order.LimitPrice, bestPrice) {
			break
		}
		level := opp[bestPrice.String()]

		for !level.IsEmpty() && order.RemainingQty > 0 {
			restingElem := level.orders.Front()
			resting := restingElem.Value.(*models.Order)

			matchQty := min64(order.RemainingQty, resting.RemainingQty)
			buyOrderID, sellOrderID, buyerID, sellerID := sidedIDs(order, resting)

			trade := models.NewTrade(buyOrderID, sellOrderID, bestPrice, matchQty, buyerID, sellerID, order.Side, b.instrumentID)

			order.FillWithTradeContext(matchQty, trade.ID, buyerID, sellerID)
			resting.FillWithTradeContext(matchQty, trade.ID, buyerID, sellerID)
			level.totalQty -= matchQty

			if resting.RemainingQty == 0 {
				level.RemoveElement(restingElem)
				delete(b.liveOrders, resting.ID)
			}

			b.recordTrade(trade)
			steps = append(steps, execStep{resting: resting, trade: trade})
		}

		if level.IsEmpty() {
			delete(opp, bestPrice.String())
			b.removeOppositePrice(order.Side, bestPrice)
		}
	}

	if order.RemainingQty > 0 && order.TimeInForce != models.IOC {
		b.restOrder(order, own)
	}
	b.mu.Unlock()

	for _, s := range steps {
		if b.sink != nil {
			b.sink.LogOrder(s.resting)
			b.sink.LogTrade(s.trade)
		}
	}
}

// sideMaps returns (own, opposite) level maps for side.
func (b *OrderBook) sideMaps(side models.Side) (own, opp map[string]*PriceLevel) {
	if side == models.Buy {
		return b.buyLevels, b.sellLevels
	}
	return b.sellLevels, b.buyLevels
}

func (b *OrderBook) sideHasLevels(side map[string]*PriceLevel) bool { return len(side) > 0 }

// bestOppositePrice returns the best crossing price on the opposite side
// of side: for an incoming BUY that is the lowest ask; for an incoming
// SELL that is the highest bid. Both price slices are stored in the order
// natural to that lookup (asks ascending, bids descending) per spec.md
// §9's resolution of the begin()/rbegin() ambiguity.
func (b *OrderBook) bestOppositePrice(side models.Side) (decimal.Decimal, bool) {
	if side == models.Buy {
		if len(b.sellPrices) == 0 {
			return decimal.Zero, false
		}
		return b.sellPrices[0], true
	}
	if len(b.buyPrices) == 0 {
		return decimal.Zero, false
	}
	return b.buyPrices[0], true
}

func (b *OrderBook) removeOppositePrice(side models.Side, price decimal.Decimal) {
	if side == models.Buy {
		b.sellPrices = removeSorted(b.sellPrices, price)
		return
	}
	b.buyPrices = removeSorted(b.buyPrices, price)
}

// crosses reports whether the incoming order's limit crosses bestOpp.
// MARKET orders from producers carry a synthesized limit that always
// crosses (spec.md §4.1 "effectively infinite limit" note); this function
// trusts the caller-supplied limit rather than special-casing Type.
func crosses(side models.Side, _ models.Type, limit, bestOpp decimal.Decimal) bool {
	if side == models.Buy {
		return bestOpp.LessThanOrEqual(limit)
	}
	return bestOpp.GreaterThanOrEqual(limit)
}

func sidedIDs(incoming, resting *models.Order) (buyOrderID, sellOrderID, buyerID, sellerID string) {
	if incoming.Side == models.Buy {
		return incoming.ID, resting.ID, incoming.TraderID, resting.TraderID
	}
	return resting.ID, incoming.ID, resting.TraderID, incoming.TraderID
}

func (b *OrderBook) recordTrade(t *models.Trade) {
	b.recentTrades = append(b.recentTrades, t)
	if len(b.recentTrades) > 100 {
		b.recentTrades = b.recentTrades[len(b.recentTrades)-100:]
	}
	b.totalVolume.Add(t.Quantity)
	b.tradeCount.Add(1)
	if t.AggressorSide == models.Buy {
		b.buyVolume.Add(t.Quantity)
	} else {
		b.sellVolume.Add(t.Quantity)
	}
}

func (b *OrderBook) restOrder(order *models.Order, side map[string]*PriceLevel) {
	key := order.LimitPrice.String()
	level, ok := side[key]
	if !ok {
		level = NewPriceLevel(order.LimitPrice)
		side[key] = level
		b.insertPrice(order.Side, order.LimitPrice)
	}
	elem := level.Append(order)
	b.liveOrders[order.ID] = &liveRef{side: order.Side, level: level, elem: elem}
}

func (b *OrderBook) insertPrice(side models.Side, price decimal.Decimal) {
	if side == models.Buy {
		b.buyPrices = insertSortedDesc(b.buyPrices, price)
		return
	}
	b.sellPrices = insertSortedAsc(b.sellPrices, price)
}

// Cancel locates order by id and, if it is live, removes it from its level
// and marks it CANCELLED. A cancel on an unknown or already-terminal order
// is a silent noop (spec.md §4.1, §7). On success it returns the order so
// the caller can inspect it; the book itself emits the CANCELLED row,
// since unlike Submit there is no natural external caller for the
// symmetric expiry path and keeping both book-driven transitions
// (cancel, expire) self-logging avoids a second logging convention.
func (b *OrderBook) Cancel(orderID string) *models.Order {
	b.mu.Lock()
	ref, ok := b.liveOrders[orderID]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	order := ref.elem.Value.(*models.Order)
	if order.IsTerminal() {
		b.mu.Unlock()
		return nil
	}
	b.removeLive(orderID, ref)
	order.Cancel(time.Now())
	b.mu.Unlock()

	if b.sink != nil {
		b.sink.LogOrder(order)
	}
	return order
}

func (b *OrderBook) removeLive(orderID string, ref *liveRef) {
	ref.level.RemoveElement(ref.elem)
	if ref.level.IsEmpty() {
		if ref.side == models.Buy {
			delete(b.buyLevels, ref.level.Price.String())
			b.buyPrices = removeSorted(b.buyPrices, ref.level.Price)
		} else {
			delete(b.sellLevels, ref.level.Price.String())
			b.sellPrices = removeSorted(b.sellPrices, ref.level.Price)
		}
	}
	delete(b.liveOrders, orderID)
}

// RecentTrades returns a copy of up to the last 100 executed trades.
func (b *OrderBook) RecentTrades() []*models.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Trade, len(b.recentTrades))
	copy(out, b.recentTrades)
	return out
}

// BestBid returns the highest resting buy price, or zero if the buy side
// is empty.
func (b *OrderBook) BestBid() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buyPrices) == 0 {
		return decimal.Zero
	}
	return b.buyPrices[0]
}

// BestAsk returns the lowest resting sell price, or zero if the sell side
// is empty.
func (b *OrderBook) BestAsk() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sellPrices) == 0 {
		return decimal.Zero
	}
	return b.sellPrices[0]
}

// TotalVolume, BuyVolume, SellVolume and TradeCount are lock-free
// observability counters (spec.md §9): producers only increment them, so
// observer reads never block on the structural mutex.
func (b *OrderBook) TotalVolume() int64 { return b.totalVolume.Load() }
func (b *OrderBook) BuyVolume() int64   { return b.buyVolume.Load() }
func (b *OrderBook) SellVolume() int64  { return b.sellVolume.Load() }
func (b *OrderBook) TradeCount() int64  { return b.tradeCount.Load() }

// LevelQuote is one (price, aggregate quantity) pair in a depth snapshot.
type LevelQuote struct {
	Price decimal.Decimal
	Qty   int64
}

// DepthSnapshot returns up to topN levels per side, best price first.
func (b *OrderBook) DepthSnapshot(topN int) (bids, asks []LevelQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bids = b.snapshotSide(b.buyPrices, b.buyLevels, topN)
	asks = b.snapshotSide(b.sellPrices, b.sellLevels, topN)
	return bids, asks
}

func (b *OrderBook) snapshotSide(prices []decimal.Decimal, levels map[string]*PriceLevel, topN int) []LevelQuote {
	n := topN
	if n > len(prices) {
		n = len(prices)
	}
	out := make([]LevelQuote, 0, n)
	for i := 0; i < n; i++ {
		p := prices[i]
		lvl := levels[p.String()]
		out = append(out, LevelQuote{Price: p, Qty: lvl.TotalQuantity()})
	}
	return out
}

// StartExpiryLoop launches the background worker that wakes every second
// and expires resting orders older than the expiry horizon
// (spec.md §4.1). Stop joins it.
func (b *OrderBook) StartExpiryLoop() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.expirePending()
			case <-b.stopCh:
				return
			}
		}
	}()
}

func (b *OrderBook) expirePending() {
	now := time.Now()
	var toExpire []*models.Order

	b.mu.Lock()
	for _, ref := range b.liveOrders {
		order := ref.elem.Value.(*models.Order)
		if !order.IsLive() {
			continue
		}
		if now.Sub(order.SubmitTimestamp) >= b.expiryHorizon {
			toExpire = append(toExpire, order)
		}
	}
	for _, order := range toExpire {
		ref := b.liveOrders[order.ID]
		b.removeLive(order.ID, ref)
		order.Expire(now)
	}
	b.mu.Unlock()

	if b.sink != nil {
		for _, order := range toExpire {
			b.sink.LogOrder(order)
		}
	}
}

// Stop signals the expiry loop to exit and waits for it to finish.
func (b *OrderBook) Stop() {
	if b.stopped.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	b.wg.Wait()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func insertSortedDesc(s []decimal.Decimal, v decimal.Decimal) []decimal.Decimal {
	i := sort.Search(len(s), func(i int) bool { return s[i].LessThanOrEqual(v) })
	s = append(s, decimal.Zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertSortedAsc(s []decimal.Decimal, v decimal.Decimal) []decimal.Decimal {
	i := sort.Search(len(s), func(i int) bool { return s[i].GreaterThanOrEqual(v) })
	s = append(s, decimal.Zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []decimal.Decimal, v decimal.Decimal) []decimal.Decimal {
	for i, p := range s {
		if p.Equal(v) {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
