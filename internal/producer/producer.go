// Package producer simulates order flow against the matching core:
// ordinary retail producers, a wash-trading producer, and a ring-trading
// coordinator. Grounded on original_source's OrderGenerator.hpp for the
// retail distributions and on spec.md §4.4/§4.5 for the manipulation
// patterns, which original_source does not implement.
package producer

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/models"
)

// maxTraderID is the process-wide cap on minted trader ids (spec.md §7).
const maxTraderID = 10_000

// traderIDAllocator hands out sequential trader ids under a shared counter,
// the Go counterpart of original_source's static trader-id generator.
type traderIDAllocator struct {
	next atomic.Int64
}

var sharedTraderIDs = &traderIDAllocator{}

// Next returns the next trader id as a string. It panics if the process-wide
// budget of maxTraderID ids is exhausted — original_source treats this as a
// construction-time fatal condition, never a runtime one.
func (a *traderIDAllocator) Next() string {
	n := a.next.Add(1)
	if n > maxTraderID {
		panic("producer: trader id budget exhausted")
	}
	return strconv.FormatInt(n, 10)
}

// lockedRand wraps a *rand.Rand with a mutex so many producer goroutines
// can share one source without data races, mirroring the single mutex
// original_source's OrderGenerator used around its RNG.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Sink is the logging surface a producer needs for the order rows it owns
// (spec.md §4.1 step 6: the caller logs the incoming order's own NEW and
// final-status rows; the book logs only affected resting orders and trades).
type Sink interface {
	LogOrder(o *models.Order)
}

// submitAndLog logs order's NEW row, submits it to book, and — if its
// status changed as a direct result of matching inside Submit — logs its
// final-status row. This is the one call path every producer in this
// package uses, so the caller-owned half of the logging convention lives
// in exactly one place.
func submitAndLog(book *engine.OrderBook, sink Sink, order *models.Order, logger *zap.Logger) {
	if sink != nil {
		sink.LogOrder(order)
	}
	statusBefore := order.Status
	book.Submit(order)
	if sink != nil && order.Status != statusBefore {
		sink.LogOrder(order)
	}
	if logger != nil {
		logger.Debug("order submitted",
			zap.String("order_id", order.ID),
			zap.String("side", string(order.Side)),
			zap.String("status", string(order.Status)),
		)
	}
}
