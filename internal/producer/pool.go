package producer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironlattice/matchcore/internal/catalog"
	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/models"
)

// WorkersPerInstrument is the default retail-producer fan-out per
// instrument (spec.md §4.4), used when NewPool is given a non-positive count.
const WorkersPerInstrument = 20

const (
	thinkTimeMinMS = 100
	thinkTimeMaxMS = 2000
	qtyMin         = 1
	qtyMax         = 100
	priceJitterLo  = 0.95
	priceJitterHi  = 1.05
)

// Pool runs workersPerInstrument independent retail producer goroutines
// against each of the supplied books, each drawing think-time, side, type,
// quantity, and price from uniform distributions anchored on the
// instrument's seed price (spec.md §4.4, grounded on original_source's
// OrderGenerator::run loop).
type Pool struct {
	books                map[int]*engine.OrderBook
	workersPerInstrument int
	sink                 Sink
	logger               *zap.Logger
	rng                  *lockedRand
}

// NewPool builds a producer pool over books, keyed by instrument id, with
// workersPerInstrument retail producers spawned per book. Callers that
// don't care can pass WorkersPerInstrument.
func NewPool(books map[int]*engine.OrderBook, workersPerInstrument int, sink Sink, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workersPerInstrument <= 0 {
		workersPerInstrument = WorkersPerInstrument
	}
	return &Pool{
		books:                books,
		workersPerInstrument: workersPerInstrument,
		sink:                 sink,
		logger:               logger.With(zap.String("component", "producer_pool")),
		rng:                  newLockedRand(time.Now().UnixNano()),
	}
}

// Run starts workersPerInstrument workers per instrument and blocks until
// ctx is cancelled, at which point every worker abandons its current
// think-time wait and exits. It returns the first worker error, if any (errgroup semantics,
// mirroring the teacher's supervised-goroutine lifecycle).
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for instrumentID, book := range p.books {
		instr, ok := catalog.Lookup(instrumentID)
		if !ok {
			continue
		}
		for w := 0; w < p.workersPerInstrument; w++ {
			traderID := sharedTraderIDs.Next()
			book := book
			instr := instr
			g.Go(func() error {
				p.runWorker(ctx, book, instr, traderID)
				return nil
			})
		}
	}
	return g.Wait()
}

func (p *Pool) runWorker(ctx context.Context, book *engine.OrderBook, instr catalog.Instrument, traderID string) {
	for {
		wait := time.Duration(thinkTimeMinMS+p.rng.Intn(thinkTimeMaxMS-thinkTimeMinMS+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		order := p.nextOrder(instr, traderID)
		if err := order.Validate(); err != nil {
			p.logger.Warn("producer generated invalid order, skipping", zap.Error(err))
			continue
		}
		submitAndLog(book, p.sink, order, p.logger)
	}
}

func (p *Pool) nextOrder(instr catalog.Instrument, traderID string) *models.Order {
	side := models.Buy
	if p.rng.Intn(2) == 1 {
		side = models.Sell
	}

	orderType := models.Limit
	tif := models.GTC
	if p.rng.Intn(2) == 1 {
		orderType = models.Market
		tif = models.IOC
	}

	qty := int64(qtyMin + p.rng.Intn(qtyMax-qtyMin+1))

	jitter := priceJitterLo + p.rng.Float64()*(priceJitterHi-priceJitterLo)
	price := instr.SeedPrice.Mul(decimal.NewFromFloat(jitter)).Round(2)

	if orderType == models.Market {
		// Producers never submit a type-less "market" order to the book;
		// they synthesize a limit that is guaranteed to cross whatever
		// currently rests on the opposite side (spec.md §4.1/§9).
		price = syntheticCrossingLimit(side, instr.SeedPrice)
	}

	return models.NewOrder(side, orderType, price, qty, tif, traderID, instr.ID)
}

// syntheticCrossingLimit returns a limit far enough through the seed price
// that it crosses any resting book on the opposite side, standing in for a
// true MARKET order (spec.md §9 Open Question decision).
func syntheticCrossingLimit(side models.Side, seed decimal.Decimal) decimal.Decimal {
	if side == models.Buy {
		return seed.Mul(decimal.NewFromFloat(10))
	}
	return seed.Mul(decimal.NewFromFloat(0.1))
}
