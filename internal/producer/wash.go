package producer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ironlattice/matchcore/internal/catalog"
	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/models"
)

// WashTraderID is the fixed identity both legs of every wash trade use.
// A single trader simultaneously buying and selling against itself has no
// counterparty-diversity, which is exactly the manipulation signature
// spec.md §4.5 asks this producer to simulate.
const WashTraderID = "2500"

const (
	washIterations  = 5
	washQuantity    = 10_000
	washLegSleep    = 300 * time.Millisecond
	washBurstPause  = 4000 * time.Millisecond
	washPriceJitter = 0.001
)

// WashProducer repeatedly submits a matched BUY then SELL at an identical
// price and quantity under one trader id, against one instrument's book.
// Grounded on spec.md §4.5; original_source has no counterpart (confirmed
// absent from its OrderGenerator/Trader sources), so this component is a
// pure spec supplement authored in the retail producer's idiom.
type WashProducer struct {
	book   *engine.OrderBook
	instr  catalog.Instrument
	sink   Sink
	logger *zap.Logger
	rng    *lockedRand
}

// NewWashProducer builds a wash-trading producer targeting book.
func NewWashProducer(book *engine.OrderBook, instr catalog.Instrument, sink Sink, logger *zap.Logger) *WashProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WashProducer{
		book:   book,
		instr:  instr,
		sink:   sink,
		logger: logger.With(zap.String("component", "wash_producer"), zap.String("trader_id", WashTraderID)),
		rng:    newLockedRand(time.Now().UnixNano() ^ 0x5A5A),
	}
}

// Run repeats, until ctx is cancelled: a burst of washIterations BUY/SELL
// pairs (each leg separated by washLegSleep), followed by one
// washBurstPause before the next burst starts (spec.md §4.5).
func (w *WashProducer) Run(ctx context.Context) error {
	for {
		for i := 0; i < washIterations; i++ {
			jitter := 1 + (w.rng.Float64()*2-1)*washPriceJitter
			washPrice := w.instr.SeedPrice.Mul(decimal.NewFromFloat(jitter)).Round(2)

			buy := models.NewOrder(models.Buy, models.Limit, washPrice, washQuantity, models.GTC, WashTraderID, w.instr.ID)
			submitAndLog(w.book, w.sink, buy, w.logger)

			if !sleepOrDone(ctx, washLegSleep) {
				return nil
			}

			sell := models.NewOrder(models.Sell, models.Limit, washPrice, washQuantity, models.GTC, WashTraderID, w.instr.ID)
			submitAndLog(w.book, w.sink, sell, w.logger)

			w.logger.Info("wash pair complete", zap.Int("iteration", i+1), zap.String("price", washPrice.String()))

			if !sleepOrDone(ctx, washLegSleep) {
				return nil
			}
		}

		w.logger.Info("wash burst complete", zap.Int("pairs", washIterations))
		if !sleepOrDone(ctx, washBurstPause) {
			return nil
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
