package producer

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironlattice/matchcore/internal/catalog"
	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/models"
)

// RingParticipants are the four fixed trader ids forming the directed
// manipulation cycle 2500->2600->2700->2800->2500 (spec.md §4.5). Ring
// trades are restricted to instrument id 1 by spec.md §4.5.
var RingParticipants = [4]string{"2500", "2600", "2700", "2800"}

const (
	ringQuantity  = 5_000
	ringStepSleep = 500 * time.Millisecond
	ringFullPause = 3000 * time.Millisecond
)

// ringStep is one row of the fixed 8-step cycle table (spec.md §4.5): a
// single participant submits a single order. The four SELL steps (0, 2, 4,
// 6) each anchor a fresh ringPrice just before submitting; the BUY step
// that immediately follows crosses at that same price, producing one trade
// per SELL/BUY pair and four trades per full rotation.
type ringStep struct {
	participant int
	side        models.Side
	setsPrice   bool
}

var ringTable = [8]ringStep{
	{participant: 0, side: models.Sell, setsPrice: true},
	{participant: 1, side: models.Buy, setsPrice: false},
	{participant: 1, side: models.Sell, setsPrice: true},
	{participant: 2, side: models.Buy, setsPrice: false},
	{participant: 2, side: models.Sell, setsPrice: true},
	{participant: 3, side: models.Buy, setsPrice: false},
	{participant: 3, side: models.Sell, setsPrice: true},
	{participant: 0, side: models.Buy, setsPrice: false},
}

// RingCoordinator advances 4 fixed participants through ringTable in lock
// step: one goroutine per participant blocks on a condition variable until
// the shared step counter names it as the sole actor of the current row,
// submits that row's order, and advances the counter so the next
// participant's goroutine wakes. Grounded on spec.md §4.5's description of
// condition-variable-coordinated multi-party bursts — original_source has
// no ring-trading counterpart.
type RingCoordinator struct {
	book  *engine.OrderBook
	instr catalog.Instrument
	sink  Sink
	logger *zap.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	step      int // index into ringTable for the current row
	ringPrice decimal.Decimal
	rng       *lockedRand
}

// NewRingCoordinator builds a ring coordinator. book must be the order book
// for instrument id 1 (spec.md §4.5); instr is that instrument's catalog row.
func NewRingCoordinator(book *engine.OrderBook, instr catalog.Instrument, sink Sink, logger *zap.Logger) *RingCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := &RingCoordinator{
		book:      book,
		instr:     instr,
		sink:      sink,
		logger:    logger.With(zap.String("component", "ring_coordinator")),
		ringPrice: instr.SeedPrice,
		rng:       newLockedRand(time.Now().UnixNano() ^ 0x1337),
	}
	rc.cond = sync.NewCond(&rc.mu)
	return rc
}

// Run starts one goroutine per participant and blocks until ctx is
// cancelled or every participant goroutine exits.
func (rc *RingCoordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	// Wake every participant parked on the condition variable once ctx is
	// done, so each one observes the cancellation and exits.
	go func() {
		<-ctx.Done()
		rc.mu.Lock()
		rc.cond.Broadcast()
		rc.mu.Unlock()
	}()
	for idx := range RingParticipants {
		idx := idx
		g.Go(func() error {
			rc.participantLoop(ctx, idx)
			return nil
		})
	}
	return g.Wait()
}

// participantLoop is the body each of the 4 participant goroutines runs.
// It waits for its turn, submits the single order ringTable assigns it at
// the current step, advances the shared step counter, then waits again.
func (rc *RingCoordinator) participantLoop(ctx context.Context, participant int) {
	lastActed := -1
	for {
		if ctx.Err() != nil {
			return
		}

		rc.mu.Lock()
		for ctx.Err() == nil && (rc.step == lastActed || ringTable[rc.step].participant != participant) {
			rc.cond.Wait()
		}
		if ctx.Err() != nil {
			rc.mu.Unlock()
			return
		}
		lastActed = rc.step
		step := ringTable[rc.step]
		wasLastStep := rc.step == len(ringTable)-1

		// Only one participant acts on any given step, so anchoring the
		// price here — still under the lock, still the sole writer for
		// this step — cannot race with another leg reading a stale value.
		if step.setsPrice {
			jitter := 1 + (rc.rng.Float64()*2-1)*0.002
			rc.ringPrice = rc.instr.SeedPrice.Mul(decimal.NewFromFloat(jitter)).Round(2)
		}
		price := rc.ringPrice
		rc.mu.Unlock()

		order := models.NewOrder(step.side, models.Limit, price, ringQuantity, models.GTC, RingParticipants[participant], rc.instr.ID)
		submitAndLog(rc.book, rc.sink, order, rc.logger)

		pause := ringStepSleep
		if wasLastStep {
			pause = ringFullPause
		}
		if !sleepOrDone(ctx, pause) {
			return
		}

		rc.mu.Lock()
		rc.step = (rc.step + 1) % len(ringTable)
		rc.cond.Broadcast()
		rc.mu.Unlock()
	}
}
