// Command matchcore runs a multi-instrument limit order book matching
// engine: one OrderBook per catalog instrument, a TCP line-protocol event
// sink, simulated retail/wash/ring order flow, and a read-only depth HTTP
// endpoint. Grounded on the teacher's main.go lifecycle wiring (load
// config, build logger, start servers, wait for a shutdown signal, tear
// down in reverse order), generalized from a single gRPC server to this
// module's multi-component topology.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironlattice/matchcore/internal/catalog"
	"github.com/ironlattice/matchcore/internal/config"
	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/eventsink"
	"github.com/ironlattice/matchcore/internal/httpapi"
	"github.com/ironlattice/matchcore/internal/logging"
	"github.com/ironlattice/matchcore/internal/producer"
	"github.com/ironlattice/matchcore/internal/supervisor"
)

// ringInstrumentID is the only instrument ring trading is permitted to
// touch (spec.md §4.5).
const ringInstrumentID = 1

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "matchcore: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logging.Sync() }()
	logger := logging.L()
	logger.Info("starting matchcore", zap.String("config", cfg.String()))

	if err := supervisor.WritePIDFile(cfg.Process.PIDFile); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		if err := supervisor.RemovePIDFile(cfg.Process.PIDFile); err != nil {
			logger.Warn("failed to remove pid file", zap.Error(err))
		}
	}()

	sink := eventsink.New(cfg.Sink.Addr(), logger)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close event sink", zap.Error(err))
		}
	}()

	books := make(map[int]*engine.OrderBook, len(catalog.All()))
	for _, instr := range catalog.All() {
		book := engine.NewOrderBook(instr.ID, cfg.Engine.ExpirySeconds, sink, logger)
		book.StartExpiryLoop()
		books[instr.ID] = book
	}
	defer func() {
		for _, book := range books {
			book.Stop()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	pool := producer.NewPool(books, cfg.Producers.WorkersPerInstrument, sink, logger)
	g.Go(func() error { return pool.Run(gctx) })

	if cfg.Producers.EnableWash {
		for _, instr := range catalog.All() {
			instr := instr
			book := books[instr.ID]
			wash := producer.NewWashProducer(book, instr, sink, logger)
			g.Go(func() error { return wash.Run(gctx) })
		}
	}

	if cfg.Producers.EnableRing {
		ringInstr, ok := catalog.Lookup(ringInstrumentID)
		if !ok {
			return fmt.Errorf("ring coordinator: unknown instrument id %d", ringInstrumentID)
		}
		ring := producer.NewRingCoordinator(books[ringInstrumentID], ringInstr, sink, logger)
		g.Go(func() error { return ring.Run(gctx) })
	}

	depthServer := httpapi.New(fmt.Sprintf("127.0.0.1:%d", cfg.HTTP.Port), books, cfg.Engine.DepthTopN, logger)
	g.Go(func() error {
		if err := depthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("depth server: %w", err)
		}
		return nil
	})

	supervisor.WaitForShutdownSignal(logger)
	logger.Info("shutting down")
	cancel()
	if err := depthServer.Shutdown(); err != nil {
		logger.Warn("depth server shutdown error", zap.Error(err))
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("component error during shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
