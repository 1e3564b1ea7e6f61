// Package eventsink ships order and trade lifecycle events to an external
// line-protocol listener (QuestDB/InfluxDB ILP over raw TCP), grounded on
// original_source's Logger.hpp socket writer and extended to the richer
// TAGS/FIELDS schema spec.md §4.3 specifies.
package eventsink

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ironlattice/matchcore/internal/models"
)

// Sink is a persistent TCP connection to a line-protocol listener. Writes
// are serialized by mu; a failed write triggers one reconnect attempt, and
// if that also fails the record is dropped and logged, matching
// original_source's "best effort, never block matching" stance.
type Sink struct {
	mu          sync.Mutex
	conn        net.Conn
	addr        string
	dialTimeout time.Duration
	logger      *zap.Logger
	closed      bool
}

// New dials addr ("host:port") and returns a Sink. Connection failure at
// construction is logged as a warning, not fatal — the sink will retry on
// the next write, per spec.md §4.3's "ship best-effort" requirement.
func New(addr string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{
		addr:        addr,
		dialTimeout: 2 * time.Second,
		logger:      logger.With(zap.String("component", "eventsink"), zap.String("addr", addr)),
	}
	if err := s.dialLocked(); err != nil {
		s.logger.Warn("initial connect to event sink failed, will retry on first write", zap.Error(err))
	}
	return s
}

func (s *Sink) dialLocked() error {
	conn, err := net.DialTimeout("tcp", s.addr, s.dialTimeout)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// send writes line to the socket, reconnecting once on failure before
// giving up and dropping the record.
func (s *Sink) send(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.conn == nil {
		if err := s.dialLocked(); err != nil {
			s.logger.Warn("event sink unreachable, dropping record", zap.Error(err))
			return
		}
	}
	if _, err := s.conn.Write([]byte(line)); err != nil {
		s.logger.Warn("event sink write failed, reconnecting", zap.Error(err))
		_ = s.conn.Close()
		s.conn = nil
		if derr := s.dialLocked(); derr != nil {
			s.logger.Warn("event sink reconnect failed, dropping record", zap.Error(derr))
			return
		}
		if _, err := s.conn.Write([]byte(line)); err != nil {
			s.logger.Warn("event sink write failed after reconnect, dropping record", zap.Error(err))
			_ = s.conn.Close()
			s.conn = nil
		}
	}
}

// LogOrder ships one order lifecycle record.
func (s *Sink) LogOrder(o *models.Order) {
	s.send(buildOrderRecord(o))
}

// LogTrade ships one trade-match record.
func (s *Sink) LogTrade(t *models.Trade) {
	s.send(buildTradeRecord(t))
}

// Close closes the underlying connection. Safe to call once during
// shutdown; subsequent sends are silently dropped.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Addr returns the configured listener address, for logging at startup.
func (s *Sink) Addr() string { return s.addr }
