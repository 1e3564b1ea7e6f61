// Package httpapi exposes the read-only depth-snapshot endpoints
// (spec.md §6), wired through gorilla/mux for routing and rs/cors for the
// permissive cross-origin policy the spec's HTTP surface requires.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ironlattice/matchcore/internal/catalog"
	"github.com/ironlattice/matchcore/internal/engine"
)

// DefaultPort is the loopback HTTP port the depth server listens on
// (spec.md §6).
const DefaultPort = 9100

// DefaultTopN is the number of price levels returned per side when New is
// given a non-positive topN.
const DefaultTopN = 5

// BidLevel and AskLevel are the JSON shapes spec.md §6 names for each side
// of a depth snapshot.
type BidLevel struct {
	Price      string `json:"price"`
	QtyBuyers  int64  `json:"qty_buyers"`
}

type AskLevel struct {
	Price       string `json:"price"`
	QtySellers  int64  `json:"qty_sellers"`
}

// BookResponse is the JSON body of GET /book/{id}.
type BookResponse struct {
	InstrumentID int        `json:"instrument_id"`
	Symbol       string     `json:"symbol"`
	Bids         []BidLevel `json:"bids"`
	Asks         []AskLevel `json:"asks"`
}

// Server serves the depth query endpoints over the books it is given.
// Grounded on the teacher's protocol-server lifecycle shape (an
// http.Server constructed in NewServer, started and stopped by the caller)
// adapted from gRPC to a plain JSON/HTTP surface.
type Server struct {
	httpServer *http.Server
	books      map[int]*engine.OrderBook
	topN       int
	logger     *zap.Logger
}

// New builds a depth Server bound to addr (e.g. ":9100") over books, keyed
// by instrument id. topN caps the number of price levels returned per side;
// callers that don't care can pass DefaultTopN.
func New(addr string, books map[int]*engine.OrderBook, topN int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	s := &Server{
		books:  books,
		topN:   topN,
		logger: logger.With(zap.String("component", "depth_server")),
	}

	r := mux.NewRouter()
	r.HandleFunc("/book/{id}", s.handleBook).Methods(http.MethodGet)
	r.HandleFunc("/books", s.handleBooks).Methods(http.MethodGet)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: corsMiddleware.Handler(r),
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down. It
// returns http.ErrServerClosed on a graceful Shutdown, matching the
// standard library convention the teacher's gRPC server also followed.
func (s *Server) ListenAndServe() error {
	s.logger.Info("depth server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	var id int
	if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
		http.Error(w, "invalid instrument id", http.StatusBadRequest)
		return
	}

	book, ok := s.books[id]
	if !ok {
		http.Error(w, "unknown instrument id", http.StatusNotFound)
		return
	}
	instr, _ := catalog.Lookup(id)

	writeJSON(w, s.toBookResponse(id, instr.Symbol, book))
}

// handleBooks writes a JSON object keyed by instrument id, not an array,
// so clients can look a book up directly by id without scanning.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	resp := make(map[string]BookResponse, len(s.books))
	for _, instr := range catalog.All() {
		book, ok := s.books[instr.ID]
		if !ok {
			continue
		}
		resp[strconv.Itoa(instr.ID)] = s.toBookResponse(instr.ID, instr.Symbol, book)
	}
	writeJSON(w, resp)
}

func (s *Server) toBookResponse(id int, symbol string, book *engine.OrderBook) BookResponse {
	bids, asks := book.DepthSnapshot(s.topN)
	resp := BookResponse{
		InstrumentID: id,
		Symbol:       symbol,
		Bids:         make([]BidLevel, 0, len(bids)),
		Asks:         make([]AskLevel, 0, len(asks)),
	}
	for _, lvl := range bids {
		resp.Bids = append(resp.Bids, BidLevel{Price: lvl.Price.StringFixed(2), QtyBuyers: lvl.Qty})
	}
	for _, lvl := range asks {
		resp.Asks = append(resp.Asks, AskLevel{Price: lvl.Price.StringFixed(2), QtySellers: lvl.Qty})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
