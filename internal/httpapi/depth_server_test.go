package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlattice/matchcore/internal/engine"
	"github.com/ironlattice/matchcore/internal/models"
)

func newTestServer(t *testing.T) (*Server, map[int]*engine.OrderBook) {
	t.Helper()
	book := engine.NewOrderBook(1, engine.DefaultExpirySeconds, nil, nil)
	book.Submit(models.NewOrder(models.Buy, models.Limit, decimal.NewFromFloat(100), 5, models.GTC, "b", 1))
	book.Submit(models.NewOrder(models.Sell, models.Limit, decimal.NewFromFloat(105), 5, models.GTC, "s", 1))
	books := map[int]*engine.OrderBook{1: book}
	return New(":0", books, DefaultTopN, nil), books
}

func TestHandleBookReturnsSnapshot(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/book/1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()

	s.handleBook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.InstrumentID)
	require.Len(t, resp.Bids, 1)
	require.Len(t, resp.Asks, 1)
	assert.Equal(t, "100.00", resp.Bids[0].Price)
	assert.Equal(t, "105.00", resp.Asks[0].Price)
}

func TestHandleBookUnknownInstrument(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/book/99", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "99"})
	rec := httptest.NewRecorder()

	s.handleBook(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBooksReturnsAllKnownBooks(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rec := httptest.NewRecorder()

	s.handleBooks(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 1, resp["1"].InstrumentID)
}
