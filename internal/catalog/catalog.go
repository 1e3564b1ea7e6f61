// Package catalog holds the immutable instrument reference table. It is the
// Go counterpart of original_source's InstrumentManager singleton: a fixed
// enumeration of (id, name, symbol, seed price) initialized once and never
// mutated afterward.
package catalog

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Instrument is one row of the reference table.
type Instrument struct {
	ID        int
	Name      string
	Symbol    string
	SeedPrice decimal.Decimal
}

var (
	once      sync.Once
	byID      map[int]Instrument
	allSorted []Instrument
)

func seed() []Instrument {
	return []Instrument{
		{1, "Reliance Industries", "RELIANCE (NSE)", decimal.NewFromFloat(1577.0)},
		{2, "Tata Consultancy Services", "TCS (NSE)", decimal.NewFromFloat(3213.0)},
		{3, "Dixon Technologies", "DIXON (NSE)", decimal.NewFromFloat(12055.0)},
		{4, "HDFC Bank", "HDFCBANK (NSE)", decimal.NewFromFloat(987.5)},
		{5, "Tata Motors", "TATAMOTORS (NSE)", decimal.NewFromFloat(373.55)},
		{6, "Tata Power", "TATAPOWER (NSE)", decimal.NewFromFloat(388.0)},
		{7, "Adani Enterprises", "ADANIENT (NSE)", decimal.NewFromFloat(2279.0)},
		{8, "Adani Green Energy", "ADANIGREEN (NSE)", decimal.NewFromFloat(1028.8)},
		{9, "Adani Power", "ADANIPOWER (NSE)", decimal.NewFromFloat(146.0)},
		{10, "Tanla Platforms", "TANLA (NSE)", decimal.NewFromFloat(524.0)},
		{11, "Nifty 50 Index", "NIFTY 50", decimal.NewFromFloat(26250.3)},
		{12, "Bank Nifty Index", "BANKNIFTY", decimal.NewFromFloat(60044.2)},
		{13, "FinNifty", "FINNIFTY", decimal.NewFromFloat(27851.45)},
		{14, "Sensex", "SENSEX", decimal.NewFromFloat(84961.14)},
		{15, "Nifty Next 50 Index", "NIFTY NEXT 50", decimal.NewFromFloat(70413.4)},
	}
}

func init() {
	once.Do(func() {
		rows := seed()
		byID = make(map[int]Instrument, len(rows))
		for _, r := range rows {
			byID[r.ID] = r
		}
		allSorted = append(allSorted, rows...)
		sort.Slice(allSorted, func(i, j int) bool { return allSorted[i].ID < allSorted[j].ID })
	})
}

// Lookup returns the instrument registered under id, the hot operation of
// this package.
func Lookup(id int) (Instrument, bool) {
	instr, ok := byID[id]
	return instr, ok
}

// All returns every instrument, ordered by id.
func All() []Instrument {
	out := make([]Instrument, len(allSorted))
	copy(out, allSorted)
	return out
}
