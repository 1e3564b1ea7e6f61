package eventsink

import (
	"strconv"
	"strings"
	"time"

	"github.com/ironlattice/matchcore/internal/models"
)

// measurement is the line-protocol measurement name every record is
// written under (spec.md §4.3).
const measurement = "trade_logs"

// statusEvent maps an order's Status to the TAGS column vocabulary.
func statusEvent(s models.Status) string {
	switch s {
	case models.New:
		return "ORDER_NEW"
	case models.Partial:
		return "ORDER_PARTIAL"
	case models.Filled:
		return "ORDER_FILLED"
	case models.Cancelled:
		return "ORDER_CANCELLED"
	case models.Expired:
		return "ORDER_EXPIRED"
	default:
		return "ORDER_NEW"
	}
}

// sanitizeTag replaces line-protocol-special characters (space, comma,
// equals) in a tag value with underscore (spec.md §4.3).
func sanitizeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		switch r {
		case ' ', ',', '=':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

// buildOrderRecord renders one line-protocol record for an order lifecycle
// event (spec.md §4.3 TAGS/FIELDS).
func buildOrderRecord(o *models.Order) string {
	var b strings.Builder
	b.WriteString(measurement)

	writeTag(&b, "order_id", o.ID)
	writeTag(&b, "instrument_id", strconv.Itoa(o.InstrumentID))
	writeTag(&b, "order_type", string(o.Type))
	writeTag(&b, "side", string(o.Side))
	writeTag(&b, "order_status_event", statusEvent(o.Status))
	writeTag(&b, "user_id", o.TraderID)
	writeTag(&b, "trade_id", o.TradeID)
	writeTag(&b, "buyer_user_id", o.BuyerID)
	writeTag(&b, "seller_user_id", o.SellerID)
	writeTag(&b, "aggressor_side", "NA")
	writeTag(&b, "market_phase", string(models.MarketPhaseAt(o.SubmitTimestamp)))
	writeTag(&b, "device_id_hash", models.DeviceFingerprint(o.TraderID))

	b.WriteByte(' ')
	filled := o.OriginalQty - o.RemainingQty
	writeFields(&b,
		field{"price", o.LimitPrice.String(), false},
		field{"quantity", strconv.FormatInt(o.OriginalQty, 10), true},
		field{"filled_quantity", strconv.FormatInt(filled, 10), true},
		field{"remaining_quantity", strconv.FormatInt(o.RemainingQty, 10), true},
		field{"is_short_sell", strconv.FormatBool(o.ShortSell), false},
		field{"order_submit_timestamp", strconv.FormatInt(micros(o.SubmitTimestamp), 10), true},
		field{"order_cancel_timestamp", strconv.FormatInt(micros(o.CancelTimestamp), 10), true},
		field{"match_engine_timestamp", strconv.FormatInt(time.Now().UnixMicro(), 10), true},
	)

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(nanos(o.SubmitTimestamp), 10))
	b.WriteByte('\n')
	return b.String()
}

// buildTradeRecord renders one TRADE_MATCH line-protocol record
// (spec.md §4.3).
func buildTradeRecord(t *models.Trade) string {
	var b strings.Builder
	b.WriteString(measurement)

	writeTag(&b, "order_id", t.BuyOrderID)
	writeTag(&b, "instrument_id", strconv.Itoa(t.InstrumentID))
	writeTag(&b, "order_type", "MATCH")
	writeTag(&b, "side", string(t.AggressorSide))
	writeTag(&b, "order_status_event", "TRADE_MATCH")
	writeTag(&b, "user_id", t.BuyerID)
	writeTag(&b, "trade_id", t.ID)
	writeTag(&b, "buyer_user_id", t.BuyerID)
	writeTag(&b, "seller_user_id", t.SellerID)
	writeTag(&b, "aggressor_side", string(t.AggressorSide))
	writeTag(&b, "market_phase", string(models.MarketPhaseAt(t.ExecutedAt)))
	writeTag(&b, "device_id_hash", models.DeviceFingerprint(t.AggressorTraderID()))

	b.WriteByte(' ')
	writeFields(&b,
		field{"price", t.Price.String(), false},
		field{"quantity", strconv.FormatInt(t.Quantity, 10), true},
		field{"filled_quantity", strconv.FormatInt(t.Quantity, 10), true},
		field{"remaining_quantity", "0", true},
		field{"is_short_sell", "false", false},
		field{"order_submit_timestamp", "0", true},
		field{"order_cancel_timestamp", "0", true},
		field{"match_engine_timestamp", strconv.FormatInt(micros(t.ExecutedAt), 10), true},
	)

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(nanos(t.ExecutedAt), 10))
	b.WriteByte('\n')
	return b.String()
}

func writeTag(b *strings.Builder, key, val string) {
	b.WriteByte(',')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(sanitizeTag(val))
}

type field struct {
	key   string
	value string
	isInt bool
}

func writeFields(b *strings.Builder, fields ...field) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.value)
		if f.isInt {
			b.WriteByte('i')
		}
	}
}
