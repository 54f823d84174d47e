package protocol

import (
	"fmt"

	"github.com/google/uuid"

	"clob/internal/matchingengine"
)

// ReportKind identifies a server-to-client report line's first token.
type ReportKind string

const (
	ReportFill  ReportKind = "FILL"
	ReportRest  ReportKind = "REST"
	ReportErr   ReportKind = "ERR"
	ReportPong  ReportKind = "PONG"
	ReportPrice ReportKind = "PRICE"
	ReportDepth ReportKind = "DEPTH"
	ReportEmpty ReportKind = "EMPTY"
)

// FillLine renders a trade event as a FILL report line, tagged with a
// correlation id for the connection's log/trace.
func FillLine(correlate uuid.UUID, evt matchingengine.TradeEvent) string {
	return fmt.Sprintf("FILL %s %d %d %d %d %d",
		correlate, evt.MakerOrderID, evt.TakerOrderID, evt.Price, evt.Shares, evt.Timestamp.UnixNano())
}

// RestLine renders the acknowledgement line for an accepted command on an
// order id. The server sends it for every accepted LIMIT, STOP, AMEND and
// CANCEL; it does not say whether the order is still resting afterwards.
func RestLine(id uint64) string {
	return fmt.Sprintf("REST %d", id)
}

// ErrLine renders a rejected command's error as an ERR report line.
func ErrLine(err error) string {
	return fmt.Sprintf("ERR %s", err.Error())
}

// PongLine answers a PING.
func PongLine() string {
	return string(ReportPong)
}

// PriceLine answers a BESTBID/BESTASK query with the edge price, or an EMPTY
// line if that side of the book has no resting orders (§6: "price or ∅").
func PriceLine(price int64, ok bool) string {
	if !ok {
		return string(ReportEmpty)
	}
	return fmt.Sprintf("%s %d", ReportPrice, price)
}

// DepthLine answers a DEPTH query with (order_count, total_shares), or an
// EMPTY line if no level rests at that price (§6: "(order_count,
// total_shares) or ∅").
func DepthLine(orderCount int, totalShares int64, ok bool) string {
	if !ok {
		return string(ReportEmpty)
	}
	return fmt.Sprintf("%s %d %d", ReportDepth, orderCount, totalShares)
}
