package matchingengine

import (
	"time"

	"github.com/rs/zerolog/log"
)

// TradeEvent records one execution: the resting maker order, the incoming
// taker, and the price, quantity, and time at which they traded.
type TradeEvent struct {
	MakerOrderID uint64
	TakerOrderID uint64
	Price        int64
	Shares       int64
	Timestamp    time.Time
}

// Reporter receives trade events as the matching engine produces them. It
// is invoked synchronously, so it is expected to be cheap (append to a
// buffer, write a log line); a slow Reporter stalls the single-threaded
// book.
type Reporter interface {
	ReportTrade(TradeEvent)
}

// bufferedReporter is the default Reporter: an in-memory pull buffer plus
// a debug-level log line per trade.
type bufferedReporter struct {
	events []TradeEvent
}

func newBufferedReporter() *bufferedReporter {
	return &bufferedReporter{}
}

func (r *bufferedReporter) ReportTrade(evt TradeEvent) {
	r.events = append(r.events, evt)
	log.Debug().
		Uint64("maker", evt.MakerOrderID).
		Uint64("taker", evt.TakerOrderID).
		Int64("price", evt.Price).
		Int64("shares", evt.Shares).
		Msg("trade")
}

// Drain returns and clears the buffered events since the last call.
func (r *bufferedReporter) Drain() []TradeEvent {
	out := r.events
	r.events = nil
	return out
}
