package idhash

import (
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// TradeIDs issues time-sortable trade ids (ULIDs) from a deterministic entropy source.
// The ULID timestamp is the trade's execution time, so ids sort with the trade stream.
// Not safe for concurrent use; give each generator its own instance.
type TradeIDs struct {
	entropy *ulid.MonotonicEntropy
}

// NewTradeIDs wraps r in monotonic ULID entropy.
func NewTradeIDs(r io.Reader) *TradeIDs {
	return &TradeIDs{entropy: ulid.Monotonic(r, 0)}
}

// Next returns the id for a trade executed at ts.
func (g *TradeIDs) Next(ts time.Time) string {
	// Overflow only happens after 2^80 ids in one millisecond.
	return ulid.MustNew(ulid.Timestamp(ts.UTC()), g.entropy).String()
}
