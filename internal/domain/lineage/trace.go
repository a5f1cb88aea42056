package lineage

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotFoundReason is the structured reason carried by a trace for a quote
// number the remote store does not know.
const NotFoundReason = "not found"

// Totals aggregates the money amounts along a quote's lineage.
// Pending is always Quoted minus Delivered, rounded to two decimals.
type Totals struct {
	Quoted    decimal.Decimal `json:"quoted"`
	Ordered   decimal.Decimal `json:"ordered"`
	Delivered decimal.Decimal `json:"delivered"`
	Pending   decimal.Decimal `json:"pending"`
}

// TraceResult is the immutable outcome of resolving a quote's lineage.
// A single instance is the unit cached; it is never mutated after creation.
type TraceResult struct {
	OK         bool        `json:"ok"`
	Reason     string      `json:"reason,omitempty"`
	Quote      *Document   `json:"quote,omitempty"`
	Orders     []Document  `json:"orders,omitempty"`
	Deliveries []Document  `json:"deliveries,omitempty"`
	Totals     Totals      `json:"totals"`
	Window     ScanWindow  `json:"window"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

// Round2 rounds a money amount to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NewTraceResult builds a successful trace from a quote and its confirmed
// orders and deliveries. Deliveries are expected to already be deduplicated
// by DocEntry; totals are commutative sums, so the order the documents were
// discovered in does not matter.
func NewTraceResult(quote *Document, orders, deliveries []Document, window ScanWindow) *TraceResult {
	ordered := decimal.Zero
	for _, o := range orders {
		ordered = ordered.Add(o.DocTotal)
	}
	delivered := decimal.Zero
	for _, d := range deliveries {
		delivered = delivered.Add(d.DocTotal)
	}
	return &TraceResult{
		OK:         true,
		Quote:      quote,
		Orders:     orders,
		Deliveries: deliveries,
		Totals: Totals{
			Quoted:    Round2(quote.DocTotal),
			Ordered:   Round2(ordered),
			Delivered: Round2(delivered),
			Pending:   Round2(quote.DocTotal.Sub(delivered)),
		},
		Window:     window,
		ResolvedAt: time.Now(),
	}
}

// NewNotFoundResult builds the structured trace for a quote number absent
// from the remote store. A not-found trace is a legitimate, cacheable
// outcome, not an error.
func NewNotFoundResult() *TraceResult {
	return &TraceResult{
		OK:         false,
		Reason:     NotFoundReason,
		ResolvedAt: time.Now(),
	}
}
