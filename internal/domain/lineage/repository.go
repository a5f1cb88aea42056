package lineage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DeliverySummary is the durable, numeric-only projection of a trace,
// keyed by the quote's human-facing document number. It outlives the
// process and serves list views that only need delivered/pending amounts.
type DeliverySummary struct {
	DocNum    int64
	Delivered decimal.Decimal
	Pending   decimal.Decimal
	UpdatedAt time.Time
}

// SummaryRepository persists delivery summaries. Upsert is idempotent
// by document number with last-writer-wins on UpdatedAt. FindFresh
// returns (nil, nil) when no entry exists or the stored entry is older
// than the freshness window; only fresh entries are trusted.
type SummaryRepository interface {
	Upsert(ctx context.Context, summary *DeliverySummary) error
	FindFresh(ctx context.Context, docNum int64, within time.Duration) (*DeliverySummary, error)
}
