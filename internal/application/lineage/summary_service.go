package lineage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/doclink/internal/domain/lineage"
)

const (
	// MaxSummaryBatchSize bounds one delivered-summary request; numbers past
	// the cap are dropped and reported as such in the response envelope.
	MaxSummaryBatchSize = 20

	// DefaultSummaryFreshness is how old a durable summary row may be and
	// still be served without consulting the remote store.
	DefaultSummaryFreshness = 12 * time.Hour

	// defaultScanPace spaces consecutive remote resolutions within a batch.
	defaultScanPace = 150 * time.Millisecond
)

// QuoteResolver is the slice of the resolver the summary service needs.
type QuoteResolver interface {
	ResolveQuoteLineage(ctx context.Context, docNum int64, override *lineage.WindowOverride) (*lineage.TraceResult, error)
}

// SummaryItem is the outcome of one quote number in a delivered-summary
// batch. Source reports which tier answered.
type SummaryItem struct {
	DocNum    int64           `json:"doc_num"`
	OK        bool            `json:"ok"`
	Found     bool            `json:"found"`
	Delivered decimal.Decimal `json:"delivered"`
	Pending   decimal.Decimal `json:"pending"`
	Source    string          `json:"source,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// SummaryBatch is a complete delivered-summary response. Truncated counts
// the quote numbers dropped by the batch cap.
type SummaryBatch struct {
	Items     []SummaryItem `json:"items"`
	Truncated int           `json:"truncated,omitempty"`
}

// Answer sources reported per item.
const (
	SourceDurable  = "durable"
	SourceResolved = "resolved"
)

// SummaryService answers delivered/pending amounts for batches of quote
// numbers, preferring fresh durable summaries and falling back to a full
// lineage resolution per number.
type SummaryService struct {
	resolver  QuoteResolver
	summaries lineage.SummaryRepository
	freshness time.Duration
	workers   int
	pace      time.Duration
	logger    *zap.Logger
}

// SummaryConfig tunes the durable-summary tier and batch pacing. Zero
// values fall back to the package defaults.
type SummaryConfig struct {
	Freshness time.Duration
	ScanPace  time.Duration
}

// DefaultSummaryConfig returns the stock summary tuning.
func DefaultSummaryConfig() SummaryConfig {
	return SummaryConfig{
		Freshness: DefaultSummaryFreshness,
		ScanPace:  defaultScanPace,
	}
}

func (c *SummaryConfig) applyDefaults() {
	if c.Freshness <= 0 {
		c.Freshness = DefaultSummaryFreshness
	}
	if c.ScanPace <= 0 {
		c.ScanPace = defaultScanPace
	}
}

// NewSummaryService creates a SummaryService. The repository may be nil;
// every number then resolves against the remote store.
func NewSummaryService(
	resolver QuoteResolver,
	summaries lineage.SummaryRepository,
	cfg SummaryConfig,
	logger *zap.Logger,
) *SummaryService {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		resolver:  resolver,
		summaries: summaries,
		freshness: cfg.Freshness,
		workers:   maxScanWorkers,
		pace:      cfg.ScanPace,
		logger:    logger,
	}
}

// DeliveredSummaries answers the batch of quote numbers. At most
// MaxSummaryBatchSize numbers are processed; the rest are dropped and
// counted in Truncated. One number failing never fails the batch.
func (s *SummaryService) DeliveredSummaries(ctx context.Context, docNums []int64) *SummaryBatch {
	batch := &SummaryBatch{}
	if len(docNums) > MaxSummaryBatchSize {
		batch.Truncated = len(docNums) - MaxSummaryBatchSize
		s.logger.Warn("summary batch truncated",
			zap.Int("requested", len(docNums)),
			zap.Int("cap", MaxSummaryBatchSize))
		docNums = docNums[:MaxSummaryBatchSize]
	}

	outcomes := RunBatch(ctx, docNums, s.workers, s.pace, s.deliveredFor)

	batch.Items = make([]SummaryItem, len(outcomes))
	for i, out := range outcomes {
		if out.Err != nil {
			batch.Items[i] = SummaryItem{DocNum: docNums[i], Error: out.Err.Error()}
			continue
		}
		batch.Items[i] = out.Value
	}
	return batch
}

// deliveredFor answers a single quote number: a fresh durable row if one
// exists, otherwise a full resolution.
func (s *SummaryService) deliveredFor(ctx context.Context, docNum int64) (SummaryItem, error) {
	if s.summaries != nil {
		row, err := s.summaries.FindFresh(ctx, docNum, s.freshness)
		if err != nil {
			s.logger.Warn("durable summary lookup failed",
				zap.Int64("doc_num", docNum), zap.Error(err))
		} else if row != nil {
			return SummaryItem{
				DocNum:    docNum,
				OK:        true,
				Found:     true,
				Delivered: row.Delivered,
				Pending:   row.Pending,
				Source:    SourceDurable,
			}, nil
		}
	}

	trace, err := s.resolver.ResolveQuoteLineage(ctx, docNum, nil)
	if err != nil {
		return SummaryItem{}, err
	}
	if !trace.OK {
		return SummaryItem{DocNum: docNum, OK: true, Found: false, Source: SourceResolved}, nil
	}
	return SummaryItem{
		DocNum:    docNum,
		OK:        true,
		Found:     true,
		Delivered: trace.Totals.Delivered,
		Pending:   trace.Totals.Pending,
		Source:    SourceResolved,
	}, nil
}
