package lineage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/doclink/internal/domain/lineage"
	"github.com/erp/doclink/internal/infrastructure/cache"
)

// ResolverConfig bounds the candidate scan a single resolution may perform
// against the remote store.
type ResolverConfig struct {
	WindowBack           time.Duration
	WindowForward        time.Duration
	OrderCandidateCap    int
	DeliveryCandidateCap int
}

// DefaultResolverConfig returns the production scan bounds.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		WindowBack:           lineage.DefaultWindowBack,
		WindowForward:        lineage.DefaultWindowForward,
		OrderCandidateCap:    120,
		DeliveryCandidateCap: 200,
	}
}

func (c *ResolverConfig) applyDefaults() {
	def := DefaultResolverConfig()
	if c.WindowBack <= 0 {
		c.WindowBack = def.WindowBack
	}
	if c.WindowForward <= 0 {
		c.WindowForward = def.WindowForward
	}
	if c.OrderCandidateCap <= 0 {
		c.OrderCandidateCap = def.OrderCandidateCap
	}
	if c.DeliveryCandidateCap <= 0 {
		c.DeliveryCandidateCap = def.DeliveryCandidateCap
	}
}

// ResolverService walks a quotation's lineage through the remote store:
// quote, then the orders whose lines confirm it, then the delivery notes
// whose lines confirm those orders. Results are written through to the
// ephemeral trace cache and projected into the durable summary table.
type ResolverService struct {
	gateway   lineage.DocumentGateway
	traces    cache.TraceCache
	summaries lineage.SummaryRepository
	cfg       ResolverConfig
	logger    *zap.Logger
}

// NewResolverService creates a ResolverService. The summary repository may
// be nil when no durable tier is configured.
func NewResolverService(
	gateway lineage.DocumentGateway,
	traces cache.TraceCache,
	summaries lineage.SummaryRepository,
	cfg ResolverConfig,
	logger *zap.Logger,
) *ResolverService {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{
		gateway:   gateway,
		traces:    traces,
		summaries: summaries,
		cfg:       cfg,
		logger:    logger,
	}
}

// ResolveQuoteLineage resolves the lineage of the quote with the given
// human-facing document number. A nil override uses the default scan window
// around the quote date; a resolution with an override bypasses the trace
// cache in both directions, since cached traces are keyed by number alone,
// and is never projected into the durable summary, whose rows must reflect
// default-window totals.
//
// An unknown quote number yields a not-found trace with a nil error; errors
// are reserved for remote or infrastructure failures.
func (s *ResolverService) ResolveQuoteLineage(
	ctx context.Context,
	docNum int64,
	override *lineage.WindowOverride,
) (*lineage.TraceResult, error) {
	useCache := override == nil

	if useCache {
		if cached, ok, err := s.traces.Get(ctx, cache.NumberKey(docNum)); err != nil {
			s.logger.Warn("trace cache read failed", zap.Int64("doc_num", docNum), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	quote, err := s.findQuote(ctx, docNum)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		result := lineage.NewNotFoundResult()
		if useCache {
			s.putTrace(ctx, cache.NumberKey(docNum), result)
		}
		return result, nil
	}

	window := lineage.ComputeWindow(quote.DocDate, override, s.cfg.WindowBack, s.cfg.WindowForward)

	orders, err := s.confirmedOrders(ctx, quote, window)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.confirmedDeliveries(ctx, quote, orders, window)
	if err != nil {
		return nil, err
	}

	result := lineage.NewTraceResult(quote, orders, deliveries, window)

	if useCache {
		s.putTrace(ctx, cache.NumberKey(docNum), result)
		s.putTrace(ctx, cache.EntryKey(quote.DocEntry), result)
		s.storeSummary(ctx, result)
	}

	return result, nil
}

// findQuote locates the quote by document number, then fetches it in full.
// Returns (nil, nil) when the number is unknown.
func (s *ResolverService) findQuote(ctx context.Context, docNum int64) (*lineage.Document, error) {
	page, err := s.gateway.Query(ctx, lineage.CollectionQuotations, lineage.Query{
		Filter: fmt.Sprintf("DocNum eq %d", docNum),
		Top:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}
	return s.gateway.GetByID(ctx, lineage.CollectionQuotations, page[0].DocEntry)
}

// confirmedOrders scans order candidates for the quote's business partner
// inside the window and keeps those whose lines back-reference the quote.
// Candidates are scanned newest first so that when the cap truncates the
// scan, the most recent activity is the part that was seen.
func (s *ResolverService) confirmedOrders(
	ctx context.Context,
	quote *lineage.Document,
	window lineage.ScanWindow,
) ([]lineage.Document, error) {
	candidates, err := s.gateway.Query(ctx, lineage.CollectionOrders, lineage.Query{
		Filter:  windowFilter(quote.CardCode, window),
		OrderBy: "DocDate desc",
		Top:     s.cfg.OrderCandidateCap,
	})
	if err != nil {
		return nil, err
	}

	orders := make([]lineage.Document, 0, 4)
	for _, candidate := range candidates {
		full, err := s.gateway.GetByID(ctx, lineage.CollectionOrders, candidate.DocEntry)
		if err != nil {
			return nil, err
		}
		if full.LinksTo(lineage.BaseTypeQuotation, quote.DocEntry) {
			orders = append(orders, *full)
		}
	}
	return orders, nil
}

// confirmedDeliveries scans delivery candidates inside the window and keeps
// those whose lines back-reference any of the confirmed orders. A delivery
// covering lines of several orders is counted once.
func (s *ResolverService) confirmedDeliveries(
	ctx context.Context,
	quote *lineage.Document,
	orders []lineage.Document,
	window lineage.ScanWindow,
) ([]lineage.Document, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	orderEntries := make(map[int64]struct{}, len(orders))
	for _, o := range orders {
		orderEntries[o.DocEntry] = struct{}{}
	}

	candidates, err := s.gateway.Query(ctx, lineage.CollectionDeliveryNotes, lineage.Query{
		Filter:  windowFilter(quote.CardCode, window),
		OrderBy: "DocDate desc",
		Top:     s.cfg.DeliveryCandidateCap,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(candidates))
	deliveries := make([]lineage.Document, 0, 4)
	for _, candidate := range candidates {
		if _, dup := seen[candidate.DocEntry]; dup {
			continue
		}
		full, err := s.gateway.GetByID(ctx, lineage.CollectionDeliveryNotes, candidate.DocEntry)
		if err != nil {
			return nil, err
		}
		if full.LinksToAny(lineage.BaseTypeOrder, orderEntries) {
			seen[full.DocEntry] = struct{}{}
			deliveries = append(deliveries, *full)
		}
	}
	return deliveries, nil
}

// windowFilter builds the candidate pre-filter: same business partner,
// document date inside the window.
func windowFilter(cardCode string, window lineage.ScanWindow) string {
	return fmt.Sprintf(
		"CardCode eq '%s' and DocDate ge '%s' and DocDate le '%s'",
		lineage.EscapeFilterLiteral(cardCode),
		lineage.FilterDate(window.From),
		lineage.FilterDate(window.To),
	)
}

// putTrace writes to the ephemeral tier. Cache failures degrade to a
// warning; the caller still gets the resolved trace.
func (s *ResolverService) putTrace(ctx context.Context, key string, result *lineage.TraceResult) {
	if err := s.traces.Put(ctx, key, result); err != nil {
		s.logger.Warn("trace cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// storeSummary projects a successful trace into the durable summary table.
// Persistence failures do not fail the resolution.
func (s *ResolverService) storeSummary(ctx context.Context, result *lineage.TraceResult) {
	if s.summaries == nil || !result.OK {
		return
	}
	err := s.summaries.Upsert(ctx, &lineage.DeliverySummary{
		DocNum:    result.Quote.DocNum,
		Delivered: result.Totals.Delivered,
		Pending:   result.Totals.Pending,
		UpdatedAt: result.ResolvedAt,
	})
	if err != nil {
		s.logger.Warn("summary upsert failed",
			zap.Int64("doc_num", result.Quote.DocNum),
			zap.Error(err))
	}
}
