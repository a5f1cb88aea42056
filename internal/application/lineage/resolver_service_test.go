package lineage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/doclink/internal/domain/lineage"
	"github.com/erp/doclink/internal/infrastructure/cache"
)

// fakeGateway serves documents from memory and counts remote round trips.
// Quotation queries honor the DocNum filter; candidate queries honor the
// date bounds of the scan filter and otherwise return the collection.
type fakeGateway struct {
	mu         sync.Mutex
	docs       map[string][]lineage.Document
	queryCalls int
	getCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{docs: make(map[string][]lineage.Document)}
}

func (f *fakeGateway) add(collection string, doc lineage.Document) {
	f.docs[collection] = append(f.docs[collection], doc)
}

func (f *fakeGateway) Query(_ context.Context, collection string, q lineage.Query) ([]lineage.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++

	if collection == lineage.CollectionQuotations {
		var num int64
		if _, err := fmt.Sscanf(q.Filter, "DocNum eq %d", &num); err == nil {
			for _, d := range f.docs[collection] {
				if d.DocNum == num {
					return []lineage.Document{headerOf(d)}, nil
				}
			}
		}
		return nil, nil
	}

	from, to, bounded := filterWindow(q.Filter)
	page := make([]lineage.Document, 0, len(f.docs[collection]))
	for _, d := range f.docs[collection] {
		if bounded && (d.DocDate.Before(from) || d.DocDate.After(to)) {
			continue
		}
		page = append(page, headerOf(d))
	}
	if q.Top > 0 && len(page) > q.Top {
		page = page[:q.Top]
	}
	return page, nil
}

func (f *fakeGateway) GetByID(_ context.Context, collection string, docEntry int64) (*lineage.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++

	for _, d := range f.docs[collection] {
		if d.DocEntry == docEntry {
			full := d
			return &full, nil
		}
	}
	return nil, fmt.Errorf("document %d: %w", docEntry, lineage.ErrNotFound)
}

// filterWindow pulls the date bounds out of a candidate-scan filter.
func filterWindow(filter string) (from, to time.Time, ok bool) {
	var card, lo, hi string
	if _, err := fmt.Sscanf(filter, "CardCode eq %s and DocDate ge %s and DocDate le %s", &card, &lo, &hi); err != nil {
		return time.Time{}, time.Time{}, false
	}
	from, fromErr := time.Parse("2006-01-02", strings.Trim(lo, "'"))
	to, toErr := time.Parse("2006-01-02", strings.Trim(hi, "'"))
	if fromErr != nil || toErr != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// headerOf strips lines, the way a page query answers headers only.
func headerOf(d lineage.Document) lineage.Document {
	d.Lines = nil
	return d
}

func (f *fakeGateway) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls + f.getCalls
}

type fakeSummaryRepo struct {
	mu   sync.Mutex
	rows map[int64]*lineage.DeliverySummary
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{rows: make(map[int64]*lineage.DeliverySummary)}
}

func (f *fakeSummaryRepo) Upsert(_ context.Context, s *lineage.DeliverySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *s
	f.rows[s.DocNum] = &clone
	return nil
}

func (f *fakeSummaryRepo) FindFresh(_ context.Context, docNum int64, within time.Duration) (*lineage.DeliverySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[docNum]
	if !ok || time.Since(row.UpdatedAt) > within {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func entryRef(e int64) *int64 { return &e }

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// seedLineage loads the canonical pipeline: quote 1001 for 500.00, two
// orders confirming it (300.00 and 200.00), and one delivery note for
// 300.00 whose lines fulfill both orders.
func seedLineage(t *testing.T, gw *fakeGateway) {
	t.Helper()
	gw.add(lineage.CollectionQuotations, lineage.Document{
		Kind: lineage.KindQuote, DocEntry: 501, DocNum: 1001,
		DocDate: day(t, "2024-01-10"), DocTotal: amount(t, "500.00"),
		CardCode: "C100", CardName: "Initech",
	})
	gw.add(lineage.CollectionOrders, lineage.Document{
		Kind: lineage.KindOrder, DocEntry: 701, DocNum: 2001,
		DocDate: day(t, "2024-01-12"), DocTotal: amount(t, "300.00"),
		CardCode: "C100",
		Lines: []lineage.DocumentLine{
			{BaseType: lineage.BaseTypeQuotation, BaseEntry: entryRef(501)},
		},
	})
	gw.add(lineage.CollectionOrders, lineage.Document{
		Kind: lineage.KindOrder, DocEntry: 702, DocNum: 2002,
		DocDate: day(t, "2024-01-15"), DocTotal: amount(t, "200.00"),
		CardCode: "C100",
		Lines: []lineage.DocumentLine{
			{BaseType: lineage.BaseTypeQuotation, BaseEntry: entryRef(501)},
		},
	})
	// Same partner and window, but confirming a different quote.
	gw.add(lineage.CollectionOrders, lineage.Document{
		Kind: lineage.KindOrder, DocEntry: 703, DocNum: 2003,
		DocDate: day(t, "2024-01-16"), DocTotal: amount(t, "999.00"),
		CardCode: "C100",
		Lines: []lineage.DocumentLine{
			{BaseType: lineage.BaseTypeQuotation, BaseEntry: entryRef(599)},
		},
	})
	gw.add(lineage.CollectionDeliveryNotes, lineage.Document{
		Kind: lineage.KindDelivery, DocEntry: 901, DocNum: 3001,
		DocDate: day(t, "2024-01-20"), DocTotal: amount(t, "300.00"),
		CardCode: "C100",
		Lines: []lineage.DocumentLine{
			{BaseType: lineage.BaseTypeOrder, BaseEntry: entryRef(701)},
			{BaseType: lineage.BaseTypeOrder, BaseEntry: entryRef(702)},
		},
	})
}

func newTestResolver(gw *fakeGateway, repo lineage.SummaryRepository) *ResolverService {
	return NewResolverService(gw, cache.NewInMemoryTraceCache(cache.DefaultTraceTTL), repo, ResolverConfig{}, nil)
}

func TestResolverService_ResolveQuoteLineage(t *testing.T) {
	ctx := context.Background()

	t.Run("walks quote to orders to deliveries", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		svc := newTestResolver(gw, nil)

		res, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)
		require.True(t, res.OK)

		require.NotNil(t, res.Quote)
		assert.Equal(t, int64(1001), res.Quote.DocNum)
		require.Len(t, res.Orders, 2)
		require.Len(t, res.Deliveries, 1, "one delivery covering two orders counts once")

		assert.True(t, res.Totals.Quoted.Equal(amount(t, "500.00")))
		assert.True(t, res.Totals.Ordered.Equal(amount(t, "500.00")))
		assert.True(t, res.Totals.Delivered.Equal(amount(t, "300.00")))
		assert.True(t, res.Totals.Pending.Equal(amount(t, "200.00")))
	})

	t.Run("excludes orders confirming another quote", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		svc := newTestResolver(gw, nil)

		res, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)
		for _, o := range res.Orders {
			assert.NotEqual(t, int64(2003), o.DocNum)
		}
	})

	t.Run("second resolution is served from cache", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		svc := newTestResolver(gw, nil)

		first, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)
		calls := gw.remoteCalls()

		second, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)
		assert.Equal(t, calls, gw.remoteCalls(), "cache hit must not touch the remote store")
		assert.True(t, first.ResolvedAt.Equal(second.ResolvedAt))
	})

	t.Run("window override bypasses the cache", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		svc := newTestResolver(gw, nil)

		_, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)
		calls := gw.remoteCalls()

		res, err := svc.ResolveQuoteLineage(ctx, 1001, &lineage.WindowOverride{From: "2024-01-01", To: "2024-03-01"})
		require.NoError(t, err)
		assert.Greater(t, gw.remoteCalls(), calls)
		assert.Equal(t, day(t, "2024-01-01"), res.Window.From)
		assert.Equal(t, day(t, "2024-03-01"), res.Window.To)
	})

	t.Run("unknown number yields a cached not-found trace", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		svc := newTestResolver(gw, nil)

		res, err := svc.ResolveQuoteLineage(ctx, 9999, nil)
		require.NoError(t, err, "not-found is an outcome, not an error")
		assert.False(t, res.OK)
		assert.Equal(t, lineage.NotFoundReason, res.Reason)
		calls := gw.remoteCalls()

		res2, err := svc.ResolveQuoteLineage(ctx, 9999, nil)
		require.NoError(t, err)
		assert.False(t, res2.OK)
		assert.Equal(t, calls, gw.remoteCalls(), "repeated misses must not hammer the remote store")
	})

	t.Run("quote with no confirming orders has empty totals", func(t *testing.T) {
		gw := newFakeGateway()
		gw.add(lineage.CollectionQuotations, lineage.Document{
			Kind: lineage.KindQuote, DocEntry: 510, DocNum: 1050,
			DocDate: day(t, "2024-02-01"), DocTotal: amount(t, "120.00"),
			CardCode: "C200",
		})
		svc := newTestResolver(gw, nil)

		res, err := svc.ResolveQuoteLineage(ctx, 1050, nil)
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.Empty(t, res.Orders)
		assert.Empty(t, res.Deliveries)
		assert.True(t, res.Totals.Delivered.IsZero())
		assert.True(t, res.Totals.Pending.Equal(amount(t, "120.00")))
	})

	t.Run("projects the trace into the durable summary", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		repo := newFakeSummaryRepo()
		svc := newTestResolver(gw, repo)

		_, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)

		row, err := repo.FindFresh(ctx, 1001, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.True(t, row.Delivered.Equal(amount(t, "300.00")))
		assert.True(t, row.Pending.Equal(amount(t, "200.00")))
	})

	t.Run("override resolutions leave the durable summary untouched", func(t *testing.T) {
		gw := newFakeGateway()
		seedLineage(t, gw)
		repo := newFakeSummaryRepo()
		svc := newTestResolver(gw, repo)

		_, err := svc.ResolveQuoteLineage(ctx, 1001, nil)
		require.NoError(t, err)

		// A window ending before the delivery date yields partial totals in
		// the returned trace; the stored row must keep the full-window totals.
		res, err := svc.ResolveQuoteLineage(ctx, 1001, &lineage.WindowOverride{From: "2024-01-10", To: "2024-01-16"})
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.True(t, res.Totals.Delivered.IsZero())
		assert.True(t, res.Totals.Pending.Equal(amount(t, "500.00")))

		row, err := repo.FindFresh(ctx, 1001, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.True(t, row.Delivered.Equal(amount(t, "300.00")))
		assert.True(t, row.Pending.Equal(amount(t, "200.00")))
	})

	t.Run("not-found traces are not projected durably", func(t *testing.T) {
		gw := newFakeGateway()
		repo := newFakeSummaryRepo()
		svc := newTestResolver(gw, repo)

		_, err := svc.ResolveQuoteLineage(ctx, 9999, nil)
		require.NoError(t, err)
		assert.Empty(t, repo.rows)
	})
}
