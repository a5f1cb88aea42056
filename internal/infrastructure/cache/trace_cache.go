package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/erp/doclink/internal/domain/lineage"
)

// DefaultTraceTTL is how long a resolved trace is served from the ephemeral
// tier before the remote store is consulted again.
const DefaultTraceTTL = 6 * time.Hour

// TraceCache is the ephemeral tier of the cache layer: it holds full
// TraceResult objects keyed by document number or opaque document key.
// Get returns (nil, false, nil) on a miss or an expired entry.
type TraceCache interface {
	Get(ctx context.Context, key string) (*lineage.TraceResult, bool, error)
	Put(ctx context.Context, key string, result *lineage.TraceResult) error
	Close() error
}

// NumberKey builds the cache key for a quote's human-facing number.
func NumberKey(docNum int64) string {
	return "num:" + strconv.FormatInt(docNum, 10)
}

// EntryKey builds the cache key for a quote's opaque document key.
func EntryKey(docEntry int64) string {
	return "entry:" + strconv.FormatInt(docEntry, 10)
}
