package lineage

import (
	"context"
	"strings"
)

// Query describes a page request against a remote collection using the
// store's query grammar ($select, $filter, $orderby, $top, $skip).
type Query struct {
	Select  []string
	Filter  string
	OrderBy string
	Top     int
	Skip    int
}

// DocumentGateway is the port to the remote document store. Query returns
// header-level documents for a page; GetByID returns the full document
// including its lines.
type DocumentGateway interface {
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	GetByID(ctx context.Context, collection string, docEntry int64) (*Document, error)
}

// EscapeFilterLiteral doubles single quotes in a string destined for a
// quoted filter literal, so card codes containing quotes cannot break the
// query grammar.
func EscapeFilterLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
