package lineage

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind discriminates which remote collection a document was read from.
// The three kinds share one shape; only their position in the sales pipeline
// differs.
type DocumentKind string

const (
	KindQuote    DocumentKind = "quote"
	KindOrder    DocumentKind = "order"
	KindDelivery DocumentKind = "delivery"
)

// Entity collections exposed by the remote document store.
const (
	CollectionQuotations       = "Quotations"
	CollectionOrders           = "Orders"
	CollectionDeliveryNotes    = "DeliveryNotes"
	CollectionItems            = "Items"
	CollectionInvoices         = "Invoices"
	CollectionCreditNotes      = "CreditNotes"
	CollectionProductionOrders = "ProductionOrders"
)

// Line back-reference type codes assigned by the remote store. These are
// opaque constants of the store's lineage convention, matched verbatim.
const (
	// BaseTypeQuotation marks an order line that fulfills a quotation.
	BaseTypeQuotation = 23
	// BaseTypeOrder marks a delivery line that fulfills an order.
	BaseTypeOrder = 17
)

// DocumentLine carries the back-reference a line holds to the document it
// fulfills. BaseEntry is nil when the line was entered free-standing.
type DocumentLine struct {
	BaseType  int    `json:"base_type"`
	BaseEntry *int64 `json:"base_entry,omitempty"`
}

// Document is a sales-pipeline record: quotation, order or delivery note.
// DocEntry is the store's opaque key; DocNum is the human-facing sequence
// number and may differ from DocEntry.
type Document struct {
	Kind      DocumentKind    `json:"kind"`
	DocEntry  int64           `json:"doc_entry"`
	DocNum    int64           `json:"doc_num"`
	DocDate   time.Time       `json:"doc_date"`
	DocTotal  decimal.Decimal `json:"doc_total"`
	CardCode  string          `json:"card_code"`
	CardName  string          `json:"card_name"`
	Status    string          `json:"status"`
	Cancelled string          `json:"cancelled"`
	Comments  string          `json:"comments,omitempty"`
	Lines     []DocumentLine  `json:"lines,omitempty"`
}

// LinksTo reports whether any line back-references the given document with
// the given back-reference type.
func (d *Document) LinksTo(baseType int, docEntry int64) bool {
	for _, line := range d.Lines {
		if line.BaseType == baseType && line.BaseEntry != nil && *line.BaseEntry == docEntry {
			return true
		}
	}
	return false
}

// LinksToAny reports whether any line back-references one of the given
// documents with the given back-reference type.
func (d *Document) LinksToAny(baseType int, docEntries map[int64]struct{}) bool {
	for _, line := range d.Lines {
		if line.BaseType != baseType || line.BaseEntry == nil {
			continue
		}
		if _, ok := docEntries[*line.BaseEntry]; ok {
			return true
		}
	}
	return false
}

// cancelTokens are cancel-indicator values the remote store has been observed
// to emit for voided documents.
var cancelTokens = map[string]struct{}{
	"csyes": {},
	"yes":   {},
	"true":  {},
	"1":     {},
}

// CancelMarker is the legacy bracketed tag embedded in a document's free-text
// note to mark it as cancelled. The marker grammar is an external contract:
// data written under the old convention carries exactly this tag.
const CancelMarker = "[CANCELLED]"

// IsVoid reports whether a document should be treated as cancelled. A
// document is void when its cancel indicator matches a known true-ish token
// (case-insensitive), when the indicator mentions "cancel" in any form, or
// when its free-text note carries the embedded legacy cancel marker.
//
// IsVoid is a convention for callers that enumerate documents directly; the
// lineage resolver itself relies on back-references and the store's own
// status fields.
func IsVoid(d *Document) bool {
	indicator := strings.ToLower(strings.TrimSpace(d.Cancelled))
	if _, ok := cancelTokens[indicator]; ok {
		return true
	}
	if strings.Contains(indicator, "cancel") {
		return true
	}
	return strings.Contains(strings.ToUpper(d.Comments), CancelMarker)
}
