package remote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/doclink/internal/domain/lineage"
)

// loginRequest is the body of the store's /Login exchange.
type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

// queryEnvelope wraps a page of documents returned by a collection query.
type queryEnvelope struct {
	Value []documentPayload `json:"value"`
}

// documentPayload is the wire shape of a document header, optionally with
// its lines when fetched by id.
type documentPayload struct {
	DocEntry       int64           `json:"DocEntry"`
	DocNum         int64           `json:"DocNum"`
	DocDate        string          `json:"DocDate"`
	DocTotal       decimal.Decimal `json:"DocTotal"`
	CardCode       string          `json:"CardCode"`
	CardName       string          `json:"CardName"`
	DocumentStatus string          `json:"DocumentStatus"`
	Cancelled      string          `json:"Cancelled"`
	Comments       string          `json:"Comments"`
	DocumentLines  []linePayload   `json:"DocumentLines"`
}

// linePayload carries only the back-reference fields of a document line;
// everything else on the wire is ignored.
type linePayload struct {
	BaseType  int    `json:"BaseType"`
	BaseEntry *int64 `json:"BaseEntry"`
}

// headerSelectFields is the field list requested for list queries. Lines are
// only available on single-document fetches.
var headerSelectFields = []string{
	"DocEntry", "DocNum", "DocDate", "DocTotal",
	"CardCode", "CardName", "DocumentStatus", "Cancelled", "Comments",
}

// collectionKinds maps remote collections to document kinds.
var collectionKinds = map[string]lineage.DocumentKind{
	lineage.CollectionQuotations:    lineage.KindQuote,
	lineage.CollectionOrders:        lineage.KindOrder,
	lineage.CollectionDeliveryNotes: lineage.KindDelivery,
}

func (p *documentPayload) toDomain(collection string) lineage.Document {
	doc := lineage.Document{
		Kind:      collectionKinds[collection],
		DocEntry:  p.DocEntry,
		DocNum:    p.DocNum,
		DocDate:   parseDocDate(p.DocDate),
		DocTotal:  p.DocTotal,
		CardCode:  p.CardCode,
		CardName:  p.CardName,
		Status:    p.DocumentStatus,
		Cancelled: p.Cancelled,
		Comments:  p.Comments,
	}
	for _, line := range p.DocumentLines {
		doc.Lines = append(doc.Lines, lineage.DocumentLine{
			BaseType:  line.BaseType,
			BaseEntry: line.BaseEntry,
		})
	}
	return doc
}

// parseDocDate accepts both the date-only and the timestamped forms the
// store emits for DocDate.
func parseDocDate(s string) time.Time {
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
