package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/doclink/internal/domain/lineage"
)

// DeliverySummaryModel is the persistence model for the durable cache tier.
// One row per quote document number; only the numeric summary is stored,
// never the full document graph.
type DeliverySummaryModel struct {
	DocNum    int64           `gorm:"primaryKey;autoIncrement:false;column:doc_num"`
	Delivered decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Pending   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (DeliverySummaryModel) TableName() string {
	return "delivery_summaries"
}

// ToDomain converts the persistence model to a domain DeliverySummary.
func (m *DeliverySummaryModel) ToDomain() *lineage.DeliverySummary {
	return &lineage.DeliverySummary{
		DocNum:    m.DocNum,
		Delivered: m.Delivered,
		Pending:   m.Pending,
		UpdatedAt: m.UpdatedAt,
	}
}

// DeliverySummaryModelFromDomain builds the persistence model from a domain
// DeliverySummary.
func DeliverySummaryModelFromDomain(s *lineage.DeliverySummary) *DeliverySummaryModel {
	return &DeliverySummaryModel{
		DocNum:    s.DocNum,
		Delivered: s.Delivered,
		Pending:   s.Pending,
		UpdatedAt: s.UpdatedAt,
	}
}
