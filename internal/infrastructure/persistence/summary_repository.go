package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/doclink/internal/domain/lineage"
	"github.com/erp/doclink/internal/infrastructure/persistence/models"
)

// GormSummaryRepository implements lineage.SummaryRepository on GORM.
// The table is a shared, possibly multi-writer resource: Upsert is
// last-writer-wins by key, no transactional isolation is assumed.
type GormSummaryRepository struct {
	db *gorm.DB
}

// NewGormSummaryRepository creates a new summary repository.
func NewGormSummaryRepository(db *gorm.DB) *GormSummaryRepository {
	return &GormSummaryRepository{db: db}
}

// Upsert writes a summary, replacing any existing row for the same
// document number.
func (r *GormSummaryRepository) Upsert(ctx context.Context, summary *lineage.DeliverySummary) error {
	model := models.DeliverySummaryModelFromDomain(summary)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_num"}},
			DoUpdates: clause.AssignmentColumns([]string{"delivered", "pending", "updated_at"}),
		}).
		Create(model).Error
}

// FindFresh returns the stored summary for a document number when it is
// younger than the freshness window, (nil, nil) otherwise. Stale rows are
// left in place; the next Upsert overwrites them.
func (r *GormSummaryRepository) FindFresh(ctx context.Context, docNum int64, within time.Duration) (*lineage.DeliverySummary, error) {
	var model models.DeliverySummaryModel
	err := r.db.WithContext(ctx).First(&model, "doc_num = ?", docNum).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Since(model.UpdatedAt) > within {
		return nil, nil
	}
	return model.ToDomain(), nil
}

// Ensure GormSummaryRepository implements the domain repository.
var _ lineage.SummaryRepository = (*GormSummaryRepository)(nil)
