package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erp/doclink/internal/domain/lineage"
	"github.com/erp/doclink/internal/infrastructure/persistence/models"
)

func setupSummaryTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.DeliverySummaryModel{})
	require.NoError(t, err)

	return db
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestGormSummaryRepository_Upsert(t *testing.T) {
	db := setupSummaryTestDB(t)
	repo := NewGormSummaryRepository(db)
	ctx := context.Background()

	t.Run("inserts a new summary", func(t *testing.T) {
		err := repo.Upsert(ctx, &lineage.DeliverySummary{
			DocNum:    1001,
			Delivered: money(t, "300.00"),
			Pending:   money(t, "200.00"),
			UpdatedAt: time.Now(),
		})
		require.NoError(t, err)

		found, err := repo.FindFresh(ctx, 1001, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.Delivered.Equal(money(t, "300.00")))
		assert.True(t, found.Pending.Equal(money(t, "200.00")))
	})

	t.Run("second upsert for the same key wins", func(t *testing.T) {
		err := repo.Upsert(ctx, &lineage.DeliverySummary{
			DocNum:    1001,
			Delivered: money(t, "500.00"),
			Pending:   money(t, "0.00"),
			UpdatedAt: time.Now(),
		})
		require.NoError(t, err)

		found, err := repo.FindFresh(ctx, 1001, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.Delivered.Equal(money(t, "500.00")))
		assert.True(t, found.Pending.Equal(money(t, "0.00")))

		var count int64
		require.NoError(t, db.Model(&models.DeliverySummaryModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "upsert must not duplicate rows")
	})
}

func TestGormSummaryRepository_FindFresh(t *testing.T) {
	db := setupSummaryTestDB(t)
	repo := NewGormSummaryRepository(db)
	ctx := context.Background()

	t.Run("unknown key returns nil without error", func(t *testing.T) {
		found, err := repo.FindFresh(ctx, 9999, time.Hour)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("stale entry is not trusted", func(t *testing.T) {
		err := repo.Upsert(ctx, &lineage.DeliverySummary{
			DocNum:    2001,
			Delivered: money(t, "100.00"),
			Pending:   money(t, "50.00"),
			UpdatedAt: time.Now().Add(-13 * time.Hour),
		})
		require.NoError(t, err)

		found, err := repo.FindFresh(ctx, 2001, 12*time.Hour)
		require.NoError(t, err)
		assert.Nil(t, found, "entries older than the freshness window are ignored")
	})

	t.Run("entry inside the freshness window is returned", func(t *testing.T) {
		err := repo.Upsert(ctx, &lineage.DeliverySummary{
			DocNum:    2002,
			Delivered: money(t, "100.00"),
			Pending:   money(t, "50.00"),
			UpdatedAt: time.Now().Add(-11 * time.Hour),
		})
		require.NoError(t, err)

		found, err := repo.FindFresh(ctx, 2002, 12*time.Hour)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, int64(2002), found.DocNum)
	})
}
