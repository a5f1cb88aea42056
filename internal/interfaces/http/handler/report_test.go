package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applineage "github.com/erp/doclink/internal/application/lineage"
)

func serveReport(t *testing.T, resolver applineage.QuoteResolver, payload string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	svc := applineage.NewSummaryService(resolver, nil, applineage.SummaryConfig{
		ScanPace: time.Millisecond,
	}, nil)
	NewReportHandler(svc).RegisterRoutes(api)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/delivered-summary", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func TestReportHandler_GetDeliveredSummary(t *testing.T) {
	t.Run("answers each requested number", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		w := serveReport(t, resolver, `{"doc_nums": [1001, 1002]}`)

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success bool `json:"success"`
			Data    struct {
				Items []struct {
					DocNum int64 `json:"doc_num"`
					OK     bool  `json:"ok"`
					Found  bool  `json:"found"`
				} `json:"items"`
				Truncated int `json:"truncated"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		require.Len(t, body.Data.Items, 2)
		assert.Equal(t, int64(1001), body.Data.Items[0].DocNum)
		assert.True(t, body.Data.Items[0].OK)
		assert.Zero(t, body.Data.Truncated)
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		w := serveReport(t, resolver, `{"doc_nums": []}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		w := serveReport(t, resolver, `{"doc_nums": [1001`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reports truncation past the batch cap", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}

		nums := make([]int64, 25)
		for i := range nums {
			nums[i] = int64(1000 + i)
		}
		payload, err := json.Marshal(map[string]any{"doc_nums": nums})
		require.NoError(t, err)

		w := serveReport(t, resolver, string(payload))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Items     []json.RawMessage `json:"items"`
				Truncated int               `json:"truncated"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Data.Items, applineage.MaxSummaryBatchSize)
		assert.Equal(t, 5, body.Data.Truncated)
	})
}
