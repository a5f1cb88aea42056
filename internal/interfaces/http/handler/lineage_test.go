package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/doclink/internal/domain/lineage"
)

// stubResolver returns a canned trace or error and records the override it
// was called with.
type stubResolver struct {
	trace        *lineage.TraceResult
	err          error
	lastOverride *lineage.WindowOverride
}

func (s *stubResolver) ResolveQuoteLineage(_ context.Context, _ int64, override *lineage.WindowOverride) (*lineage.TraceResult, error) {
	s.lastOverride = override
	if s.err != nil {
		return nil, s.err
	}
	return s.trace, nil
}

func okTrace() *lineage.TraceResult {
	quote := &lineage.Document{
		Kind:     lineage.KindQuote,
		DocEntry: 501,
		DocNum:   1001,
		DocTotal: decimal.RequireFromString("500.00"),
		CardCode: "C100",
	}
	return &lineage.TraceResult{
		OK:    true,
		Quote: quote,
		Totals: lineage.Totals{
			Quoted:    decimal.RequireFromString("500.00"),
			Delivered: decimal.RequireFromString("300.00"),
			Pending:   decimal.RequireFromString("200.00"),
		},
		ResolvedAt: time.Now(),
	}
}

func serveLineage(resolver *stubResolver, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewLineageHandler(resolver).RegisterRoutes(api)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestLineageHandler_GetQuoteLineage(t *testing.T) {
	t.Run("returns the resolved trace", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		w := serveLineage(resolver, "/api/v1/quotes/1001/lineage")

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success bool `json:"success"`
			Data    struct {
				OK     bool `json:"ok"`
				Totals struct {
					Pending string `json:"pending"`
				} `json:"totals"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.True(t, body.Data.OK)
		assert.Equal(t, "200", body.Data.Totals.Pending)
		assert.Nil(t, resolver.lastOverride)
	})

	t.Run("passes window overrides through", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		serveLineage(resolver, "/api/v1/quotes/1001/lineage?from=2024-01-01&to=2024-03-01")

		require.NotNil(t, resolver.lastOverride)
		assert.Equal(t, "2024-01-01", resolver.lastOverride.From)
		assert.Equal(t, "2024-03-01", resolver.lastOverride.To)
	})

	t.Run("rejects a non-numeric quote number", func(t *testing.T) {
		resolver := &stubResolver{trace: okTrace()}
		w := serveLineage(resolver, "/api/v1/quotes/abc/lineage")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps a not-found trace to 404", func(t *testing.T) {
		resolver := &stubResolver{trace: lineage.NewNotFoundResult()}
		w := serveLineage(resolver, "/api/v1/quotes/9999/lineage")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("maps remote timeout to 504", func(t *testing.T) {
		resolver := &stubResolver{err: lineage.ErrTimeout}
		w := serveLineage(resolver, "/api/v1/quotes/1001/lineage")

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UPSTREAM_TIMEOUT")
	})

	t.Run("maps remote failure to 502", func(t *testing.T) {
		resolver := &stubResolver{err: lineage.ErrRemote}
		w := serveLineage(resolver, "/api/v1/quotes/1001/lineage")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UPSTREAM")
	})

	t.Run("maps auth failure to 502 with its own code", func(t *testing.T) {
		resolver := &stubResolver{err: lineage.ErrAuthFailed}
		w := serveLineage(resolver, "/api/v1/quotes/1001/lineage")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UPSTREAM_AUTH")
	})
}
