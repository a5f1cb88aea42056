package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping() error { return s.err }

func serveHealth(db Pinger) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewSystemHandler(db).RegisterRoutes(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("reports ok when the database responds", func(t *testing.T) {
		w := serveHealth(&stubPinger{})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("degrades when the database is unreachable", func(t *testing.T) {
		w := serveHealth(&stubPinger{err: errors.New("connection refused")})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	})

	t.Run("works without a durable tier", func(t *testing.T) {
		w := serveHealth(nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})
}
