package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type statusRecorder struct {
	metrics.NoOp
	statuses []int
}

func (s *statusRecorder) RecordHTTPStatus(code int) {
	s.statuses = append(s.statuses, code)
}

func TestMetrics_RecordsStatus(t *testing.T) {
	e := echo.New()
	rec := &statusRecorder{}

	handlers := []echo.HandlerFunc{
		func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "missing") },
		func(c echo.Context) error { return errors.New("boom") },
	}
	for _, h := range handlers {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		_ = Metrics(rec)(h)(c)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError}, rec.statuses)
}
