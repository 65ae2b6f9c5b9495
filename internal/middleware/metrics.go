package middleware

import (
	"errors"
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/metrics"
	"github.com/labstack/echo/v4"
)

// Metrics records the status code of every response
func Metrics(recorder metrics.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			recorder.RecordHTTPStatus(status)
			return err
		}
	}
}
