package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/lichess-org/deepq/pkg/sink"
)

// mapError maps a domain or store error to an HTTP error response. The
// 403 kind named in §4.3/§7 has no concrete trigger in v1: acquire's
// permitted-kind filter makes the question moot there, and abort/
// analysis gate on job ownership (§4.4.2, §4.5), which already implies
// kind permission since a job can only be owned by whoever acquired it.
func mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, sink.ErrJobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	default:
		slog.Error("api: unexpected error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
