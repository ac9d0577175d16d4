package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/pkg/sink"
)

// acquireHandler implements POST /acquire. 204 means "nothing for you
// right now, try again later"; the worker is expected to poll.
func (s *Server) acquireHandler(c *echo.Context) error {
	user, err := s.resolveApiUser(c)
	if err != nil {
		return mapError(err)
	}

	view, err := s.broker.Acquire(c.Request().Context(), user)
	if err != nil {
		if errors.Is(err, broker.ErrNoJobAvailable) {
			return c.NoContent(http.StatusNoContent)
		}
		return mapError(err)
	}
	return c.JSON(http.StatusOK, jobResponseFrom(*view))
}

// abortHandler implements POST /abort/:job_id. Always 204, whether or
// not the caller actually held the job.
func (s *Server) abortHandler(c *echo.Context) error {
	user, err := s.resolveApiUser(c)
	if err != nil {
		return mapError(err)
	}

	jobID := c.Param("job_id")
	if err := s.broker.Abort(c.Request().Context(), user, jobID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// analysisHandler implements POST /analysis/:job_id.
func (s *Server) analysisHandler(c *echo.Context) error {
	user, err := s.resolveApiUser(c)
	if err != nil {
		return mapError(err)
	}

	var body analysisReportDTO
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed analysis report")
	}

	jobID := c.Param("job_id")
	sub := sink.Submission{Plies: body.Analysis}
	if err := s.sink.Submit(c.Request().Context(), user, jobID, sub); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// keyHandler implements GET /key/:key, an unauthenticated credential
// probe: 200 with no body if the key resolves to an ApiUser, 404
// otherwise. Used by operators to sanity-check a minted key.
func (s *Server) keyHandler(c *echo.Context) error {
	key := c.Param("key")
	if _, err := s.store.FindApiUserByKey(c.Request().Context(), key); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown key")
	}
	return c.NoContent(http.StatusOK)
}

// statusHandler implements GET /status. The bearer credential is
// optional here: present and valid, "key" is set to "active"; otherwise
// "key" is omitted.
func (s *Server) statusHandler(c *echo.Context) error {
	ctx := c.Request().Context()

	userStatus, err := s.broker.Status(ctx, models.UserAnalysis)
	if err != nil {
		return mapError(err)
	}
	systemStatus, err := s.broker.Status(ctx, models.SystemAnalysis)
	if err != nil {
		return mapError(err)
	}
	deepStatus, err := s.broker.Status(ctx, models.Deep)
	if err != nil {
		return mapError(err)
	}

	resp := statusResponseDTO{
		Analysis: analysisStatusDTO{
			User:   qStatusDTO(userStatus),
			System: qStatusDTO(systemStatus),
			Deep:   qStatusDTO(deepStatus),
		},
	}

	if _, err := s.resolveApiUser(c); err == nil {
		active := keyStatusActive
		resp.Key = &active
	}

	return c.JSON(http.StatusOK, resp)
}
