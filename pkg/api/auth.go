package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/models"
)

// ErrUnauthorized covers both a missing credential and one that
// resolves to no ApiUser, per §4.3.
var ErrUnauthorized = errors.New("api: unauthorized")

const bearerPrefix = "Bearer "

// resolveApiUser authenticates a request per §4.3: preferably the
// Authorization header, falling back to the legacy fishnet.apikey body
// field. The request body is restored after peeking so downstream
// handlers can still bind it.
func (s *Server) resolveApiUser(c *echo.Context) (*models.ApiUser, error) {
	key, err := extractBearerKey(c)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindApiUserByKey(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func extractBearerKey(c *echo.Context) (string, error) {
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		key := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
		if key != "" {
			return key, nil
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", ErrUnauthorized
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(body))

	var legacy fishnetRequest
	if err := json.Unmarshal(body, &legacy); err != nil || legacy.Fishnet.ApiKey == "" {
		return "", ErrUnauthorized
	}
	return legacy.Fishnet.ApiKey, nil
}
