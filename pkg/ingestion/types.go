// Package ingestion turns an incoming review request into the Game,
// Report, and Job rows the rest of the system operates on.
package ingestion

import "github.com/lichess-org/deepq/pkg/models"

// GameInput is one game as carried in a ReviewRequest: a SAN move list
// that has not yet been validated or converted to UCI.
type GameInput struct {
	ID    models.GameId
	White *models.UserId
	Black *models.UserId
	Emts  []int
	Moves []string // SAN notation, in play order
}

// ReviewRequest is the unit of work the stream ingester hands to the
// pipeline: one report covering N games for one user.
type ReviewRequest struct {
	Origin models.Origin
	User   models.UserId
	Games  []GameInput
}
