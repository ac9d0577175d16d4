package aggregator

import "github.com/lichess-org/deepq/pkg/models"

// ScorePayload is one ply's extracted, white-relative evaluation.
type ScorePayload struct {
	Cp   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

// GamePayload is one game's slice of the downstream report.
type GamePayload struct {
	ID       string         `json:"_id"`
	White    string         `json:"white"`
	Black    string         `json:"black"`
	Pgn      []string       `json:"pgn"`
	Emts     []int          `json:"emts,omitempty"`
	Analysis []ScorePayload `json:"analysis"`
	Analysed bool           `json:"analysed"`
}

// ReportPayload is the full body POSTed to the downstream receiver.
type ReportPayload struct {
	PlayerID          string        `json:"playerId"`
	Games             []GamePayload `json:"games"`
	AnalysedPositions []int         `json:"analysedPositions"`
}

// extractGameScores applies §6.2's evaluation extraction rule to one
// game's analysis: Matrix takes the deepest score from the first PV
// column, Best takes its own score, and anything Skipped/Empty/nil
// makes the whole game (and therefore the report) ineligible to ship.
// Odd-indexed plies are sign-flipped to White's perspective.
func extractGameScores(plies []*models.PlyAnalysis) ([]ScorePayload, error) {
	out := make([]ScorePayload, len(plies))
	for i, p := range plies {
		if p == nil {
			return nil, ErrIncompleteAnalysis
		}
		score, ok := p.TopScore()
		if !ok {
			return nil, ErrIncompleteAnalysis
		}
		if i%2 == 1 {
			score = score.Flip()
		}
		out[i] = ScorePayload{Cp: score.Cp, Mate: score.Mate}
	}
	return out, nil
}

// userOrEmpty renders an optional UserId as the empty string, since the
// downstream payload's white/black fields are plain strings.
func userOrEmpty(u *models.UserId) string {
	if u == nil {
		return ""
	}
	return string(*u)
}
