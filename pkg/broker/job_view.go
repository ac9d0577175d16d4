package broker

import "github.com/lichess-org/deepq/pkg/models"

// JobView is what an acquire reply hands to a worker: enough to run the
// engine and report back, without exposing store internals like owner
// or report id.
type JobView struct {
	JobID           string
	GameID          models.GameId
	StartingFEN     string
	Variant         string
	Moves           []string
	SkipPositions   []int32
	Nodes           NodeBudget
	MultiPV         *int32
	Depth           int32 // kept zero-value-omitted by the API layer when nil in the table
	DepthIsSet      bool
	Kind            models.AnalysisKind
}

func newJobView(job *models.Job, game *models.Game) JobView {
	params := ParamsFor(job.Kind)
	v := JobView{
		JobID:         job.ID,
		GameID:        game.ID,
		StartingFEN:   standardStartingFEN,
		Variant:       "standard",
		Moves:         game.Moves,
		SkipPositions: params.SkipPositions,
		Nodes:         params.Nodes,
		MultiPV:       params.MultiPV,
		Kind:          job.Kind,
	}
	if params.Depth != nil {
		v.Depth = *params.Depth
		v.DepthIsSet = true
	}
	return v
}
