package broker

import "github.com/lichess-org/deepq/pkg/models"

// standardStartingFEN is the fixed starting position every acquire reply
// carries. Non-standard variants aren't modeled yet; see the open
// question this preserves in DESIGN.md.
const standardStartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// NodeBudget is the nnue/classical node split a worker is asked to
// spend per position, keyed entirely off the job's AnalysisKind.
type NodeBudget struct {
	Nnue      int64
	Classical int64
}

// KindParams is the fixed, kind-derived set of engine parameters
// attached to every acquired Job, per §4.4.1's table.
type KindParams struct {
	Nodes         NodeBudget
	MultiPV       *int32
	Depth         *int32
	SkipPositions []int32
}

func intPtr32(v int32) *int32 { return &v }

func rangeInt32(lo, hi int32) []int32 {
	out := make([]int32, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// paramsByKind is the fixed table from §4.4.1.
var paramsByKind = map[models.AnalysisKind]KindParams{
	models.UserAnalysis: {
		Nodes:         NodeBudget{Nnue: 2_250_000, Classical: 4_050_000},
		MultiPV:       nil,
		Depth:         nil,
		SkipPositions: rangeInt32(0, 9),
	},
	models.SystemAnalysis: {
		Nodes:         NodeBudget{Nnue: 2_250_000, Classical: 4_050_000},
		MultiPV:       nil,
		Depth:         nil,
		SkipPositions: rangeInt32(0, 9),
	},
	models.Deep: {
		Nodes:         NodeBudget{Nnue: 2_500_000, Classical: 4_500_000},
		MultiPV:       intPtr32(5),
		Depth:         nil,
		SkipPositions: []int32{},
	},
}

// ParamsFor returns the fixed engine parameters for kind. Every
// AnalysisKind models.ValidKind accepts has an entry here.
func ParamsFor(kind models.AnalysisKind) KindParams {
	return paramsByKind[kind]
}
