package models

import (
	"encoding/json"
	"fmt"
)

// Score is an engine evaluation: centipawns xor mate-in-N, never both.
// Exactly one of Cp/Mate is non-nil.
type Score struct {
	Cp   *int
	Mate *int
}

// CpScore builds a centipawn Score.
func CpScore(cp int) Score { return Score{Cp: &cp} }

// MateScore builds a mate-in-N Score.
func MateScore(n int) Score { return Score{Mate: &n} }

// IsMate reports whether this is a mate score.
func (s Score) IsMate() bool { return s.Mate != nil }

// Flip negates the score, for converting a side-to-move-relative
// evaluation into a white-relative one on odd plies.
func (s Score) Flip() Score {
	if s.Mate != nil {
		m := -*s.Mate
		return Score{Mate: &m}
	}
	if s.Cp != nil {
		cp := -*s.Cp
		return Score{Cp: &cp}
	}
	return s
}

func (s Score) MarshalJSON() ([]byte, error) {
	switch {
	case s.Cp != nil:
		return json.Marshal(struct {
			Cp int `json:"cp"`
		}{*s.Cp})
	case s.Mate != nil:
		return json.Marshal(struct {
			Mate int `json:"mate"`
		}{*s.Mate})
	default:
		return nil, fmt.Errorf("models: empty Score has neither cp nor mate")
	}
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var raw struct {
		Cp   *int `json:"cp"`
		Mate *int `json:"mate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if (raw.Cp == nil) == (raw.Mate == nil) {
		return fmt.Errorf("models: Score must have exactly one of cp, mate")
	}
	s.Cp, s.Mate = raw.Cp, raw.Mate
	return nil
}

// PlyKind discriminates the four shapes a single ply's analysis can
// take, depending on what the worker was asked for and whether it
// skipped the position.
type PlyKind string

const (
	PlyMatrix  PlyKind = "matrix"
	PlyBest    PlyKind = "best"
	PlySkipped PlyKind = "skipped"
	PlyEmpty   PlyKind = "empty"
)

// PlyAnalysis is one element of a GameAnalysis.Plies slice. It is a
// tagged union over PlyKind; only the fields for Kind are populated.
//
//   - Matrix: full multi-PV grid. Pv and Score are depth-major: each
//     element is the set of lines considered at one search depth, so
//     len(Pv) == len(Score) == Depth (approximately; engines don't
//     always report every intermediate depth, so callers must not
//     assume the outer slice is dense).
//   - Best: single best line.
//   - Skipped: the worker declined to analyze this ply.
//   - Empty: placeholder depth/score with no principal variation.
type PlyAnalysis struct {
	Kind PlyKind

	// Matrix fields.
	MatrixPv    [][][]string // [depth][multipv] -> UCI moves, may be nil per slot
	MatrixScore [][]*Score   // [depth][multipv] -> score, may be nil per slot
	Nps         *int64

	// Best fields (and Depth/Nodes/Time shared with Matrix; Score
	// shared with Empty via BestScore).
	Pv        []string
	BestScore *Score

	Depth int32
	Nodes int64
	Time  int64
}

// NewSkippedPly returns the Skipped variant.
func NewSkippedPly() PlyAnalysis { return PlyAnalysis{Kind: PlySkipped} }

// NewEmptyPly returns the Empty variant: a depth/score pair with no PV.
func NewEmptyPly(depth int32, score Score) PlyAnalysis {
	return PlyAnalysis{Kind: PlyEmpty, Depth: depth, BestScore: &score}
}

// NewBestPly returns the Best variant: a single principal variation.
func NewBestPly(pv []string, depth int32, score Score, timeMs, nodes int64) PlyAnalysis {
	return PlyAnalysis{
		Kind: PlyBest, Pv: pv, Depth: depth, BestScore: &score,
		Time: timeMs, Nodes: nodes,
	}
}

// NewMatrixPly returns the Matrix variant: a full multi-PV grid.
func NewMatrixPly(pv [][][]string, score [][]*Score, depth int32, timeMs, nodes int64, nps *int64) PlyAnalysis {
	return PlyAnalysis{
		Kind: PlyMatrix, MatrixPv: pv, MatrixScore: score, Depth: depth,
		Time: timeMs, Nodes: nodes, Nps: nps,
	}
}

// TopScore returns the score the aggregator should extract for this
// ply: the Matrix variant's deepest, first-line (index 0) score, or
// the Best variant's single score. Skipped and Empty are never
// extractable — even though Empty carries a score field, the
// downstream extraction rule treats it the same as Skipped — and a
// Matrix/Best whose slot came back nil also yields ok == false. The
// caller must treat the enclosing GameAnalysis as incomplete in every
// ok == false case.
func (p PlyAnalysis) TopScore() (Score, bool) {
	switch p.Kind {
	case PlyBest:
		if p.BestScore == nil {
			return Score{}, false
		}
		return *p.BestScore, true
	case PlyMatrix:
		if len(p.MatrixScore) == 0 {
			return Score{}, false
		}
		deepest := p.MatrixScore[len(p.MatrixScore)-1]
		if len(deepest) == 0 || deepest[0] == nil {
			return Score{}, false
		}
		return *deepest[0], true
	default:
		return Score{}, false
	}
}

type plyAnalysisWire struct {
	Skipped bool       `json:"skipped,omitempty"`
	Pv      [][][]string `json:"pv,omitempty"`
	Score   [][]*Score `json:"score,omitempty"`
	BestPv  []string   `json:"-"`
	Depth   int32      `json:"depth,omitempty"`
	Nodes   int64      `json:"nodes,omitempty"`
	Time    int64      `json:"time,omitempty"`
	Nps     *int64     `json:"nps,omitempty"`
}

// MarshalJSON renders the variant the way the fishnet wire protocol
// expects: Matrix carries pv/score as nested arrays, Best carries a
// flat array of UCI moves as pv with a single score, Skipped is {"skipped":true},
// Empty is {"depth":...,"score":...}.
func (p PlyAnalysis) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PlySkipped:
		return json.Marshal(struct {
			Skipped bool `json:"skipped"`
		}{true})
	case PlyEmpty:
		if p.BestScore == nil {
			return nil, fmt.Errorf("models: Empty ply missing score")
		}
		return json.Marshal(struct {
			Depth int32 `json:"depth"`
			Score Score `json:"score"`
		}{p.Depth, *p.BestScore})
	case PlyBest:
		if p.BestScore == nil {
			return nil, fmt.Errorf("models: Best ply missing score")
		}
		return json.Marshal(struct {
			Pv    []string `json:"pv"`
			Depth int32    `json:"depth"`
			Score Score    `json:"score"`
			Time  int64    `json:"time"`
			Nodes int64    `json:"nodes"`
			Nps   *int64   `json:"nps,omitempty"`
		}{p.Pv, p.Depth, *p.BestScore, p.Time, p.Nodes, p.Nps})
	case PlyMatrix:
		return json.Marshal(struct {
			Pv    [][][]string `json:"pv"`
			Score [][]*Score   `json:"score"`
			Depth int32        `json:"depth"`
			Time  int64        `json:"time"`
			Nodes int64        `json:"nodes"`
			Nps   *int64       `json:"nps,omitempty"`
		}{p.MatrixPv, p.MatrixScore, p.Depth, p.Time, p.Nodes, p.Nps})
	default:
		return nil, fmt.Errorf("models: PlyAnalysis has unknown kind %q", p.Kind)
	}
}

// UnmarshalJSON recovers the variant from shape: a "skipped" field
// means Skipped; a "pv" field that's a nested array means Matrix; a
// "pv" field that's a flat array means Best; no "pv" field means Empty.
func (p *PlyAnalysis) UnmarshalJSON(data []byte) error {
	var probe struct {
		Skipped bool            `json:"skipped"`
		Pv      json.RawMessage `json:"pv"`
		Depth   int32           `json:"depth"`
		Time    int64           `json:"time"`
		Nodes   int64           `json:"nodes"`
		Nps     *int64          `json:"nps"`
		Score   json.RawMessage `json:"score"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Skipped {
		*p = NewSkippedPly()
		return nil
	}
	if len(probe.Pv) == 0 {
		var score Score
		if err := json.Unmarshal(probe.Score, &score); err != nil {
			return fmt.Errorf("models: empty ply: %w", err)
		}
		*p = NewEmptyPly(probe.Depth, score)
		return nil
	}
	var asFlat []string
	if err := json.Unmarshal(probe.Pv, &asFlat); err == nil {
		var score Score
		if err := json.Unmarshal(probe.Score, &score); err != nil {
			return fmt.Errorf("models: best ply: %w", err)
		}
		*p = NewBestPly(asFlat, probe.Depth, score, probe.Time, probe.Nodes)
		return nil
	}
	var nestedPv [][][]string
	if err := json.Unmarshal(probe.Pv, &nestedPv); err != nil {
		return fmt.Errorf("models: matrix ply: pv shape: %w", err)
	}
	var nestedScore [][]*Score
	if err := json.Unmarshal(probe.Score, &nestedScore); err != nil {
		return fmt.Errorf("models: matrix ply: score shape: %w", err)
	}
	*p = NewMatrixPly(nestedPv, nestedScore, probe.Depth, probe.Time, probe.Nodes, probe.Nps)
	return nil
}

// NodeBudget is the split between NNUE and classical evaluation node
// counts a worker was asked to spend per position.
type NodeBudget struct {
	Nnue      int64
	Classical int64
}

// GameAnalysis is the per-game result of one Job: a sparse slice of
// per-ply evaluations, one slot per half-move of the source Game, plus
// the parameters the worker was asked to honor. A nil slot means that
// ply has not been reported yet; GameAnalysis.Complete reports whether
// every slot has been filled.
type GameAnalysis struct {
	ID             string
	JobID          string
	GameID         GameId
	SourceID       UserId
	Plies          []*PlyAnalysis
	RequestedPVs   *int32
	RequestedDepth *int32
	RequestedNodes NodeBudget
}

// Complete reports whether every ply slot has been filled.
func (g *GameAnalysis) Complete() bool {
	if len(g.Plies) == 0 {
		return false
	}
	for _, p := range g.Plies {
		if p == nil {
			return false
		}
	}
	return true
}
