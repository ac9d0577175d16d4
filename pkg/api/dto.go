package api

import (
	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/models"
)

// fishnetInfo is the {version, apikey} envelope every worker request
// carries, grounded on the upstream fishnet wire protocol this broker
// speaks.
type fishnetInfo struct {
	Version string `json:"version"`
	ApiKey  string `json:"apikey"`
}

type fishnetRequest struct {
	Fishnet fishnetInfo `json:"fishnet"`
}

type nodesDTO struct {
	Nnue      int64 `json:"nnue"`
	Classical int64 `json:"classical"`
}

type workInfoDTO struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Nodes   nodesDTO `json:"nodes"`
	Depth   *int32   `json:"depth,omitempty"`
	MultiPV *int32   `json:"multipv,omitempty"`
}

// jobResponseDTO is the body returned from a successful /acquire.
type jobResponseDTO struct {
	Work          workInfoDTO `json:"work"`
	GameID        string      `json:"game_id"`
	Position      string      `json:"position"`
	Variant       string      `json:"variant"`
	Moves         string      `json:"moves"` // space-separated UCI
	SkipPositions []int32     `json:"skipPositions"`
}

func jobResponseFrom(v broker.JobView) jobResponseDTO {
	var depth *int32
	if v.DepthIsSet {
		d := v.Depth
		depth = &d
	}
	return jobResponseDTO{
		Work: workInfoDTO{
			Type: "analysis",
			ID:   v.JobID,
			Nodes: nodesDTO{
				Nnue:      v.Nodes.Nnue,
				Classical: v.Nodes.Classical,
			},
			Depth:   depth,
			MultiPV: v.MultiPV,
		},
		GameID:        string(v.GameID),
		Position:      v.StartingFEN,
		Variant:       v.Variant,
		Moves:         joinUCI(v.Moves),
		SkipPositions: v.SkipPositions,
	}
}

func joinUCI(moves []string) string {
	out := ""
	for i, m := range moves {
		if i > 0 {
			out += " "
		}
		out += m
	}
	return out
}

type stockfishTypeDTO struct {
	Flavor string `json:"flavor"`
}

type analysisReportDTO struct {
	Fishnet   fishnetInfo            `json:"fishnet"`
	Stockfish stockfishTypeDTO       `json:"stockfish"`
	Analysis  []*models.PlyAnalysis  `json:"analysis"`
}

type qStatusDTO struct {
	Acquired uint64 `json:"acquired"`
	Queued   uint64 `json:"queued"`
	Oldest   uint64 `json:"oldest"`
}

type analysisStatusDTO struct {
	User   qStatusDTO `json:"user"`
	System qStatusDTO `json:"system"`
	Deep   qStatusDTO `json:"deep"`
}

// keyStatus is the tri-state spec.md §4.7/§7 defines for /status's
// "key" field. v1 has no deactivation mechanism, so a resolving key is
// always keyStatusActive; Inactive and Unknown are named for forward
// compatibility but nothing in this core produces them yet.
type keyStatus string

const (
	keyStatusActive   keyStatus = "active"
	keyStatusInactive keyStatus = "inactive"
	keyStatusUnknown  keyStatus = "unknown"
)

type statusResponseDTO struct {
	Analysis analysisStatusDTO `json:"analysis"`
	Key      *keyStatus        `json:"key,omitempty"`
}
