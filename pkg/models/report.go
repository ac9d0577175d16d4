package models

import "time"

// Origin is where a review request came from. It determines a Report's
// (and in turn its Jobs') scheduling precedence.
type Origin string

const (
	OriginModerator   Origin = "moderator"
	OriginRandom      Origin = "random"
	OriginLeaderboard Origin = "leaderboard"
	OriginTournament  Origin = "tournament"
)

// Precedence returns the fixed scheduling priority for an origin.
// Higher values are claimed first. Unknown origins get priority 0,
// which sorts after every known origin but is still a valid (if
// unlikely to win a contested acquire) queue position.
func (o Origin) Precedence() int32 {
	switch o {
	case OriginModerator:
		return 1_000_000
	case OriginLeaderboard:
		return 1_000
	case OriginTournament:
		return 100
	case OriginRandom:
		return 10
	default:
		return 0
	}
}

// ReportType distinguishes which downstream consumer a report targets.
// The aggregator only ever ships to Irwin in this core, but the field
// is carried through so other consumers can be added without a model
// change.
type ReportType string

const (
	ReportIrwin  ReportType = "irwin"
	ReportCR     ReportType = "cr"
	ReportPGNSPY ReportType = "pgnspy"
)

// Report is a review request spanning one player and N games. Its list
// of game ids is immutable after creation; SentDownstream transitions
// false→true exactly once, via the aggregator's compare-and-swap.
type Report struct {
	ID             string
	User           UserId
	RequestedAt    time.Time
	CompletedAt    *time.Time
	Origin         Origin
	Type           ReportType
	GameIDs        []GameId
	SentDownstream bool
}
