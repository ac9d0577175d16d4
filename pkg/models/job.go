package models

import "time"

// Job is a unit of engine work for one game, at one AnalysisKind,
// under one Report. At any instant a Job satisfies exactly one of:
// queued (Owner == nil), in-flight (Owner != nil, !IsComplete), or
// done (IsComplete). Ownership transfers only via the broker's atomic
// find-one-and-update (Acquire) or Abort; IsComplete is set only by
// the analysis sink and is monotonic.
type Job struct {
	ID          string
	GameID      GameId
	ReportID    *string // nil for jobs created outside the ingestion pipeline, if any
	Kind        AnalysisKind
	Precedence  int32
	Owner       *string // ApiUser.Key of the current holder, or nil if queued
	LastUpdated time.Time
	IsComplete  bool
}

// SecondsSinceCreated returns the whole-second age of the job measured
// against LastUpdated, per spec §4.2.
func (j *Job) SecondsSinceCreated(now time.Time) int64 {
	d := now.Sub(j.LastUpdated)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}
