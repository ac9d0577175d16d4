// Package models defines the durable domain entities shared by the
// ingestion pipeline, job broker, analysis sink, and aggregator:
// ApiUser, Report, Game, Job, and GameAnalysis.
package models

import "strings"

// UserId identifies a Lichess player. Always lower-cased before it is
// persisted or compared, per spec.
type UserId string

// NormalizeUserId lower-cases a raw user id for storage/comparison.
func NormalizeUserId(raw string) UserId {
	return UserId(strings.ToLower(strings.TrimSpace(raw)))
}

// GameId identifies a Lichess game and doubles as the Game entity's
// primary key. Always lower-cased before it is persisted or compared.
type GameId string

// NormalizeGameId lower-cases a raw game id for storage/comparison.
func NormalizeGameId(raw string) GameId {
	return GameId(strings.ToLower(strings.TrimSpace(raw)))
}
