package models

import (
	"crypto/rand"
)

// keyAlphabet matches the upstream generator's rand::distributions::
// Alphanumeric, which draws uniformly from [A-Za-z0-9].
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// apiKeyLength is the upstream key length (src/fishnet/model.rs's
// `random_alphanumeric_string(7)`), kept short because it's meant to be
// typed into a worker's config file by hand.
const apiKeyLength = 7

// GenerateApiKey mints a new bearer credential: a short alphanumeric
// string, not a UUID, matching the upstream generator this key format
// is ground-truthed on.
func GenerateApiKey() (string, error) {
	buf := make([]byte, apiKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	key := make([]byte, apiKeyLength)
	for i, b := range buf {
		key[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(key), nil
}

// AnalysisKind is the kind of engine work a Job requests and the
// permission an ApiUser needs in order to claim it.
type AnalysisKind string

// Analysis kinds, in the fixed order the kind-derived parameter table
// (broker package) keys off of.
const (
	UserAnalysis   AnalysisKind = "user_analysis"
	SystemAnalysis AnalysisKind = "system_analysis"
	Deep           AnalysisKind = "deep"
)

// ValidKind reports whether k is one of the three known analysis kinds.
func ValidKind(k AnalysisKind) bool {
	switch k {
	case UserAnalysis, SystemAnalysis, Deep:
		return true
	default:
		return false
	}
}

// ApiUser is a worker identity. Its Key is the sole credential; it is
// minted out-of-band (cmd mint-key) and never mutated after creation.
type ApiUser struct {
	ID          string
	Key         string
	User        *UserId // optional binding to a Lichess account
	Name        string
	Permissions []AnalysisKind // non-empty subset of {UserAnalysis, SystemAnalysis, Deep}
}

// Permits reports whether this ApiUser may claim jobs of the given kind.
func (u *ApiUser) Permits(kind AnalysisKind) bool {
	for _, p := range u.Permissions {
		if p == kind {
			return true
		}
	}
	return false
}
