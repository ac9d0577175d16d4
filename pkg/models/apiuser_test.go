package models

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alphanumericKey = regexp.MustCompile(`^[A-Za-z0-9]{7}$`)

func TestGenerateApiKeyShapeMatchesUpstream(t *testing.T) {
	key, err := GenerateApiKey()
	require.NoError(t, err)
	assert.Regexp(t, alphanumericKey, key)
}

func TestGenerateApiKeyVariesAcrossCalls(t *testing.T) {
	a, err := GenerateApiKey()
	require.NoError(t, err)
	b, err := GenerateApiKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestApiUserPermits(t *testing.T) {
	u := &ApiUser{Permissions: []AnalysisKind{UserAnalysis}}
	assert.True(t, u.Permits(UserAnalysis))
	assert.False(t, u.Permits(Deep))
}
