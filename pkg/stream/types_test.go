package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lichess-org/deepq/pkg/models"
)

func TestWireLineKeepAliveIsNotAReviewRequest(t *testing.T) {
	var line wireLine
	require.NoError(t, json.Unmarshal([]byte(`{"keepAlive":true}`), &line))
	assert.False(t, line.isReviewRequest())
}

func TestWireLineReviewRequestParsesGames(t *testing.T) {
	raw := `{
		"t": "review",
		"origin": "moderator",
		"user": {"id": "Alice", "titled": false, "engine": false, "games": 1},
		"games": [
			{"id": "abcd1234", "white": "Alice", "black": "Bob", "emts": [100, 200], "pgn": "e4 e5 Nf3 Nc6"}
		]
	}`
	var line wireLine
	require.NoError(t, json.Unmarshal([]byte(raw), &line))
	require.True(t, line.isReviewRequest())

	req, err := line.toReviewRequest()
	require.NoError(t, err)
	assert.Equal(t, models.Origin("moderator"), req.origin)
	assert.Equal(t, models.UserId("alice"), req.user)
	require.Len(t, req.games, 1)

	g := req.games[0]
	assert.Equal(t, models.GameId("abcd1234"), g.id)
	require.NotNil(t, g.white)
	assert.Equal(t, models.UserId("alice"), *g.white)
	require.NotNil(t, g.black)
	assert.Equal(t, models.UserId("bob"), *g.black)
	assert.Equal(t, []int{100, 200}, g.emts)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, g.san)
}

func TestWireLineGameWithoutColorsLeavesNilUserIds(t *testing.T) {
	raw := `{
		"t": "review",
		"origin": "random",
		"user": {"id": "bob"},
		"games": [{"id": "x", "white": "", "black": "", "pgn": "e4"}]
	}`
	var line wireLine
	require.NoError(t, json.Unmarshal([]byte(raw), &line))
	req, err := line.toReviewRequest()
	require.NoError(t, err)
	assert.Nil(t, req.games[0].white)
	assert.Nil(t, req.games[0].black)
}

func TestSplitSANHandlesEmptyPgn(t *testing.T) {
	assert.Empty(t, splitSAN(""))
	assert.Equal(t, []string{"e4"}, splitSAN("e4"))
	assert.Equal(t, []string{"e4", "e5"}, splitSAN("e4  e5"))
}
