package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMarshalUnmarshalCp(t *testing.T) {
	s := CpScore(42)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cp":42}`, string(data))

	var got Score
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 42, *got.Cp)
	assert.Nil(t, got.Mate)
	assert.False(t, got.IsMate())
}

func TestScoreMarshalUnmarshalMate(t *testing.T) {
	s := MateScore(-3)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mate":-3}`, string(data))

	var got Score
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, -3, *got.Mate)
	assert.True(t, got.IsMate())
}

func TestScoreUnmarshalRejectsBothOrNeither(t *testing.T) {
	var s Score
	assert.Error(t, json.Unmarshal([]byte(`{}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"cp":1,"mate":2}`), &s))
}

func TestScoreFlip(t *testing.T) {
	assert.Equal(t, -42, *CpScore(42).Flip().Cp)
	assert.Equal(t, 3, *MateScore(-3).Flip().Mate)
}

func TestPlyAnalysisRoundTripSkipped(t *testing.T) {
	p := NewSkippedPly()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"skipped":true}`, string(data))

	var got PlyAnalysis
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PlySkipped, got.Kind)
	_, ok := got.TopScore()
	assert.False(t, ok)
}

func TestPlyAnalysisRoundTripEmpty(t *testing.T) {
	p := NewEmptyPly(10, CpScore(15))
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got PlyAnalysis
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PlyEmpty, got.Kind)
	assert.Equal(t, int32(10), got.Depth)

	// Empty carries a score field but is never extractable downstream;
	// the extraction rule treats it the same as Skipped.
	_, ok := got.TopScore()
	assert.False(t, ok)
}

func TestPlyAnalysisRoundTripBest(t *testing.T) {
	p := NewBestPly([]string{"e2e4", "e7e5"}, 20, CpScore(30), 1500, 2_000_000)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got PlyAnalysis
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PlyBest, got.Kind)
	assert.Equal(t, []string{"e2e4", "e7e5"}, got.Pv)
	score, ok := got.TopScore()
	require.True(t, ok)
	assert.Equal(t, 30, *score.Cp)
}

func TestPlyAnalysisRoundTripMatrix(t *testing.T) {
	mate := MateScore(2)
	shallow := CpScore(10)
	pv := [][][]string{
		{{"e2e4"}, {"d2d4"}},
		{{"e2e4", "e7e5"}, {"d2d4", "d7d5"}},
	}
	score := [][]*Score{
		{&shallow, &shallow},
		{&mate, nil},
	}
	p := NewMatrixPly(pv, score, 20, 3000, 4_000_000, nil)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got PlyAnalysis
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PlyMatrix, got.Kind)
	top, ok := got.TopScore()
	require.True(t, ok)
	assert.True(t, top.IsMate())
	assert.Equal(t, 2, *top.Mate)
}

func TestPlyAnalysisMatrixNilFirstColumnIsIncomplete(t *testing.T) {
	score := [][]*Score{{nil}}
	p := NewMatrixPly([][][]string{{nil}}, score, 1, 0, 0, nil)
	_, ok := p.TopScore()
	assert.False(t, ok)
}

func TestGameAnalysisComplete(t *testing.T) {
	skipped := NewSkippedPly()
	empty := NewEmptyPly(1, CpScore(1))

	incomplete := &GameAnalysis{Plies: []*PlyAnalysis{&skipped, nil}}
	assert.False(t, incomplete.Complete())

	complete := &GameAnalysis{Plies: []*PlyAnalysis{&skipped, &empty}}
	assert.True(t, complete.Complete())

	assert.False(t, (&GameAnalysis{}).Complete())
}
