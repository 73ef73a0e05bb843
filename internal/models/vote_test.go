package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotesApply(t *testing.T) {
	t.Parallel()

	t.Run("cast upvote", func(t *testing.T) {
		v := NewVotes(nil)
		got := v.Apply(7, VoteUp)
		require.NotNil(t, got)
		assert.Equal(t, VoteUp, *got)
		assert.Equal(t, 1, v.Count())
	})

	t.Run("same vote twice retracts", func(t *testing.T) {
		v := NewVotes([]Vote{{UserID: 7, Type: VoteUp}})
		got := v.Apply(7, VoteUp)
		assert.Nil(t, got)
		assert.Equal(t, 0, v.Count())
		assert.Nil(t, v.Of(7))
	})

	t.Run("opposite vote switches sides", func(t *testing.T) {
		v := NewVotes([]Vote{{UserID: 7, Type: VoteUp}, {UserID: 8, Type: VoteUp}})
		got := v.Apply(7, VoteDown)
		require.NotNil(t, got)
		assert.Equal(t, VoteDown, *got)
		assert.False(t, v.Up.Has(7))
		assert.True(t, v.Down.Has(7))
		assert.Equal(t, 0, v.Count())
	})

	t.Run("zero value is usable", func(t *testing.T) {
		var v Votes
		v.Apply(1, VoteDown)
		assert.Equal(t, -1, v.Count())
	})
}

func TestVotesNeverInBothSets(t *testing.T) {
	t.Parallel()
	v := NewVotes(nil)
	sequence := []VoteType{VoteUp, VoteDown, VoteDown, VoteUp, VoteUp, VoteDown}
	for _, vt := range sequence {
		v.Apply(3, vt)
		assert.False(t, v.Up.Has(3) && v.Down.Has(3))
		assert.Equal(t, len(v.Up)-len(v.Down), v.Count())
	}
}

func TestVoteTypeIsValid(t *testing.T) {
	t.Parallel()
	assert.True(t, VoteUp.IsValid())
	assert.True(t, VoteDown.IsValid())
	assert.False(t, VoteType("sideways").IsValid())
}
