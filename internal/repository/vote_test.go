package repository

import (
	"context"
	"testing"
	"time"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_Apply(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author", 1)
	voter := seedUser(t, db, "voter", 20)
	other := seedUser(t, db, "other", 20)
	q := seedQuestion(t, questions, author, "Does voting twice retract my vote?", "votes")
	require.NoError(t, questions.TouchActivity(ctx, q.ID, time.Now().Add(-time.Hour)))

	steps := []struct {
		name     string
		user     uint
		vote     models.VoteType
		count    int
		userVote *models.VoteType
		cast     bool
	}{
		{"cast up", voter.ID, models.VoteUp, 1, ptr(models.VoteUp), true},
		{"same vote retracts", voter.ID, models.VoteUp, 0, nil, false},
		{"cast down", voter.ID, models.VoteDown, -1, ptr(models.VoteDown), true},
		{"switch sides", voter.ID, models.VoteUp, 1, ptr(models.VoteUp), true},
		{"second user", other.ID, models.VoteUp, 2, ptr(models.VoteUp), true},
		{"second user switches", other.ID, models.VoteDown, 0, ptr(models.VoteDown), true},
	}
	for _, step := range steps {
		res, err := repo.Apply(ctx, models.VoteTargetQuestion, q.ID, step.user, step.vote)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.count, res.VoteCount, step.name)
		assert.Equal(t, step.userVote, res.UserVote, step.name)
		assert.Equal(t, step.cast, res.Cast, step.name)
	}

	votes, err := repo.Load(ctx, models.VoteTargetQuestion, q.ID)
	require.NoError(t, err)
	assert.True(t, votes.Up.Has(voter.ID))
	assert.True(t, votes.Down.Has(other.ID))
	assert.False(t, votes.Up.Has(other.ID))

	var rows int64
	require.NoError(t, db.Model(&models.Vote{}).Where("user_id = ?", voter.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	got, err := questions.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got.LastActivity, time.Minute)
}

func TestVoteRepository_TargetsAreIndependent(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	_, err := repo.Apply(ctx, models.VoteTargetAnswer, 1, 7, models.VoteDown)
	require.NoError(t, err)

	question, err := repo.Load(ctx, models.VoteTargetQuestion, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, question.Count())

	answer, err := repo.Load(ctx, models.VoteTargetAnswer, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, answer.Count())
}

func ptr[T any](v T) *T { return &v }
