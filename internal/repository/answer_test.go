package repository

import (
	"context"
	"testing"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func acceptedAnswerID(t *testing.T, db *gorm.DB, questionID uint) *uint {
	t.Helper()
	var q models.Question
	require.NoError(t, db.Unscoped().First(&q, questionID).Error)
	return q.AcceptedAnswerID
}

func acceptedCount(t *testing.T, db *gorm.DB, questionID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Answer{}).
		Where("question_id = ? AND is_accepted = ?", questionID, true).Count(&n).Error)
	return n
}

func TestAnswerRepository_ToggleAccept(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)
	repo := NewAnswerRepository(db)
	ctx := context.Background()

	asker := seedUser(t, db, "asker", 1)
	first := seedUser(t, db, "first", 1)
	second := seedUser(t, db, "second", 1)
	q := seedQuestion(t, questions, asker, "Which answer should be accepted?", "meta")

	a1 := &models.Answer{QuestionID: q.ID, AuthorID: first.ID, Content: "The first answer here."}
	a2 := &models.Answer{QuestionID: q.ID, AuthorID: second.ID, Content: "The second answer here."}
	require.NoError(t, repo.Create(ctx, a1))
	require.NoError(t, repo.Create(ctx, a2))

	accepted, err := repo.ToggleAccept(ctx, a1)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, a1.IsAccepted)
	require.NotNil(t, acceptedAnswerID(t, db, q.ID))
	assert.Equal(t, a1.ID, *acceptedAnswerID(t, db, q.ID))

	// accepting another answer moves the flag
	accepted, err = repo.ToggleAccept(ctx, a2)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.EqualValues(t, 1, acceptedCount(t, db, q.ID))
	assert.Equal(t, a2.ID, *acceptedAnswerID(t, db, q.ID))

	accepted, err = repo.ToggleAccept(ctx, a2)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.EqualValues(t, 0, acceptedCount(t, db, q.ID))
	assert.Nil(t, acceptedAnswerID(t, db, q.ID))

	_, err = repo.ToggleAccept(ctx, &models.Answer{ID: 999})
	assert.True(t, models.IsNotFound(err))
}

func TestAnswerRepository_DeleteAccepted(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)
	repo := NewAnswerRepository(db)
	ctx := context.Background()

	asker := seedUser(t, db, "asker", 1)
	helper := seedUser(t, db, "helper", 1)
	q := seedQuestion(t, questions, asker, "What happens when the accepted answer goes?", "meta")
	a := &models.Answer{QuestionID: q.ID, AuthorID: helper.ID, Content: "It stops being accepted."}
	require.NoError(t, repo.Create(ctx, a))
	_, err := repo.ToggleAccept(ctx, a)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.Nil(t, acceptedAnswerID(t, db, q.ID))
	_, err = repo.Get(ctx, a.ID)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(repo.Delete(ctx, a.ID)))

	answered, err := repo.HasAnswered(ctx, q.ID, helper.ID)
	require.NoError(t, err)
	assert.False(t, answered)
}

func TestAnswerRepository_ListByQuestion(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)
	repo := NewAnswerRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()

	asker := seedUser(t, db, "asker", 1)
	users := []*models.User{seedUser(t, db, "u1", 20), seedUser(t, db, "u2", 20), seedUser(t, db, "u3", 20)}
	q := seedQuestion(t, questions, asker, "Sorting answers by votes and acceptance", "meta")

	answers := make([]*models.Answer, 0, len(users))
	for _, u := range users {
		a := &models.Answer{QuestionID: q.ID, AuthorID: u.ID, Content: "An answer by " + u.Username}
		require.NoError(t, repo.Create(ctx, a))
		answers = append(answers, a)
	}
	// answers[1] gets two votes, answers[2] is accepted
	_, err := votes.Apply(ctx, models.VoteTargetAnswer, answers[1].ID, users[0].ID, models.VoteUp)
	require.NoError(t, err)
	_, err = votes.Apply(ctx, models.VoteTargetAnswer, answers[1].ID, users[2].ID, models.VoteUp)
	require.NoError(t, err)
	_, err = repo.ToggleAccept(ctx, answers[2])
	require.NoError(t, err)

	list, total, err := repo.ListByQuestion(ctx, q.ID, models.AnswerSortVotes, 1, 0, users[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, answers[2].ID, list[0].ID)
	assert.Equal(t, answers[1].ID, list[1].ID)
	assert.Equal(t, 2, list[1].VoteCount)
	require.NotNil(t, list[1].UserVote)
	assert.Nil(t, list[0].UserVote)
	assert.Equal(t, "u3", list[0].AuthorInfo.Username)
	assert.NotNil(t, list[2].Comments)

	page, total, err := repo.ListByQuestion(ctx, q.ID, models.AnswerSortVotes, 2, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, answers[0].ID, page[0].ID)
}

func TestAnswerRepository_Comments(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)
	repo := NewAnswerRepository(db)
	ctx := context.Background()

	asker := seedUser(t, db, "asker", 1)
	critic := seedUser(t, db, "critic", 60)
	q := seedQuestion(t, questions, asker, "Can answers carry comments?", "meta")
	a := &models.Answer{QuestionID: q.ID, AuthorID: asker.ID, Content: "Yes, answers can carry them."}
	require.NoError(t, repo.Create(ctx, a))

	c := &models.AnswerComment{AnswerID: a.ID, AuthorID: critic.ID, Content: "Source?"}
	require.NoError(t, repo.AddComment(ctx, c))

	got, err := repo.GetByID(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "critic", got.Comments[0].AuthorInfo.Username)

	_, err = repo.GetComment(ctx, a.ID+1, c.ID)
	assert.True(t, models.IsNotFound(err))

	require.NoError(t, repo.DeleteComment(ctx, c.ID))
	_, err = repo.GetComment(ctx, a.ID, c.ID)
	assert.True(t, models.IsNotFound(err))

	require.NoError(t, repo.UpdateContent(ctx, a.ID, "Yes, and they can be removed."))
	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Yes, and they can be removed.", got.Content)
}
