package repository

import (
	"context"
	"testing"
	"time"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffTags(t *testing.T) {
	t.Parallel()
	added, removed := diffTags([]uint{1, 2, 3}, []uint{3, 4})
	assert.Equal(t, []uint{4}, added)
	assert.Equal(t, []uint{1, 2}, removed)

	added, removed = diffTags(nil, nil)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestQuestionRepository_TagCounters(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "asker", 1)

	q := seedQuestion(t, repo, author, "How do I count tags correctly?", "go", "Go", "sql")
	require.Len(t, q.Tags, 2)
	assert.Equal(t, 1, tagCount(t, db, "go"))
	assert.Equal(t, 1, tagCount(t, db, "sql"))

	// nil leaves the tag set alone
	require.NoError(t, repo.Update(ctx, q.ID, map[string]any{"title": "How do I count tags, really?"}, nil, author.ID))
	assert.Equal(t, 1, tagCount(t, db, "go"))

	require.NoError(t, repo.Update(ctx, q.ID, nil, []string{"sql", "redis"}, author.ID))
	assert.Equal(t, 0, tagCount(t, db, "go"))
	assert.Equal(t, 1, tagCount(t, db, "sql"))
	assert.Equal(t, 1, tagCount(t, db, "redis"))

	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "How do I count tags, really?", got.Title)
	assert.ElementsMatch(t, []string{"sql", "redis"}, []string{got.Tags[0].Name, got.Tags[1].Name})

	require.NoError(t, repo.Delete(ctx, q.ID))
	assert.Equal(t, 0, tagCount(t, db, "sql"))
	assert.Equal(t, 0, tagCount(t, db, "redis"))

	_, err = repo.GetByID(ctx, q.ID, 0)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(repo.Delete(ctx, q.ID)))
	assert.True(t, models.IsNotFound(repo.Update(ctx, q.ID, nil, []string{"go"}, author.ID)))
}

func TestQuestionRepository_Columns(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "asker", 1)
	q := seedQuestion(t, repo, author, "Does viewing count as activity?", "views")

	require.NoError(t, repo.IncrementViews(ctx, q.ID))
	require.NoError(t, repo.IncrementViews(ctx, q.ID))
	require.NoError(t, repo.SetClosed(ctx, q.ID, true))

	got, err := repo.GetByID(ctx, q.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)
	assert.True(t, got.IsClosed)
	require.NotNil(t, got.AuthorInfo)
	assert.Equal(t, "asker", got.AuthorInfo.Username)

	assert.True(t, models.IsNotFound(repo.IncrementViews(ctx, 999)))
}

func TestQuestionRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)
	answers := NewAnswerRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", 50)
	bob := seedUser(t, db, "bob", 50)
	q1 := seedQuestion(t, repo, alice, "Goroutines leak when the channel is never closed", "go", "concurrency")
	q2 := seedQuestion(t, repo, bob, "Postgres index is not used by my query", "postgres")
	q3 := seedQuestion(t, repo, alice, "What is 100% CPU telling me about go?", "go")
	base := time.Now().UTC().Add(-time.Hour)
	for i, q := range []*models.Question{q1, q2, q3} {
		require.NoError(t, db.Model(&models.Question{}).Where("id = ?", q.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	a := &models.Answer{QuestionID: q2.ID, AuthorID: alice.ID, Content: "Run ANALYZE on the table first."}
	require.NoError(t, answers.Create(ctx, a))
	_, err := answers.ToggleAccept(ctx, a)
	require.NoError(t, err)
	_, err = votes.Apply(ctx, models.VoteTargetQuestion, q2.ID, alice.ID, models.VoteUp)
	require.NoError(t, err)

	list := func(f models.QuestionFilter) ([]*models.Question, int64) {
		t.Helper()
		if f.Limit == 0 {
			f.Limit = 10
		}
		items, total, err := repo.List(ctx, f)
		require.NoError(t, err)
		return items, total
	}
	ids := func(items []*models.Question) []uint {
		out := make([]uint, 0, len(items))
		for _, q := range items {
			out = append(out, q.ID)
		}
		return out
	}

	items, total := list(models.QuestionFilter{})
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []uint{q3.ID, q2.ID, q1.ID}, ids(items))

	items, _ = list(models.QuestionFilter{Sort: models.QuestionSortOldest})
	assert.Equal(t, []uint{q1.ID, q2.ID, q3.ID}, ids(items))

	items, _ = list(models.QuestionFilter{Sort: models.QuestionSortVotes, ViewerID: alice.ID})
	require.Equal(t, q2.ID, items[0].ID)
	assert.Equal(t, 1, items[0].VoteCount)
	assert.Equal(t, 1, items[0].AnswerCount)
	require.NotNil(t, items[0].UserVote)
	assert.Equal(t, models.VoteUp, *items[0].UserVote)

	items, total = list(models.QuestionFilter{Tag: "GO"})
	assert.EqualValues(t, 2, total)
	assert.ElementsMatch(t, []uint{q1.ID, q3.ID}, ids(items))

	_, total = list(models.QuestionFilter{Tag: "nope"})
	assert.EqualValues(t, 0, total)

	items, _ = list(models.QuestionFilter{Author: "bob"})
	assert.Equal(t, []uint{q2.ID}, ids(items))

	_, total = list(models.QuestionFilter{Author: "nobody"})
	assert.EqualValues(t, 0, total)

	answered := true
	items, _ = list(models.QuestionFilter{Answered: &answered})
	assert.Equal(t, []uint{q2.ID}, ids(items))
	unanswered := false
	_, total = list(models.QuestionFilter{Answered: &unanswered})
	assert.EqualValues(t, 2, total)

	items, _ = list(models.QuestionFilter{Search: "100%"})
	assert.Equal(t, []uint{q3.ID}, ids(items))

	items, total = list(models.QuestionFilter{Page: 2, Limit: 2})
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []uint{q1.ID}, ids(items))
}
