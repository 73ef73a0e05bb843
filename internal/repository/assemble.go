package repository

import (
	"context"

	"stackit/internal/models"

	"gorm.io/gorm"
)

// voteCountExpr orders rows of table by their net vote count.
func voteCountExpr(target models.VoteTarget, table string) string {
	return "(SELECT COALESCE(SUM(CASE WHEN votes.vote_type = 'upvote' THEN 1 ELSE -1 END), 0) FROM votes " +
		"WHERE votes.target_type = '" + string(target) + "' AND votes.target_id = " + table + ".id)"
}

// loadVotes reads the vote sets of every listed entity in one query.
func loadVotes(ctx context.Context, db *gorm.DB, target models.VoteTarget, ids []uint) (map[uint]models.Votes, error) {
	out := make(map[uint]models.Votes, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Vote
	if err := db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", target, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	grouped := make(map[uint][]models.Vote, len(ids))
	for _, row := range rows {
		grouped[row.TargetID] = append(grouped[row.TargetID], row)
	}
	for _, id := range ids {
		out[id] = models.NewVotes(grouped[id])
	}
	return out, nil
}

// loadAuthors fetches the public summaries of the given users. Deleted users are absent.
func loadAuthors(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]*models.UserSummary, error) {
	out := make(map[uint]*models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.WithContext(ctx).
		Select("id", "username", "reputation", "avatar").
		Where("id IN ?", uniq(ids)).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

// attachQuestions fills the derived fields of each question.
func attachQuestions(ctx context.Context, db *gorm.DB, questions []*models.Question, viewerID uint) error {
	if len(questions) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(questions))
	authorIDs := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
		authorIDs = append(authorIDs, q.AuthorID)
	}

	votes, err := loadVotes(ctx, db, models.VoteTargetQuestion, ids)
	if err != nil {
		return err
	}
	authors, err := loadAuthors(ctx, db, authorIDs)
	if err != nil {
		return err
	}

	type answerCount struct {
		QuestionID uint
		Count      int
	}
	var counts []answerCount
	if err := db.WithContext(ctx).Model(&models.Answer{}).
		Select("question_id, COUNT(*) AS count").
		Where("question_id IN ?", ids).
		Group("question_id").
		Scan(&counts).Error; err != nil {
		return err
	}
	byQuestion := make(map[uint]int, len(counts))
	for _, c := range counts {
		byQuestion[c.QuestionID] = c.Count
	}

	for _, q := range questions {
		v := votes[q.ID]
		q.VoteCount = v.Count()
		q.UserVote = viewerVote(v, viewerID)
		q.AnswerCount = byQuestion[q.ID]
		q.AuthorInfo = authors[q.AuthorID]
		if q.Tags == nil {
			q.Tags = []models.Tag{}
		}
	}
	return nil
}

// attachAnswers fills the derived fields of each answer and of its comments.
func attachAnswers(ctx context.Context, db *gorm.DB, answers []*models.Answer, viewerID uint) error {
	if len(answers) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(answers))
	authorIDs := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.ID)
		authorIDs = append(authorIDs, a.AuthorID)
		for _, c := range a.Comments {
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	votes, err := loadVotes(ctx, db, models.VoteTargetAnswer, ids)
	if err != nil {
		return err
	}
	authors, err := loadAuthors(ctx, db, authorIDs)
	if err != nil {
		return err
	}

	for _, a := range answers {
		v := votes[a.ID]
		a.VoteCount = v.Count()
		a.UserVote = viewerVote(v, viewerID)
		a.AuthorInfo = authors[a.AuthorID]
		if a.Comments == nil {
			a.Comments = []models.AnswerComment{}
		}
		for i := range a.Comments {
			a.Comments[i].AuthorInfo = authors[a.Comments[i].AuthorID]
		}
	}
	return nil
}

func viewerVote(v models.Votes, viewerID uint) *models.VoteType {
	if viewerID == 0 {
		return nil
	}
	return v.Of(viewerID)
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
