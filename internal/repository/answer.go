package repository

import (
	"context"
	"errors"

	"stackit/internal/models"

	"gorm.io/gorm"
)

// AnswerRepository defines persistence operations for answers, their
// acceptance state and their comments.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	Get(ctx context.Context, id uint) (*models.Answer, error)
	GetByID(ctx context.Context, id, viewerID uint) (*models.Answer, error)
	HasAnswered(ctx context.Context, questionID, authorID uint) (bool, error)
	// ListByQuestion pages through a question's answers; limit <= 0 returns all of them.
	ListByQuestion(ctx context.Context, questionID uint, sort models.AnswerSort, page, limit int, viewerID uint) ([]*models.Answer, int64, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
	ToggleAccept(ctx context.Context, answer *models.Answer) (bool, error)
	AddComment(ctx context.Context, comment *models.AnswerComment) error
	GetComment(ctx context.Context, answerID, commentID uint) (*models.AnswerComment, error)
	DeleteComment(ctx context.Context, commentID uint) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository returns a new AnswerRepository implementation.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	if err := r.db.WithContext(ctx).Omit("Comments").Create(answer).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("You have already answered this question")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *answerRepository) Get(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, lookupError(err, "Answer", id)
	}
	return &a, nil
}

func (r *answerRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Answer, error) {
	db := readDB(r.db).WithContext(ctx)
	var a models.Answer
	if err := db.Preload("Comments", orderComments).First(&a, id).Error; err != nil {
		return nil, lookupError(err, "Answer", id)
	}
	if err := attachAnswers(ctx, db, []*models.Answer{&a}, viewerID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &a, nil
}

func (r *answerRepository) HasAnswered(ctx context.Context, questionID, authorID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("question_id = ? AND author_id = ?", questionID, authorID).
		Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func orderComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uint, sort models.AnswerSort, page, limit int, viewerID uint) ([]*models.Answer, int64, error) {
	db := readDB(r.db).WithContext(ctx)
	q := db.Model(&models.Answer{}).Where("question_id = ?", questionID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch sort {
	case models.AnswerSortNewest:
		q = q.Order("answers.created_at DESC")
	case models.AnswerSortOldest:
		q = q.Order("answers.created_at ASC")
	default:
		q = q.Order("is_accepted DESC").
			Order(voteCountExpr(models.VoteTargetAnswer, "answers") + " DESC").
			Order("answers.created_at ASC")
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(paginate(page, limit))
	}

	answers := []*models.Answer{}
	if err := q.Preload("Comments", orderComments).Find(&answers).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := attachAnswers(ctx, db, answers, viewerID); err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return answers, total, nil
}

func (r *answerRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Answer{ID: id}).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Answer", id)
	}
	return nil
}

// Delete soft deletes the answer. Deleting the accepted answer also clears
// the question's reference to it.
func (r *answerRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Answer
		if err := tx.First(&a, id).Error; err != nil {
			return err
		}
		if a.IsAccepted {
			if err := tx.Model(&a).UpdateColumn("is_accepted", false).Error; err != nil {
				return err
			}
			if err := clearAcceptedRef(tx, a.QuestionID, a.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&a).Error
	})
	if err != nil {
		return lookupError(err, "Answer", id)
	}
	return nil
}

func clearAcceptedRef(tx *gorm.DB, questionID, answerID uint) error {
	return tx.Model(&models.Question{}).
		Where("id = ? AND accepted_answer_id = ?", questionID, answerID).
		UpdateColumn("accepted_answer_id", nil).Error
}

// ToggleAccept flips the acceptance of answer and reports the new state.
// Accepting sweeps every other accepted answer of the question first, so at
// most one answer per question is accepted when the transaction commits.
func (r *answerRepository) ToggleAccept(ctx context.Context, answer *models.Answer) (bool, error) {
	var accepted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Answer
		if err := tx.First(&current, answer.ID).Error; err != nil {
			return err
		}

		if current.IsAccepted {
			if err := tx.Model(&current).UpdateColumn("is_accepted", false).Error; err != nil {
				return err
			}
			accepted = false
			return clearAcceptedRef(tx, current.QuestionID, current.ID)
		}

		if err := tx.Model(&models.Answer{}).
			Where("question_id = ? AND is_accepted = ?", current.QuestionID, true).
			UpdateColumn("is_accepted", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&current).UpdateColumn("is_accepted", true).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Question{ID: current.QuestionID}).UpdateColumn("accepted_answer_id", current.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		accepted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, models.NewNotFoundError("Answer", answer.ID)
		}
		return false, models.NewInternalError(err)
	}
	answer.IsAccepted = accepted
	return accepted, nil
}

func (r *answerRepository) AddComment(ctx context.Context, comment *models.AnswerComment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *answerRepository) GetComment(ctx context.Context, answerID, commentID uint) (*models.AnswerComment, error) {
	var c models.AnswerComment
	if err := r.db.WithContext(ctx).Where("answer_id = ?", answerID).First(&c, commentID).Error; err != nil {
		return nil, lookupError(err, "Comment", commentID)
	}
	return &c, nil
}

func (r *answerRepository) DeleteComment(ctx context.Context, commentID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.AnswerComment{}, commentID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
