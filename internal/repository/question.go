package repository

import (
	"context"
	"time"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// QuestionRepository defines persistence operations for questions. Every write
// that touches tags keeps the tag usage counters in the same transaction.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question, tagNames []string) error
	// Get loads the row and its tags without the derived read fields.
	Get(ctx context.Context, id uint) (*models.Question, error)
	GetByID(ctx context.Context, id, viewerID uint) (*models.Question, error)
	Update(ctx context.Context, id uint, fields map[string]any, tagNames []string, userID uint) error
	Delete(ctx context.Context, id uint) error
	SetClosed(ctx context.Context, id uint, closed bool) error
	IncrementViews(ctx context.Context, id uint) error
	TouchActivity(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository returns a new QuestionRepository implementation.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question, tagNames []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, tagNames, question.AuthorID)
		if err != nil {
			return err
		}
		question.Tags = tags
		if question.LastActivity.IsZero() {
			question.LastActivity = time.Now()
		}
		// tags already exist; only the join rows are written
		if err := tx.Omit("Tags.*").Create(question).Error; err != nil {
			return err
		}
		return incrementTags(tx, question.TagIDs())
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePopularTags(ctx)
	return nil
}

func (r *questionRepository) Get(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).Preload("Tags").First(&q, id).Error; err != nil {
		return nil, lookupError(err, "Question", id)
	}
	return &q, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Question, error) {
	db := readDB(r.db).WithContext(ctx)
	var q models.Question
	if err := db.Preload("Tags").First(&q, id).Error; err != nil {
		return nil, lookupError(err, "Question", id)
	}
	if err := attachQuestions(ctx, db, []*models.Question{&q}, viewerID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &q, nil
}

// Update applies fields and, when tagNames is non-nil, replaces the tag set,
// moving the counters only for tags that were actually added or removed.
func (r *questionRepository) Update(ctx context.Context, id uint, fields map[string]any, tagNames []string, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Preload("Tags").First(&q, id).Error; err != nil {
			return err
		}

		if tagNames != nil {
			next, err := resolveTags(tx, tagNames, userID)
			if err != nil {
				return err
			}
			added, removed := diffTags(q.TagIDs(), tagIDs(next))
			if err := tx.Model(&q).Omit("Tags.*").Association("Tags").Replace(next); err != nil {
				return err
			}
			if err := decrementTags(tx, removed); err != nil {
				return err
			}
			if err := incrementTags(tx, added); err != nil {
				return err
			}
		}

		updates := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			updates[k] = v
		}
		updates["last_activity"] = time.Now()
		return tx.Model(&q).Updates(updates).Error
	})
	if err != nil {
		return lookupError(err, "Question", id)
	}
	if tagNames != nil {
		cache.InvalidatePopularTags(ctx)
	}
	return nil
}

// Delete soft deletes the question and releases its tags.
func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Preload("Tags").First(&q, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&q).Error; err != nil {
			return err
		}
		return decrementTags(tx, q.TagIDs())
	})
	if err != nil {
		return lookupError(err, "Question", id)
	}
	cache.InvalidatePopularTags(ctx)
	return nil
}

func (r *questionRepository) SetClosed(ctx context.Context, id uint, closed bool) error {
	return r.updateColumns(ctx, id, map[string]any{"is_closed": closed, "last_activity": time.Now()})
}

func (r *questionRepository) IncrementViews(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]any{"views": gorm.Expr("views + 1")})
}

func (r *questionRepository) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"last_activity": at})
}

func (r *questionRepository) updateColumns(ctx context.Context, id uint, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Question{ID: id}).UpdateColumns(cols)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Question", id)
	}
	return nil
}

func (r *questionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	db := readDB(r.db).WithContext(ctx)
	q := db.Model(&models.Question{})

	if filter.Tag != "" {
		var tag models.Tag
		err := db.Select("id").Where("LOWER(name) = ?", normalizeTagName(filter.Tag)).Limit(1).Find(&tag).Error
		if err != nil {
			return nil, 0, models.NewInternalError(err)
		}
		if tag.ID == 0 {
			return []*models.Question{}, 0, nil
		}
		q = q.Where("questions.id IN (?)", db.Table("question_tags").Select("question_id").Where("tag_id = ?", tag.ID))
	}
	if filter.Author != "" {
		var author models.User
		if err := db.Select("id").Where("username = ?", filter.Author).Limit(1).Find(&author).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
		if author.ID == 0 {
			return []*models.Question{}, 0, nil
		}
		q = q.Where("author_id = ?", author.ID)
	}
	if filter.Answered != nil {
		if *filter.Answered {
			q = q.Where("accepted_answer_id IS NOT NULL")
		} else {
			q = q.Where("accepted_answer_id IS NULL")
		}
	}
	if filter.Search != "" {
		like := likePattern(filter.Search)
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.QuestionSortOldest:
		q = q.Order("questions.created_at ASC")
	case models.QuestionSortVotes:
		q = q.Order(voteCountExpr(models.VoteTargetQuestion, "questions") + " DESC").Order("questions.created_at DESC")
	case models.QuestionSortViews:
		q = q.Order("views DESC").Order("questions.created_at DESC")
	case models.QuestionSortActivity:
		q = q.Order("last_activity DESC")
	default:
		q = q.Order("questions.created_at DESC")
	}

	questions := []*models.Question{}
	if err := q.Preload("Tags").Limit(filter.Limit).Offset(filter.Offset()).Find(&questions).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := attachQuestions(ctx, db, questions, filter.ViewerID); err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return questions, total, nil
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// diffTags returns the IDs present only in next (added) and only in prev (removed).
func diffTags(prev, next []uint) (added, removed []uint) {
	inPrev := make(map[uint]struct{}, len(prev))
	for _, id := range prev {
		inPrev[id] = struct{}{}
	}
	inNext := make(map[uint]struct{}, len(next))
	for _, id := range next {
		inNext[id] = struct{}{}
		if _, ok := inPrev[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := inNext[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
