// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// GetByID serves from the user cache. Secrets such as the password hash are not cached.
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetFresh reads the full row from the primary, bypassing the cache.
	GetFresh(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Stats(ctx context.Context, id uint) (*models.UserStats, error)
	Profile(ctx context.Context, user *models.User, page, limit int) (*models.UserProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return cache.Aside(ctx, cache.CacheUsers, cache.UserKey(id), cache.UserTTL, func(ctx context.Context) (*models.User, error) {
		var user models.User
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			return nil, lookupError(err, "User", id)
		}
		return &user, nil
	})
}

func (r *userRepository) GetFresh(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", tokenHash, now)
}

// findOne returns nil, nil when nothing matches.
func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User with this email or username already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{ID: id}).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewValidationError("User with this email or username already exists")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// TouchLastActive records activity without bumping updated_at.
func (r *userRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.User{ID: id}).UpdateColumn("last_active", at).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.User{})
	if filter.Search != "" {
		like := likePattern(filter.Search)
		q = q.Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.UserSortNewest:
		q = q.Order("created_at DESC")
	case models.UserSortOldest:
		q = q.Order("created_at ASC")
	case models.UserSortUsername:
		q = q.Order("username ASC")
	default:
		q = q.Order("reputation DESC").Order("id ASC")
	}

	var users []models.User
	if err := q.Limit(filter.Limit).Offset(paginate(filter.Page, filter.Limit)).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	db := readDB(r.db).WithContext(ctx)
	stats := &models.UserStats{
		Reputation: user.Reputation,
		JoinDate:   user.CreatedAt,
		LastActive: user.LastActive,
	}

	if err := db.Model(&models.Question{}).Where("author_id = ?", id).Count(&stats.QuestionCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Answer{}).Where("author_id = ?", id).Count(&stats.AnswerCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Answer{}).Where("author_id = ? AND is_accepted = ?", id, true).Count(&stats.AcceptedAnswerCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// every vote row on the user's live questions and answers, either direction
	var questionVotes, answerVotes int64
	if err := db.Model(&models.Vote{}).
		Where("target_type = ? AND target_id IN (?)", models.VoteTargetQuestion,
			db.Model(&models.Question{}).Select("id").Where("author_id = ?", id)).
		Count(&questionVotes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Vote{}).
		Where("target_type = ? AND target_id IN (?)", models.VoteTargetAnswer,
			db.Model(&models.Answer{}).Select("id").Where("author_id = ?", id)).
		Count(&answerVotes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	stats.TotalVotes = questionVotes + answerVotes
	return stats, nil
}

func (r *userRepository) Profile(ctx context.Context, user *models.User, page, limit int) (*models.UserProfile, error) {
	db := readDB(r.db).WithContext(ctx)
	profile := &models.UserProfile{
		User:      user.Public(),
		Questions: []*models.Question{},
		Answers:   []*models.AnswerPreview{},
		Stats:     models.ProfileStats{Reputation: user.Reputation},
	}

	if err := db.Preload("Tags").
		Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).Offset(paginate(page, limit)).
		Find(&profile.Questions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := attachQuestions(ctx, db, profile.Questions, 0); err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.Answer{}).
		Select("answers.id, answers.question_id, questions.title AS question_title, answers.is_accepted, answers.created_at").
		Joins("JOIN questions ON questions.id = answers.question_id AND questions.deleted_at IS NULL").
		Where("answers.author_id = ?", user.ID).
		Order("answers.created_at DESC").
		Limit(5).
		Scan(&profile.Answers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.Question{}).Where("author_id = ?", user.ID).Count(&profile.Stats.QuestionCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Answer{}).Where("author_id = ?", user.ID).Count(&profile.Stats.AnswerCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}
