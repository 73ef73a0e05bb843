package repository

import (
	"context"
	"errors"
	"strings"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags and their usage counters.
type TagRepository interface {
	FindOrCreate(ctx context.Context, name string, userID uint) (*models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	CountQuestions(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context, filter models.TagFilter) ([]models.Tag, int64, error)
	Popular(ctx context.Context, limit int) ([]models.Tag, error)
	Search(ctx context.Context, query string, limit int) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func normalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// findOrCreateTag resolves name case-insensitively, restoring a soft-deleted
// match, and otherwise creates the tag owned by userID. It must run inside tx.
func findOrCreateTag(tx *gorm.DB, name string, userID uint) (*models.Tag, error) {
	name = normalizeTagName(name)
	var tag models.Tag
	err := tx.Unscoped().Where("LOWER(name) = ?", name).First(&tag).Error
	switch {
	case err == nil:
		if tag.DeletedAt.Valid {
			if err := tx.Unscoped().Model(&tag).Update("deleted_at", nil).Error; err != nil {
				return nil, err
			}
			tag.DeletedAt = gorm.DeletedAt{}
		}
		return &tag, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	tag = models.Tag{Name: name, Color: models.DefaultTagColor}
	if userID != 0 {
		tag.CreatedByID = &userID
	}
	// a concurrent request may create the same name; the savepoint keeps the
	// surrounding transaction usable so the winner's row can be read back
	if err := tx.SavePoint("find_or_create_tag").Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&tag).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, err
		}
		if err := tx.RollbackTo("find_or_create_tag").Error; err != nil {
			return nil, err
		}
		tag = models.Tag{}
		if err := tx.Unscoped().Where("LOWER(name) = ?", name).First(&tag).Error; err != nil {
			return nil, err
		}
	}
	return &tag, nil
}

// resolveTags maps names onto tags, dropping duplicates while keeping order.
func resolveTags(tx *gorm.DB, names []string, userID uint) ([]models.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	tags := make([]models.Tag, 0, len(names))
	for _, raw := range names {
		name := normalizeTagName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tag, err := findOrCreateTag(tx, name, userID)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// incrementTags adds one use to each tag.
func incrementTags(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Unscoped().Model(&models.Tag{}).
		Where("id IN ?", ids).
		UpdateColumn("question_count", gorm.Expr("question_count + 1")).Error
}

// decrementTags removes one use from each tag, never going below zero.
func decrementTags(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Unscoped().Model(&models.Tag{}).
		Where("id IN ? AND question_count > 0", ids).
		UpdateColumn("question_count", gorm.Expr("question_count - 1")).Error
}

func (r *tagRepository) FindOrCreate(ctx context.Context, name string, userID uint) (*models.Tag, error) {
	var tag *models.Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tag, err = findOrCreateTag(tx, name, userID)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tag, nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := readDB(r.db).WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, lookupError(err, "Tag", id)
	}
	return &tag, nil
}

// GetByName returns nil, nil when no live tag has the name.
func (r *tagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := readDB(r.db).WithContext(ctx).Where("LOWER(name) = ?", normalizeTagName(name)).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &tag, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	tag.Name = normalizeTagName(tag.Name)
	if tag.Color == "" {
		tag.Color = models.DefaultTagColor
	}
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Tag already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePopularTags(ctx)
	return nil
}

func (r *tagRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Tag{ID: id}).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Tag", id)
	}
	cache.InvalidatePopularTags(ctx)
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Tag{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Tag", id)
	}
	cache.InvalidatePopularTags(ctx)
	return nil
}

// CountQuestions counts the live questions carrying the tag.
func (r *tagRepository) CountQuestions(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Joins("JOIN question_tags ON question_tags.question_id = questions.id").
		Where("question_tags.tag_id = ?", id).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *tagRepository) List(ctx context.Context, filter models.TagFilter) ([]models.Tag, int64, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.Tag{})
	if filter.Search != "" {
		like := likePattern(filter.Search)
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.TagSortName:
		q = q.Order("name ASC")
	case models.TagSortNewest:
		q = q.Order("created_at DESC")
	default:
		q = q.Order("question_count DESC").Order("name ASC")
	}

	var tags []models.Tag
	if err := q.Limit(filter.Limit).Offset(paginate(filter.Page, filter.Limit)).Find(&tags).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return tags, total, nil
}

func (r *tagRepository) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	return cache.Aside(ctx, cache.CachePopularTags, cache.PopularTagsKey(limit), cache.PopularTagsTTL, func(ctx context.Context) ([]models.Tag, error) {
		tags := []models.Tag{}
		if err := readDB(r.db).WithContext(ctx).
			Order("question_count DESC").Order("name ASC").
			Limit(limit).
			Find(&tags).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		return tags, nil
	})
}

func (r *tagRepository) Search(ctx context.Context, query string, limit int) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := readDB(r.db).WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(query)).
		Order("question_count DESC").Order("name ASC").
		Limit(limit).
		Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}
