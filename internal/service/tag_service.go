package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/validation"
)

const (
	maxTagDescriptionLen = 500
	tagSearchLimit       = 10
)

type TagService struct {
	tags repository.TagRepository
}

type CreateTagInput struct {
	Creator     *models.User
	Name        string
	Description string
	Color       string
}

type UpdateTagInput struct {
	Actor       *models.User
	TagID       uint
	Description *string
	Color       *string
}

func NewTagService(tags repository.TagRepository) *TagService {
	return &TagService{tags: tags}
}

func (s *TagService) List(ctx context.Context, filter models.TagFilter) ([]models.Tag, int64, error) {
	switch filter.Sort {
	case "", models.TagSortName, models.TagSortPopular, models.TagSortNewest:
	default:
		return nil, 0, models.NewValidationError("Sort must be one of: name, popular, newest")
	}
	return s.tags.List(ctx, filter)
}

func (s *TagService) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.tags.Popular(ctx, limit)
}

func (s *TagService) Search(ctx context.Context, query string) ([]models.Tag, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.tags.Search(ctx, query, tagSearchLimit)
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tags.GetByID(ctx, id)
}

func (s *TagService) Create(ctx context.Context, in CreateTagInput) (*models.Tag, error) {
	name := validation.NormalizeTagName(in.Name)
	if err := validation.ValidateTagName(name); err != nil {
		return nil, fieldError("name", capitalize(err.Error()))
	}
	if err := validateTagDetails(&in.Description, &in.Color); err != nil {
		return nil, err
	}

	existing, err := s.tags.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Tag already exists")
	}

	tag := &models.Tag{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Color:       in.Color,
		CreatedByID: &in.Creator.ID,
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, in UpdateTagInput) (*models.Tag, error) {
	tag, err := s.tags.GetByID(ctx, in.TagID)
	if err != nil {
		return nil, err
	}
	if !canEditTag(in.Actor, tag) {
		return nil, models.NewForbiddenError("You can only edit tags you created")
	}
	if err := validateTagDetails(in.Description, in.Color); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Color != nil && *in.Color != "" {
		fields["color"] = *in.Color
	}
	if len(fields) > 0 {
		if err := s.tags.UpdateFields(ctx, tag.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.tags.GetByID(ctx, tag.ID)
}

// Delete soft deletes a tag that no live question uses.
func (s *TagService) Delete(ctx context.Context, actor *models.User, id uint) error {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canEditTag(actor, tag) {
		return models.NewForbiddenError("You can only delete tags you created")
	}
	n, err := s.tags.CountQuestions(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.NewValidationError(fmt.Sprintf("Cannot delete tag. It is being used by %d questions.", n))
	}
	return s.tags.Delete(ctx, id)
}

func (s *TagService) SetOfficial(ctx context.Context, actor *models.User, id uint, official bool) (*models.Tag, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can make tags official")
	}
	if err := s.tags.UpdateFields(ctx, id, map[string]any{"is_official": official}); err != nil {
		return nil, err
	}
	return s.tags.GetByID(ctx, id)
}

// canEditTag allows the creator and admins. Tags without a creator are admin-only.
func canEditTag(actor *models.User, tag *models.Tag) bool {
	if actor.IsAdmin() {
		return true
	}
	return tag.CreatedByID != nil && *tag.CreatedByID == actor.ID
}

func validateTagDetails(description, color *string) error {
	if description != nil && utf8.RuneCountInString(strings.TrimSpace(*description)) > maxTagDescriptionLen {
		return fieldError("description", "Description cannot exceed 500 characters")
	}
	if color != nil && *color != "" && !validation.IsHexColor(*color) {
		return fieldError("color", "Color must be a valid hex color")
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
