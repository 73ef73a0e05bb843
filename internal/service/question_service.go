package service

import (
	"context"
	"strings"

	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"
	"stackit/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	minTitleLen       = 10
	maxTitleLen       = 200
	minDescriptionLen = 20
)

type QuestionService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
}

type CreateQuestionInput struct {
	Author      *models.User
	Title       string
	Description string
	Tags        []string
}

// UpdateQuestionInput changes only the non-nil fields. A nil Tags keeps the current tags.
type UpdateQuestionInput struct {
	Actor       *models.User
	QuestionID  uint
	Title       *string
	Description *string
	Tags        []string
}

func NewQuestionService(questions repository.QuestionRepository, answers repository.AnswerRepository) *QuestionService {
	return &QuestionService{questions: questions, answers: answers}
}

func (s *QuestionService) List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	if filter.Sort != "" && !filter.Sort.IsValid() {
		return nil, 0, models.NewValidationError("Sort must be one of: newest, oldest, votes, views, activity")
	}
	return s.questions.List(ctx, filter)
}

func (s *QuestionService) Search(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	if strings.TrimSpace(filter.Search) == "" {
		return nil, 0, models.NewValidationError("Search query is required")
	}
	return s.List(ctx, filter)
}

// Get counts a view and returns the question with every answer, accepted first.
func (s *QuestionService) Get(ctx context.Context, id, viewerID uint) (*models.QuestionDetail, error) {
	if err := s.questions.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	q, err := s.questions.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	answers, _, err := s.answers.ListByQuestion(ctx, id, models.AnswerSortVotes, 1, 0, viewerID)
	if err != nil {
		return nil, err
	}
	return &models.QuestionDetail{Question: q, Answers: answers}, nil
}

func (s *QuestionService) Create(ctx context.Context, in CreateQuestionInput) (*models.Question, error) {
	ctx, span := observability.StartServiceSpan(ctx, "QuestionService", "Create",
		attribute.Int64("user.id", int64(in.Author.ID)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var fields []models.FieldError
	if !lengthBetween(in.Title, minTitleLen, maxTitleLen) {
		fields = append(fields, models.FieldError{Field: "title", Message: "Title must be between 10 and 200 characters"})
	}
	if !lengthBetween(in.Description, minDescriptionLen, 0) {
		fields = append(fields, models.FieldError{Field: "description", Message: "Description must be at least 20 characters"})
	}
	tags, tagErr := normalizeQuestionTags(in.Tags)
	if tagErr != nil {
		fields = append(fields, *tagErr)
	}
	if len(fields) > 0 {
		err = models.NewFieldValidationError(fields[0].Message, fields)
		return nil, err
	}

	q := &models.Question{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		AuthorID:    in.Author.ID,
	}
	if err = s.questions.Create(ctx, q, tags); err != nil {
		return nil, err
	}
	var created *models.Question
	created, err = s.questions.GetByID(ctx, q.ID, in.Author.ID)
	return created, err
}

func (s *QuestionService) Update(ctx context.Context, in UpdateQuestionInput) (*models.Question, error) {
	q, err := s.questions.Get(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if !canModify(in.Actor, q.AuthorID) {
		return nil, models.NewForbiddenError("You can only edit your own questions")
	}

	fields := map[string]any{}
	if in.Title != nil {
		if !lengthBetween(*in.Title, minTitleLen, maxTitleLen) {
			return nil, fieldError("title", "Title must be between 10 and 200 characters")
		}
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		if !lengthBetween(*in.Description, minDescriptionLen, 0) {
			return nil, fieldError("description", "Description must be at least 20 characters")
		}
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	var tags []string
	if in.Tags != nil {
		var tagErr *models.FieldError
		if tags, tagErr = normalizeQuestionTags(in.Tags); tagErr != nil {
			return nil, models.NewFieldValidationError(tagErr.Message, []models.FieldError{*tagErr})
		}
	}

	if err := s.questions.Update(ctx, q.ID, fields, tags, in.Actor.ID); err != nil {
		return nil, err
	}
	return s.questions.GetByID(ctx, q.ID, in.Actor.ID)
}

func (s *QuestionService) Delete(ctx context.Context, actor *models.User, id uint) error {
	q, err := s.questions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, q.AuthorID) {
		return models.NewForbiddenError("You can only delete your own questions")
	}
	return s.questions.Delete(ctx, id)
}

// SetClosed opens or closes a question. The author may always do it; others
// need the close capability.
func (s *QuestionService) SetClosed(ctx context.Context, actor *models.User, id uint, closed bool) (*models.Question, error) {
	q, err := s.questions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.IsAuthor(actor.ID) && !actor.Can(models.CapabilityCloseQuestion) {
		return nil, models.NewForbiddenError("You can only close your own questions")
	}
	if err := s.questions.SetClosed(ctx, id, closed); err != nil {
		return nil, err
	}
	return s.questions.GetByID(ctx, id, actor.ID)
}

// normalizeQuestionTags lower-cases, dedupes and validates tag names.
func normalizeQuestionTags(raw []string) ([]string, *models.FieldError) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, name := range raw {
		name = validation.NormalizeTagName(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if err := validation.ValidateTagName(name); err != nil {
			return nil, &models.FieldError{Field: "tags", Message: "Invalid tag \"" + name + "\": " + err.Error()}
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	switch {
	case len(tags) == 0:
		return nil, &models.FieldError{Field: "tags", Message: "At least one tag is required"}
	case len(tags) > models.MaxQuestionTags:
		return nil, &models.FieldError{Field: "tags", Message: "A maximum of 5 tags is allowed"}
	}
	return tags, nil
}
