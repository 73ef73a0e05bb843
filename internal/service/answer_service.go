package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	minAnswerLen  = 10
	maxAnswerLen  = 10000
	minCommentLen = 2
	maxCommentLen = 1000
)

type AnswerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	notify    NotificationEmitter
	now       func() time.Time
}

type CreateAnswerInput struct {
	Author     *models.User
	QuestionID uint
	Content    string
}

// AcceptResult reports the acceptance state after a toggle.
type AcceptResult struct {
	IsAccepted bool `json:"isAccepted"`
}

func NewAnswerService(answers repository.AnswerRepository, questions repository.QuestionRepository, notify NotificationEmitter) *AnswerService {
	return &AnswerService{
		answers:   answers,
		questions: questions,
		notify:    emitterOrNoop(notify),
		now:       time.Now,
	}
}

func (s *AnswerService) List(ctx context.Context, questionID uint, sort models.AnswerSort, page, limit int, viewerID uint) ([]*models.Answer, int64, error) {
	switch sort {
	case "", models.AnswerSortVotes, models.AnswerSortNewest, models.AnswerSortOldest:
	default:
		return nil, 0, models.NewValidationError("Sort must be one of: votes, newest, oldest")
	}
	if _, err := s.questions.Get(ctx, questionID); err != nil {
		return nil, 0, err
	}
	return s.answers.ListByQuestion(ctx, questionID, sort, page, limit, viewerID)
}

func (s *AnswerService) Get(ctx context.Context, id, viewerID uint) (*models.Answer, error) {
	return s.answers.GetByID(ctx, id, viewerID)
}

func (s *AnswerService) Create(ctx context.Context, in CreateAnswerInput) (*models.Answer, error) {
	ctx, span := observability.StartServiceSpan(ctx, "AnswerService", "Create",
		attribute.Int64("question.id", int64(in.QuestionID)),
		attribute.Int64("user.id", int64(in.Author.ID)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if !lengthBetween(in.Content, minAnswerLen, maxAnswerLen) {
		err = fieldError("content", "Answer must be between 10 and 10000 characters")
		return nil, err
	}

	var q *models.Question
	if q, err = s.questions.Get(ctx, in.QuestionID); err != nil {
		return nil, err
	}
	if q.IsClosed {
		err = models.NewValidationError("Cannot answer a closed question")
		return nil, err
	}
	var answered bool
	if answered, err = s.answers.HasAnswered(ctx, q.ID, in.Author.ID); err != nil {
		return nil, err
	}
	if answered {
		err = models.NewValidationError("You have already answered this question")
		return nil, err
	}

	a := &models.Answer{
		QuestionID: q.ID,
		AuthorID:   in.Author.ID,
		Content:    strings.TrimSpace(in.Content),
	}
	if err = s.answers.Create(ctx, a); err != nil {
		return nil, err
	}
	if err = s.questions.TouchActivity(ctx, q.ID, s.now()); err != nil {
		return nil, err
	}

	if !q.IsAuthor(in.Author.ID) {
		s.notify.Emit(ctx, models.NotificationEvent{
			RecipientID: q.AuthorID,
			Type:        models.NotificationQuestionAnswered,
			Title:       "Your question received an answer",
			Message:     fmt.Sprintf("%s answered your question \"%s\"", in.Author.Username, q.Title),
			Data: models.NotificationData{
				QuestionID: uintPtr(q.ID),
				AnswerID:   uintPtr(a.ID),
				UserID:     uintPtr(in.Author.ID),
			},
		})
	}

	var created *models.Answer
	created, err = s.answers.GetByID(ctx, a.ID, in.Author.ID)
	return created, err
}

func (s *AnswerService) Update(ctx context.Context, actor *models.User, id uint, content string) (*models.Answer, error) {
	a, err := s.answers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, a.AuthorID) {
		return nil, models.NewForbiddenError("You can only edit your own answers")
	}
	if !lengthBetween(content, minAnswerLen, maxAnswerLen) {
		return nil, fieldError("content", "Answer must be between 10 and 10000 characters")
	}
	if err := s.answers.UpdateContent(ctx, id, strings.TrimSpace(content)); err != nil {
		return nil, err
	}
	return s.answers.GetByID(ctx, id, actor.ID)
}

func (s *AnswerService) Delete(ctx context.Context, actor *models.User, id uint) error {
	a, err := s.answers.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, a.AuthorID) {
		return models.NewForbiddenError("You can only delete your own answers")
	}
	return s.answers.Delete(ctx, id)
}

// Accept toggles the acceptance of an answer. Only the question's author or an
// admin may do it. Accepting notifies the answer's author.
func (s *AnswerService) Accept(ctx context.Context, actor *models.User, id uint) (*AcceptResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "AnswerService", "Accept",
		attribute.Int64("answer.id", int64(id)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var a *models.Answer
	if a, err = s.answers.Get(ctx, id); err != nil {
		return nil, err
	}
	var q *models.Question
	if q, err = s.questions.Get(ctx, a.QuestionID); err != nil {
		return nil, err
	}
	if !canModify(actor, q.AuthorID) {
		err = models.NewForbiddenError("Only the question author can accept answers")
		return nil, err
	}

	var accepted bool
	if accepted, err = s.answers.ToggleAccept(ctx, a); err != nil {
		return nil, err
	}
	if !accepted {
		observability.AcceptTransitionsTotal.WithLabelValues("unaccept").Inc()
		return &AcceptResult{IsAccepted: false}, nil
	}
	observability.AcceptTransitionsTotal.WithLabelValues("accept").Inc()

	if a.AuthorID != actor.ID {
		s.notify.Emit(ctx, models.NotificationEvent{
			RecipientID: a.AuthorID,
			Type:        models.NotificationAnswerAccepted,
			Title:       "Your answer was accepted",
			Message:     fmt.Sprintf("%s accepted your answer", actor.Username),
			Data: models.NotificationData{
				QuestionID: uintPtr(q.ID),
				AnswerID:   uintPtr(a.ID),
				UserID:     uintPtr(actor.ID),
			},
		})
	}
	return &AcceptResult{IsAccepted: true}, nil
}

func (s *AnswerService) AddComment(ctx context.Context, actor *models.User, answerID uint, content string) (*models.AnswerComment, error) {
	if !lengthBetween(content, minCommentLen, maxCommentLen) {
		return nil, fieldError("content", "Comment must be between 2 and 1000 characters")
	}
	a, err := s.answers.Get(ctx, answerID)
	if err != nil {
		return nil, err
	}

	c := &models.AnswerComment{
		AnswerID: a.ID,
		AuthorID: actor.ID,
		Content:  strings.TrimSpace(content),
	}
	if err := s.answers.AddComment(ctx, c); err != nil {
		return nil, err
	}
	c.AuthorInfo = actor.Summary()

	if a.AuthorID != actor.ID {
		s.notify.Emit(ctx, models.NotificationEvent{
			RecipientID: a.AuthorID,
			Type:        models.NotificationCommentAdded,
			Title:       "New comment on your answer",
			Message:     fmt.Sprintf("%s commented on your answer", actor.Username),
			Data: models.NotificationData{
				QuestionID: uintPtr(a.QuestionID),
				AnswerID:   uintPtr(a.ID),
				CommentID:  uintPtr(c.ID),
				UserID:     uintPtr(actor.ID),
			},
		})
	}
	return c, nil
}

func (s *AnswerService) DeleteComment(ctx context.Context, actor *models.User, answerID, commentID uint) error {
	if _, err := s.answers.Get(ctx, answerID); err != nil {
		return err
	}
	c, err := s.answers.GetComment(ctx, answerID, commentID)
	if err != nil {
		return err
	}
	if !canModify(actor, c.AuthorID) {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.answers.DeleteComment(ctx, commentID)
}
