package service

import (
	"context"
	"fmt"

	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VoteService applies votes to questions and answers. The vote capability is
// checked by the route before the service is reached.
type VoteService struct {
	votes     repository.VoteRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	notify    NotificationEmitter
}

func NewVoteService(votes repository.VoteRepository, questions repository.QuestionRepository, answers repository.AnswerRepository, notify NotificationEmitter) *VoteService {
	return &VoteService{
		votes:     votes,
		questions: questions,
		answers:   answers,
		notify:    emitterOrNoop(notify),
	}
}

func (s *VoteService) VoteQuestion(ctx context.Context, voter *models.User, questionID uint, voteType models.VoteType) (*models.VoteResult, error) {
	if !voteType.IsValid() {
		return nil, fieldError("voteType", "Vote type must be upvote or downvote")
	}
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.IsAuthor(voter.ID) {
		return nil, models.NewForbiddenError("You cannot vote on your own question")
	}

	res, err := s.apply(ctx, models.VoteTargetQuestion, q.ID, voter.ID, voteType)
	if err != nil {
		return nil, err
	}
	if res.Cast && voteType == models.VoteUp {
		s.notify.Emit(ctx, models.NotificationEvent{
			RecipientID: q.AuthorID,
			Type:        models.NotificationQuestionVoted,
			Title:       "Your question received an upvote",
			Message:     fmt.Sprintf("%s upvoted your question \"%s\"", voter.Username, q.Title),
			Data: models.NotificationData{
				QuestionID: uintPtr(q.ID),
				UserID:     uintPtr(voter.ID),
				VoteType:   string(voteType),
			},
		})
	}
	return res, nil
}

func (s *VoteService) VoteAnswer(ctx context.Context, voter *models.User, answerID uint, voteType models.VoteType) (*models.VoteResult, error) {
	if !voteType.IsValid() {
		return nil, fieldError("voteType", "Vote type must be upvote or downvote")
	}
	a, err := s.answers.Get(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if a.IsAuthor(voter.ID) {
		return nil, models.NewForbiddenError("You cannot vote on your own answer")
	}

	res, err := s.apply(ctx, models.VoteTargetAnswer, a.ID, voter.ID, voteType)
	if err != nil {
		return nil, err
	}
	if res.Cast && voteType == models.VoteUp {
		s.notify.Emit(ctx, models.NotificationEvent{
			RecipientID: a.AuthorID,
			Type:        models.NotificationAnswerVoted,
			Title:       "Your answer received an upvote",
			Message:     fmt.Sprintf("%s upvoted your answer", voter.Username),
			Data: models.NotificationData{
				QuestionID: uintPtr(a.QuestionID),
				AnswerID:   uintPtr(a.ID),
				UserID:     uintPtr(voter.ID),
				VoteType:   string(voteType),
			},
		})
	}
	return res, nil
}

func (s *VoteService) apply(ctx context.Context, target models.VoteTarget, id, userID uint, voteType models.VoteType) (*models.VoteResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "VoteService", "Apply",
		attribute.String("vote.target", string(target)),
		attribute.Int64("vote.target_id", int64(id)),
		attribute.String("vote.type", string(voteType)))

	res, err := s.votes.Apply(ctx, target, id, userID, voteType)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	outcome := string(voteType)
	if !res.Cast {
		outcome = "retracted"
	}
	observability.VotesTotal.WithLabelValues(string(target), outcome).Inc()
	return res, nil
}
