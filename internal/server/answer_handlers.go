package server

import (
	"stackit/internal/models"
	"stackit/internal/service"

	"github.com/gofiber/fiber/v2"
)

type answerContentRequest struct {
	Content string `json:"content"`
}

// ListAnswers handles GET /api/answers/question/:questionId and its
// /api/questions/:questionId/answers alias.
// @Summary List a question's answers
// @Tags answers
// @Produce json
// @Param questionId path int true "Question ID"
// @Param sort query string false "votes (default), newest or oldest"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /answers/question/{questionId} [get]
func (s *Server) ListAnswers(c *fiber.Ctx) error {
	questionID, err := s.parseID(c, "questionId")
	if err != nil {
		return nil
	}
	p := s.parsePage(c, 0)
	answers, total, err := s.answerService.List(c.UserContext(), questionID,
		models.AnswerSort(c.Query("sort")), p.Page, p.Limit, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "answers", answers, models.NewPageInfo(p.Page, p.Limit, total))
}

// GetAnswer handles GET /api/answers/:id
func (s *Server) GetAnswer(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	a, err := s.answerService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"answer": a})
}

// CreateAnswer handles POST /api/answers/question/:questionId
// @Summary Answer a question
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "Question ID"
// @Param request body object{content=string} true "Answer"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /answers/question/{questionId} [post]
func (s *Server) CreateAnswer(c *fiber.Ctx) error {
	questionID, err := s.parseID(c, "questionId")
	if err != nil {
		return nil
	}
	var req answerContentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	a, err := s.answerService.Create(c.UserContext(), service.CreateAnswerInput{
		Author:     currentUser(c),
		QuestionID: questionID,
		Content:    req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Answer created successfully", fiber.Map{"answer": a})
}

// UpdateAnswer handles PUT /api/answers/:id
// @Summary Edit an answer
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Answer ID"
// @Param request body object{content=string} true "New content"
// @Success 200 {object} models.APIResponse
// @Router /answers/{id} [put]
func (s *Server) UpdateAnswer(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req answerContentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	a, err := s.answerService.Update(c.UserContext(), currentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Answer updated successfully", fiber.Map{"answer": a})
}

// DeleteAnswer handles DELETE /api/answers/:id
// @Summary Delete an answer
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Answer ID"
// @Success 200 {object} models.APIResponse
// @Router /answers/{id} [delete]
func (s *Server) DeleteAnswer(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.answerService.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Answer deleted successfully", nil)
}

// VoteAnswer handles POST /api/answers/:id/vote
// @Summary Vote on an answer
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Answer ID"
// @Param request body object{voteType=string} true "upvote or downvote"
// @Success 200 {object} models.APIResponse{data=models.VoteResult}
// @Router /answers/{id}/vote [post]
func (s *Server) VoteAnswer(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.voteService.VoteAnswer(c.UserContext(), currentUser(c), id, req.VoteType)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Vote recorded successfully", res)
}

// AcceptAnswer handles PUT /api/answers/:id/accept. Accepting the accepted
// answer unaccepts it.
// @Summary Accept or unaccept an answer
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Answer ID"
// @Success 200 {object} models.APIResponse{data=service.AcceptResult}
// @Failure 403 {object} models.ErrorResponse
// @Router /answers/{id}/accept [put]
func (s *Server) AcceptAnswer(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.answerService.Accept(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	msg := "Answer unaccepted successfully"
	if res.IsAccepted {
		msg = "Answer accepted successfully"
	}
	return models.Respond(c, fiber.StatusOK, msg, res)
}

// AddComment handles POST /api/answers/:id/comments
// @Summary Comment on an answer
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Answer ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.APIResponse
// @Router /answers/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req answerContentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.answerService.AddComment(c.UserContext(), currentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Comment added successfully", fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /api/answers/:answerId/comments/:commentId
// @Summary Remove a comment
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param answerId path int true "Answer ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} models.APIResponse
// @Router /answers/{answerId}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	answerID, err := s.parseID(c, "answerId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.answerService.DeleteComment(c.UserContext(), currentUser(c), answerID, commentID); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Comment removed successfully", nil)
}
