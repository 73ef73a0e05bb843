package server

import (
	"stackit/internal/models"
	"stackit/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	VoteType models.VoteType `json:"voteType"`
}

func (s *Server) questionFilter(c *fiber.Ctx) models.QuestionFilter {
	p := s.parsePage(c, 0)
	return models.QuestionFilter{
		Page:     p.Page,
		Limit:    p.Limit,
		Sort:     models.QuestionSort(c.Query("sort")),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Author:   c.Query("author"),
		Answered: queryBool(c, "answered"),
		ViewerID: viewerID(c),
	}
}

// ListQuestions handles GET /api/questions
// @Summary List questions
// @Tags questions
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 50)"
// @Param sort query string false "newest, oldest, votes, views or activity"
// @Param tag query string false "Tag name"
// @Param search query string false "Substring of title or description"
// @Param author query string false "Author username"
// @Param answered query bool false "Only questions with (or without) an accepted answer"
// @Success 200 {object} models.APIResponse
// @Router /questions [get]
func (s *Server) ListQuestions(c *fiber.Ctx) error {
	filter := s.questionFilter(c)
	questions, total, err := s.questionService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "questions", questions, models.NewPageInfo(filter.Page, filter.Limit, total))
}

// SearchQuestions handles GET /api/questions/search?q=
// @Summary Search questions
// @Tags questions
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /questions/search [get]
func (s *Server) SearchQuestions(c *fiber.Ctx) error {
	filter := s.questionFilter(c)
	filter.Search = c.Query("q")
	questions, total, err := s.questionService.Search(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "questions", questions, models.NewPageInfo(filter.Page, filter.Limit, total))
}

// GetQuestion handles GET /api/questions/:id. Each call counts a view.
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} models.APIResponse{data=models.QuestionDetail}
// @Failure 404 {object} models.ErrorResponse
// @Router /questions/{id} [get]
func (s *Server) GetQuestion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.questionService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", detail)
}

// CreateQuestion handles POST /api/questions
// @Summary Ask a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,description=string,tags=[]string} true "Question"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /questions [post]
func (s *Server) CreateQuestion(c *fiber.Ctx) error {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	q, err := s.questionService.Create(c.UserContext(), service.CreateQuestionInput{
		Author:      currentUser(c),
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Question created successfully", fiber.Map{"question": q})
}

// UpdateQuestion handles PUT /api/questions/:id
// @Summary Edit a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Param request body object{title=string,description=string,tags=[]string} true "Changed fields"
// @Success 200 {object} models.APIResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /questions/{id} [put]
func (s *Server) UpdateQuestion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	q, err := s.questionService.Update(c.UserContext(), service.UpdateQuestionInput{
		Actor:       currentUser(c),
		QuestionID:  id,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Question updated successfully", fiber.Map{"question": q})
}

// DeleteQuestion handles DELETE /api/questions/:id
// @Summary Delete a question
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Success 200 {object} models.APIResponse
// @Router /questions/{id} [delete]
func (s *Server) DeleteQuestion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.questionService.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Question deleted successfully", nil)
}

// VoteQuestion handles POST /api/questions/:id/vote
// @Summary Vote on a question
// @Description Repeating the same vote retracts it
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Param request body object{voteType=string} true "upvote or downvote"
// @Success 200 {object} models.APIResponse{data=models.VoteResult}
// @Failure 403 {object} models.ErrorResponse
// @Router /questions/{id}/vote [post]
func (s *Server) VoteQuestion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.voteService.VoteQuestion(c.UserContext(), currentUser(c), id, req.VoteType)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Vote recorded successfully", res)
}

// CloseQuestion handles PUT /api/questions/:id/close
// @Summary Close or reopen a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Param request body object{isClosed=bool} true "Closed state"
// @Success 200 {object} models.APIResponse
// @Router /questions/{id}/close [put]
func (s *Server) CloseQuestion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		IsClosed bool `json:"isClosed"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	q, err := s.questionService.SetClosed(c.UserContext(), currentUser(c), id, req.IsClosed)
	if err != nil {
		return respondError(c, err)
	}
	msg := "Question opened successfully"
	if q.IsClosed {
		msg = "Question closed successfully"
	}
	return models.Respond(c, fiber.StatusOK, msg, fiber.Map{"isClosed": q.IsClosed})
}
