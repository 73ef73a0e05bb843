package server

import (
	"stackit/internal/models"
	"stackit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListTags handles GET /api/tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "name, popular or newest"
// @Param search query string false "Name substring"
// @Success 200 {object} models.APIResponse
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	p := s.parsePage(c, 0)
	tags, total, err := s.tagService.List(c.UserContext(), models.TagFilter{
		Page:   p.Page,
		Limit:  p.Limit,
		Sort:   models.TagSort(c.Query("sort")),
		Search: c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "tags", tags, models.NewPageInfo(p.Page, p.Limit, total))
}

// PopularTags handles GET /api/tags/popular
func (s *Server) PopularTags(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if maxLimit := s.config.MaxPageSize; maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	tags, err := s.tagService.Popular(c.UserContext(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"tags": tags})
}

// SearchTags handles GET /api/tags/search?q=
func (s *Server) SearchTags(c *fiber.Ctx) error {
	tags, err := s.tagService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"tags": tags})
}

// GetTag handles GET /api/tags/:id
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tag, err := s.tagService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"tag": tag})
}

// CreateTag handles POST /api/tags
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,description=string,color=string} true "Tag"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /tags [post]
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	tag, err := s.tagService.Create(c.UserContext(), service.CreateTagInput{
		Creator:     currentUser(c),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Tag created successfully", fiber.Map{"tag": tag})
}

// UpdateTag handles PUT /api/tags/:id
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Description *string `json:"description"`
		Color       *string `json:"color"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	tag, err := s.tagService.Update(c.UserContext(), service.UpdateTagInput{
		Actor:       currentUser(c),
		TagID:       id,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Tag updated successfully", fiber.Map{"tag": tag})
}

// DeleteTag handles DELETE /api/tags/:id
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.tagService.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Tag deleted successfully", nil)
}

// SetTagOfficial handles PUT /api/tags/:id/official
func (s *Server) SetTagOfficial(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		IsOfficial bool `json:"isOfficial"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	tag, err := s.tagService.SetOfficial(c.UserContext(), currentUser(c), id, req.IsOfficial)
	if err != nil {
		return respondError(c, err)
	}
	msg := "Tag made unofficial successfully"
	if tag.IsOfficial {
		msg = "Tag made official successfully"
	}
	return models.Respond(c, fiber.StatusOK, msg, fiber.Map{"tag": tag})
}
