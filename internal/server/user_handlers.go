package server

import (
	"fmt"

	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:username
// @Summary Public profile
// @Description Profile with the user's recent questions, answers and counters
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.APIResponse{data=models.UserProfile}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	p := s.parsePage(c, 0)
	profile, err := s.userService.Profile(c.UserContext(), c.Params("username"), p.Page, p.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", profile)
}

// GetUserStats handles GET /api/users/:id/stats
func (s *Server) GetUserStats(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stats, err := s.userService.Stats(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"stats": stats})
}

// ListUsers handles GET /api/users (admin)
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param sort query string false "reputation, newest, oldest or username"
// @Param search query string false "Username or email substring"
// @Param role query string false "user or admin"
// @Success 200 {object} models.APIResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := s.parsePage(c, 0)
	users, total, err := s.userService.List(c.UserContext(), models.UserFilter{
		Page:   p.Page,
		Limit:  p.Limit,
		Sort:   models.UserSort(c.Query("sort")),
		Search: c.Query("search"),
		Role:   models.Role(c.Query("role")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "users", users, models.NewPageInfo(p.Page, p.Limit, total))
}

// BanUser handles PUT /api/users/:id/ban (admin). Without an isBanned body
// the current state is flipped.
func (s *Server) BanUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		IsBanned *bool `json:"isBanned"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	user, err := s.userService.SetBanned(c.UserContext(), id, req.IsBanned)
	if err != nil {
		return respondError(c, err)
	}
	msg := "User unbanned successfully"
	if user.IsBanned {
		msg = "User banned successfully"
	}
	return models.Respond(c, fiber.StatusOK, msg, fiber.Map{"isBanned": user.IsBanned})
}

// SetUserRole handles PUT /api/users/:id/role (admin)
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.SetRole(c.UserContext(), id, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK,
		fmt.Sprintf("User role changed to %s successfully", user.Role), fiber.Map{"role": user.Role})
}

// DeleteUser handles DELETE /api/users/:id (admin)
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "User deleted successfully", nil)
}
