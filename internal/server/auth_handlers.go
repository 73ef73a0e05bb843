package server

import (
	"io"
	"log/slog"

	"stackit/internal/featureflags"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} models.APIResponse{data=service.AuthResult}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "User registered successfully", res)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Credentials"
// @Success 200 {object} models.APIResponse{data=service.AuthResult}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Login successful", res)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.authService.Me(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"user": user})
}

// UpdateProfile handles PUT /api/auth/profile
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{bio=string,avatar=string} true "Profile fields"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Router /auth/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Bio    *string `json:"bio"`
		Avatar *string `json:"avatar"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.authService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID: viewerID(c),
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"user": user})
}

// UploadAvatar handles POST /api/auth/avatar
// @Summary Upload avatar
// @Description Accepts a JPEG, PNG or WebP image in the "avatar" form field
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Router /auth/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID := viewerID(c)
	if !s.featureFlags.Enabled(featureflags.AvatarUploads, userID) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundMessage("Avatar uploads are disabled"))
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("No file uploaded", []models.FieldError{{Field: "avatar", Message: "No file uploaded"}}))
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	user, err := s.avatarService.Upload(c.UserContext(), service.UploadAvatarInput{
		UserID:  userID,
		Content: content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Avatar updated successfully", fiber.Map{"user": user})
}

// ChangePassword handles PUT /api/auth/change-password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPassword=string,newPassword=string} true "Passwords"
// @Success 200 {object} models.APIResponse
// @Router /auth/change-password [put]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ChangePassword(c.UserContext(), viewerID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Password updated successfully", nil)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revokes the current token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return respondError(c, err)
	}
	c.ClearCookie(middleware.TokenCookieName)
	return models.Respond(c, fiber.StatusOK, "Logged out successfully", nil)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh token
// @Description Issues a new token and revokes the one presented
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=service.AuthResult}
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	res, err := s.authService.Refresh(c.UserContext(), currentUser(c), currentClaims(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Token refreshed", res)
}

// ForgotPassword handles POST /api/auth/forgot-password. It answers 200
// whether or not the email is registered.
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} models.APIResponse
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("Email is required", []models.FieldError{{Field: "email", Message: "Email is required"}}))
	}

	token, err := s.authService.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return respondError(c, err)
	}

	const msg = "If that email is registered, a reset link has been sent"
	if token == "" {
		return models.Respond(c, fiber.StatusOK, msg, nil)
	}
	if s.config.IsProduction() {
		// TODO: hand the token to a mailer once one exists instead of the log
		middleware.Logger.InfoContext(c.UserContext(), "password reset requested",
			slog.String("email", req.Email), slog.String("reset_token", token))
		return models.Respond(c, fiber.StatusOK, msg, nil)
	}
	return models.Respond(c, fiber.StatusOK, msg, fiber.Map{"resetToken": token})
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{token=string,password=string} true "Reset token and new password"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Password has been reset", nil)
}
