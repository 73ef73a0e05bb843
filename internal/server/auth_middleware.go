package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"stackit/internal/cache"
	"stackit/internal/middleware"
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// lastActiveResolution bounds how often an authenticated request writes lastActive.
const lastActiveResolution = time.Minute

var errInvalidTicket = errors.New("invalid or expired websocket ticket")

// AuthRequired resolves the caller from a WebSocket ticket (on /api/ws only)
// or a JWT, re-reads the user and rejects deleted or banned accounts.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var (
			userID uint
			claims *middleware.Claims
		)
		if ticket := c.Query("ticket"); ticket != "" && strings.HasPrefix(c.Path(), "/api/ws") {
			id, err := s.consumeWSTicket(ctx, ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			userID = id
		} else {
			token := middleware.ExtractToken(c)
			if token == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Not authorized to access this route"))
			}
			var err error
			if claims, err = s.tokens.Parse(token); err != nil {
				return models.RespondWithError(c, models.StatusFor(err), err)
			}
			revoked, err := s.tokens.IsRevoked(ctx, claims.JTI)
			if err != nil {
				middleware.Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
			}
			if revoked {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
			userID = claims.UserID
		}

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if models.IsNotFound(err) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User not found"))
			}
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		if user.IsBanned {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Your account has been banned"))
		}

		s.touchLastActive(ctx, user)

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		if claims != nil {
			c.Locals("claims", claims)
		}
		c.SetUserContext(middleware.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.ExtractToken(c)
		if token == "" {
			return c.Next()
		}
		ctx := c.UserContext()
		claims, err := s.tokens.Parse(token)
		if err != nil {
			return c.Next()
		}
		if revoked, _ := s.tokens.IsRevoked(ctx, claims.JTI); revoked {
			return c.Next()
		}
		user, err := s.userRepo.GetByID(ctx, claims.UserID)
		if err != nil || user.IsBanned {
			return c.Next()
		}
		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.SetUserContext(middleware.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentUser(c).IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// RequireCapability rejects callers whose reputation or role does not unlock capability.
func (s *Server) RequireCapability(capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		if user == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		if !user.Can(capability) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError(capabilityMessage(capability)))
		}
		return c.Next()
	}
}

func capabilityMessage(capability models.Capability) string {
	rep := models.RequiredReputation(capability)
	switch capability {
	case models.CapabilityVote:
		return fmt.Sprintf("Minimum reputation of %d required to vote", rep)
	case models.CapabilityComment:
		return fmt.Sprintf("Minimum reputation of %d required to comment", rep)
	case models.CapabilityCreateTags:
		return fmt.Sprintf("Minimum reputation of %d required to create tags", rep)
	case models.CapabilityModerate:
		return fmt.Sprintf("Minimum reputation of %d or admin role required to moderate content", rep)
	case models.CapabilityCloseQuestion:
		return fmt.Sprintf("Minimum reputation of %d or admin role required to close questions", rep)
	}
	return "Insufficient reputation"
}

// consumeWSTicket redeems a single-use ticket for the user it was issued to.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if s.redis == nil {
		return 0, errInvalidTicket
	}
	val, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "websocket ticket lookup failed", slog.String("error", err.Error()))
		}
		return 0, errInvalidTicket
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidTicket
	}
	return uint(id), nil
}

func (s *Server) touchLastActive(ctx context.Context, user *models.User) {
	now := time.Now()
	if now.Sub(user.LastActive) < lastActiveResolution {
		return
	}
	if err := s.userRepo.TouchLastActive(ctx, user.ID, now); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record activity", slog.String("error", err.Error()))
		return
	}
	user.LastActive = now
}

// currentUser returns the user stored by AuthRequired or OptionalAuth, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func currentClaims(c *fiber.Ctx) *middleware.Claims {
	claims, _ := c.Locals("claims").(*middleware.Claims)
	return claims
}

func viewerID(c *fiber.Ctx) uint {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}
