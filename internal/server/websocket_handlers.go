package server

import (
	"context"
	"log/slog"

	"stackit/internal/cache"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on
// a websocket handshake, so the client trades its token for a short lived
// single use ticket and passes it as ?ticket= on /api/ws.
// @Summary Issue a websocket ticket
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return respondError(c, models.NewUnavailableError("Realtime notifications are unavailable"))
	}
	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), viewerID(c), cache.WSTicketTTL).Err(); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{
		"ticket":    ticket,
		"expiresIn": int(cache.WSTicketTTL.Seconds()),
	})
}

// WebSocketUpgradeRequired rejects plain HTTP requests to the socket route
// before authentication runs.
func (s *Server) WebSocketUpgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// WebsocketHandler streams the caller's notification events.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.WebSocketEventsTotal.WithLabelValues("rejected").Inc()
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			_ = conn.WriteJSON(fiber.Map{"type": "error", "message": err.Error()})
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("websocket connected", slog.Uint64("user_id", uint64(userID)))

		go client.WritePump()
		if s.dispatcher != nil {
			// The socket starts in sync with the badge count.
			s.dispatcher.PublishUnreadCount(context.Background(), userID)
		}
		client.ReadPump()
	})
}
