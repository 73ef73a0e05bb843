package server

import (
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/notifications
// @Summary List notifications
// @Description Newest first; soft-deleted notifications are hidden
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size (default 20)"
// @Param unreadOnly query bool false "Only unread notifications"
// @Param type query string false "Notification type"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /notifications [get]
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	p := s.parsePage(c, notificationPageSize)
	unreadOnly := queryBool(c, "unreadOnly")
	items, total, err := s.notificationService.List(c.UserContext(), viewerID(c), models.NotificationFilter{
		Page:       p.Page,
		Limit:      p.Limit,
		UnreadOnly: unreadOnly != nil && *unreadOnly,
		Type:       models.NotificationType(c.Query("type")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return models.RespondList(c, "notifications", items, models.NewPageInfo(p.Page, p.Limit, total))
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"count": count})
}

// MarkNotificationRead handles PUT /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notificationService.MarkRead(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Notification marked as read", fiber.Map{"notification": n})
}

// MarkNotificationUnread handles PUT /api/notifications/:id/unread
func (s *Server) MarkNotificationUnread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notificationService.MarkUnread(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Notification marked as unread", fiber.Map{"notification": n})
}

// MarkAllNotificationsRead handles PUT /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "All notifications marked as read", fiber.Map{"updated": n})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.Delete(c.UserContext(), viewerID(c), id); err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Notification deleted successfully", nil)
}

// DeleteAllNotifications handles DELETE /api/notifications
func (s *Server) DeleteAllNotifications(c *fiber.Ctx) error {
	n, err := s.notificationService.DeleteAll(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "All notifications deleted successfully", fiber.Map{"deleted": n})
}

// RestoreNotification handles POST /api/notifications/:id/restore
func (s *Server) RestoreNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notificationService.Restore(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Notification restored", fiber.Map{"notification": n})
}

// PurgeNotifications handles DELETE /api/admin/notifications/purge?days=N
// @Summary Purge old read notifications
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param days query int false "Age in days (defaults to the configured retention)"
// @Success 200 {object} models.APIResponse{data=models.NotificationPurgeResult}
// @Router /admin/notifications/purge [delete]
func (s *Server) PurgeNotifications(c *fiber.Ctx) error {
	days := c.QueryInt("days", 0)
	if days < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("days must be a positive number"))
	}
	res, err := s.notificationService.Purge(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Notifications purged", res)
}
