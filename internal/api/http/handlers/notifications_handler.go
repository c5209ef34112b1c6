package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationsHandler serves the caller's own notifications.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs the handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := h.notifications.List(c.UserContext(), a, queryBool(c, "unread"), limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponses(items))
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.JSON(dto.UnreadCountResponse{Count: count})
}

// MarkRead handles PUT /api/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	notification, err := h.notifications.MarkRead(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponse(notification))
}

// MarkAllRead handles PUT /api/notifications/mark-all-read.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.JSON(dto.MarkAllReadResponse{Updated: updated})
}

// Delete handles DELETE /api/notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.Delete(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
