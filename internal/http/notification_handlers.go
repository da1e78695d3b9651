package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/licitabrasil/licita-api/internal/model"
)

func (h *Handler) listNotifications(c *gin.Context) {
	pr, ok := principal(c)
	if !ok {
		return
	}
	p := pagination(c)
	unread, ok := queryBool(c, "unread")
	if !ok {
		return
	}
	filter := model.NotificationFilter{
		UnreadOnly: unread != nil && *unread,
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if raw := c.Query("type"); raw != "" {
		notificationType, valid := model.ParseNotificationType(raw)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
			return
		}
		filter.Type = &notificationType
	}

	items, total, err := h.svc.Notifications.List(c.Request.Context(), pr.UserID, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) notificationStats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	stats, err := h.svc.Notifications.GetNotificationStats(c.Request.Context(), p.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkAsRead(c.Request.Context(), id, p.UserID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	updated, err := h.svc.Notifications.MarkAllAsRead(c.Request.Context(), p.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.Delete(c.Request.Context(), id, p.UserID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
