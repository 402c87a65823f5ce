package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/dto"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/notify"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	hub           *notify.Hub
	log           logrus.FieldLogger
}

// NewNotificationHandler creates a NotificationHandler. hub may be nil when
// live delivery is disabled.
func NewNotificationHandler(notifications *services.NotificationService, hub *notify.Hub, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		hub:           hub,
		log:           log,
	}
}

// ListNotifications returns the caller's notifications, newest first.
// Query: unread=true, team_id.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.ParsePageParams(c)

	teamID, ok := optionalTeamID(c, c.Query("team_id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	notifications, total, err := h.notifications.ListNotifications(ctx, services.ListNotificationsInput{
		UserID:     userID,
		TeamID:     teamID,
		UnreadOnly: c.Query("unread") == "true",
		Page:       params.Page,
		PageSize:   params.PageSize,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationListResponse(notifications, unread, params.Page, params.PageSize, total))
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead marks every unread notification as read, optionally for one team
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type MarkAllReadRequest struct {
		TeamID *uint64 `json:"team_id"`
	}

	var req MarkAllReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.InvalidBody(c, err)
			return
		}
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID, req.TeamID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Live upgrades the connection to a websocket that receives the caller's
// notifications as they are created
func (h *NotificationHandler) Live(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if h.hub == nil {
		apierrors.ServiceUnavailable(c, "Live delivery is disabled")
		return
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("websocket upgrade failed")
	}
}

func optionalTeamID(c *gin.Context, raw string) (*uint64, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team_id")
		return nil, false
	}
	return &id, true
}
