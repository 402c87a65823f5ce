package dto

import (
	"encoding/json"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
)

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID        uint64                  `json:"id"`
	TeamID    uint64                  `json:"team_id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Payload   json.RawMessage         `json:"payload"`
	Read      bool                    `json:"read"`
	ReadAt    *time.Time              `json:"read_at"`
	CreatedAt time.Time               `json:"created_at"`
}

// NotificationListResponse represents a page of notifications
type NotificationListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Unread        int64             `json:"unread"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalCount    int64             `json:"total_count"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(n models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        n.ID,
		TeamID:    n.TeamID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Payload:   json.RawMessage("{}"),
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if len(n.Payload) > 0 {
		dto.Payload = json.RawMessage(n.Payload)
	}
	if n.ReadAt != nil {
		at := *n.ReadAt
		dto.ReadAt = &at
	}
	return dto
}

// ToNotificationListResponse converts a page of notifications
func ToNotificationListResponse(notifications []models.Notification, unread int64, page, pageSize int, total int64) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = ToNotificationDTO(n)
	}
	return NotificationListResponse{
		Notifications: items,
		Unread:        unread,
		Page:          page,
		PageSize:      pageSize,
		TotalCount:    total,
	}
}
