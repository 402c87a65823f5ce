package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationMemberJoined    NotificationType = "member_joined"
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTaskCompleted   NotificationType = "task_completed"
	NotificationTaskRescheduled NotificationType = "task_rescheduled"
	NotificationTaskReminder    NotificationType = "task_reminder"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMemberJoined, NotificationTaskAssigned, NotificationTaskCompleted,
		NotificationTaskRescheduled, NotificationTaskReminder:
		return true
	default:
		return false
	}
}

// Notification is addressed to exactly one recipient. Only the read flag
// changes after creation.
type Notification struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	TeamID    uint64           `gorm:"not null;index" json:"team_id"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Payload   datatypes.JSON   `json:"payload"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at"`
	CreatedAt time.Time        `json:"created_at"`
}
