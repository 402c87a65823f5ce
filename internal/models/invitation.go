package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation is a pending grant of team membership, consumed exactly once.
type Invitation struct {
	ID           uint64           `gorm:"primarykey" json:"id"`
	Token        string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	TeamID       uint64           `gorm:"not null;index" json:"team_id"`
	Role         MemberRole       `gorm:"type:varchar(30);not null" json:"role"`
	InvitedName  string           `gorm:"type:varchar(255)" json:"invited_name"`
	InvitedEmail string           `gorm:"type:varchar(255)" json:"invited_email"`
	InvitedBy    uint64           `gorm:"not null" json:"invited_by"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AcceptedBy   *uint64          `json:"accepted_by"`
	AcceptedAt   *time.Time       `json:"accepted_at"`
	CreatedAt    time.Time        `json:"created_at"`
}
