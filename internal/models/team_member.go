package models

import "time"

type MemberRole string

const (
	RoleAdmin        MemberRole = "admin"
	RoleManager      MemberRole = "manager"
	RoleArtist       MemberRole = "artist"
	RoleEditor       MemberRole = "editor"
	RoleVideographer MemberRole = "videographer"
	RolePhotographer MemberRole = "photographer"
	RoleOther        MemberRole = "other"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleArtist, RoleEditor, RoleVideographer, RolePhotographer, RoleOther:
		return true
	default:
		return false
	}
}

// PermissionTier gates approvals. Full members see every task and are told
// when work is completed or moved.
type PermissionTier string

const (
	PermissionFull   PermissionTier = "full"
	PermissionMember PermissionTier = "member"
)

func (p PermissionTier) Valid() bool {
	switch p {
	case PermissionFull, PermissionMember:
		return true
	default:
		return false
	}
}

type TeamMember struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;uniqueIndex:idx_team_members_team_user" json:"team_id"`
	UserID      uint64         `gorm:"not null;uniqueIndex:idx_team_members_team_user" json:"user_id"`
	DisplayName string         `gorm:"type:varchar(255)" json:"display_name"`
	Role        MemberRole     `gorm:"type:varchar(30);not null" json:"role"`
	Permission  PermissionTier `gorm:"type:varchar(20);not null;default:'member'" json:"permission"`
	JoinedAt    time.Time      `json:"joined_at"`
}

// IsFull reports whether the member holds the full permission tier.
func (m TeamMember) IsFull() bool {
	return m.Permission == PermissionFull
}
