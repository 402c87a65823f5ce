package dto

import (
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	WorldKey  string    `json:"world_key"`
	CreatorID uint64    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberDTO represents a team member in API responses
type MemberDTO struct {
	UserID      uint64                `json:"user_id"`
	DisplayName string                `json:"display_name"`
	Role        models.MemberRole     `json:"role"`
	Permission  models.PermissionTier `json:"permission"`
	JoinedAt    time.Time             `json:"joined_at"`
}

// TeamDetailDTO represents a team with its members
type TeamDetailDTO struct {
	TeamDTO
	Members []MemberDTO `json:"members"`
	You     *MemberDTO  `json:"you,omitempty"`
}

// InvitationDTO represents an invitation in API responses. The token is
// only shown to the full-permission members who manage invitations.
type InvitationDTO struct {
	ID           uint64                  `json:"id"`
	TeamID       uint64                  `json:"team_id"`
	Token        string                  `json:"token,omitempty"`
	AcceptURL    string                  `json:"accept_url,omitempty"`
	Role         models.MemberRole       `json:"role"`
	InvitedName  string                  `json:"invited_name,omitempty"`
	InvitedEmail string                  `json:"invited_email,omitempty"`
	Status       models.InvitationStatus `json:"status"`
	AcceptedBy   *uint64                 `json:"accepted_by,omitempty"`
	AcceptedAt   *time.Time              `json:"accepted_at,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team) TeamDTO {
	return TeamDTO{
		ID:        team.ID,
		Name:      team.Name,
		WorldKey:  team.WorldKey,
		CreatorID: team.CreatorID,
		CreatedAt: team.CreatedAt,
	}
}

// ToMemberDTO converts a TeamMember model to MemberDTO
func ToMemberDTO(member models.TeamMember) MemberDTO {
	dto := MemberDTO{
		UserID:      member.UserID,
		DisplayName: member.DisplayName,
		Role:        member.Role,
		Permission:  member.Permission,
		JoinedAt:    member.JoinedAt,
	}
	if dto.Permission == "" {
		dto.Permission = models.PermissionMember
	}
	return dto
}

// ToTeamDetailDTO converts a team and its members. you is the requesting
// member and may be nil.
func ToTeamDetailDTO(team models.Team, members []models.TeamMember, you *models.TeamMember) TeamDetailDTO {
	memberDTOs := make([]MemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToMemberDTO(member)
	}

	detail := TeamDetailDTO{
		TeamDTO: ToTeamDTO(team),
		Members: memberDTOs,
	}
	if you != nil {
		m := ToMemberDTO(*you)
		detail.You = &m
	}
	return detail
}

// ToInvitationDTO converts an Invitation model. acceptURL is empty when the
// token must stay hidden.
func ToInvitationDTO(invitation models.Invitation, acceptURL string) InvitationDTO {
	dto := InvitationDTO{
		ID:           invitation.ID,
		TeamID:       invitation.TeamID,
		Role:         invitation.Role,
		InvitedName:  invitation.InvitedName,
		InvitedEmail: invitation.InvitedEmail,
		Status:       invitation.Status,
		CreatedAt:    invitation.CreatedAt,
	}
	if acceptURL != "" {
		dto.Token = invitation.Token
		dto.AcceptURL = acceptURL
	}
	if dto.Status == "" {
		dto.Status = models.InvitationPending
	}
	if invitation.AcceptedBy != nil {
		by := *invitation.AcceptedBy
		dto.AcceptedBy = &by
	}
	if invitation.AcceptedAt != nil {
		at := *invitation.AcceptedAt
		dto.AcceptedAt = &at
	}
	return dto
}
