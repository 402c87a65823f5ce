package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/dto"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/middleware"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/sirupsen/logrus"
)

type TeamHandler struct {
	teams *services.TeamService
	log   logrus.FieldLogger
}

func NewTeamHandler(teams *services.TeamService, log logrus.FieldLogger) *TeamHandler {
	return &TeamHandler{
		teams: teams,
		log:   log,
	}
}

// CreateTeam creates a team for a world with the caller as its first full member
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateTeamRequest struct {
		Name        string            `json:"name" binding:"required"`
		WorldKey    string            `json:"world_key" binding:"required"`
		DisplayName string            `json:"display_name"`
		Role        models.MemberRole `json:"role"`
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	team, err := h.teams.CreateTeam(c.Request.Context(), services.CreateTeamInput{
		Name:        req.Name,
		WorldKey:    req.WorldKey,
		CreatorID:   userID,
		DisplayName: req.DisplayName,
		CreatorRole: req.Role,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	owner := team.Members[0]
	c.JSON(http.StatusCreated, dto.ToTeamDetailDTO(*team, team.Members, &owner))
}

// GetTeam returns the team loaded by RequireTeamAccess
func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, ok := middleware.GetTeam(c)
	if !ok {
		apierrors.InternalError(c, "Team not found in context")
		return
	}
	member, _ := middleware.GetMember(c)

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(team, team.Members, &member))
}

// DeleteTeam deletes the team and everything it owns
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	if err := h.teams.DeleteTeam(c.Request.Context(), team.ID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
}

// UpdateMember changes a member's role or permission tier
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type UpdateMemberRequest struct {
		Role       *models.MemberRole     `json:"role"`
		Permission *models.PermissionTier `json:"permission"`
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	member, err := h.teams.UpdateMemberPermission(c.Request.Context(), services.UpdateMemberInput{
		TeamID:     team.ID,
		ActorID:    userID,
		UserID:     targetID,
		Role:       req.Role,
		Permission: req.Permission,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(*member))
}

// RemoveMember removes a member; members may also remove themselves
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.teams.RemoveMember(c.Request.Context(), team.ID, userID, targetID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

// CreateInvitation issues a single-use invitation link
func (h *TeamHandler) CreateInvitation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	type CreateInvitationRequest struct {
		Role  models.MemberRole `json:"role"`
		Name  string            `json:"name"`
		Email string            `json:"email"`
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	invitation, err := h.teams.CreateInvitation(c.Request.Context(), services.CreateInvitationInput{
		TeamID:  team.ID,
		ActorID: userID,
		Role:    req.Role,
		Name:    req.Name,
		Email:   req.Email,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvitationDTO(*invitation, h.teams.AcceptURL(invitation.Token)))
}

// ListInvitations lists the team's invitations, newest first
func (h *TeamHandler) ListInvitations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	invitations, err := h.teams.ListInvitations(c.Request.Context(), team.ID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]dto.InvitationDTO, len(invitations))
	for i, invitation := range invitations {
		acceptURL := ""
		if invitation.Status == models.InvitationPending {
			acceptURL = h.teams.AcceptURL(invitation.Token)
		}
		items[i] = dto.ToInvitationDTO(invitation, acceptURL)
	}

	c.JSON(http.StatusOK, gin.H{"invitations": items})
}

// AcceptInvitation redeems an invitation token for the caller
func (h *TeamHandler) AcceptInvitation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type AcceptInvitationRequest struct {
		DisplayName string `json:"display_name"`
	}

	var req AcceptInvitationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.InvalidBody(c, err)
			return
		}
	}

	member, err := h.teams.AcceptInvitation(c.Request.Context(), services.AcceptInvitationInput{
		Token:       c.Param("token"),
		UserID:      userID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team_id": member.TeamID,
		"member":  dto.ToMemberDTO(*member),
	})
}
