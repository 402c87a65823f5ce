package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/constants"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
)

// RequireTeamAccess loads the team named by :id and the caller's membership.
// Outsiders get 404 so team existence does not leak.
func RequireTeamAccess(teams *services.TeamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid team ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		team, err := teams.GetTeam(c.Request.Context(), teamID, userID)
		if err != nil {
			if errors.Is(err, services.ErrTeamNotFound) {
				apierrors.NotFound(c, "Team not found")
				return
			}
			apierrors.InternalError(c, "Failed to load team")
			return
		}

		var member models.TeamMember
		for _, m := range team.Members {
			if m.UserID == userID {
				member = m
				break
			}
		}

		c.Set(constants.ContextKeyTeam, *team)
		c.Set(constants.ContextKeyMember, member)
		c.Next()
	}
}

// RequireFullPermission allows only full-permission members. It must run
// after RequireTeamAccess.
func RequireFullPermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetMember(c)
		if !ok {
			apierrors.Forbidden(c, "Team access required")
			return
		}

		if !member.IsFull() {
			apierrors.Forbidden(c, "Only full-permission members can perform this action")
			return
		}

		c.Next()
	}
}

// GetTeam returns the team stored by RequireTeamAccess
func GetTeam(c *gin.Context) (models.Team, bool) {
	v, exists := c.Get(constants.ContextKeyTeam)
	if !exists {
		return models.Team{}, false
	}
	team, ok := v.(models.Team)
	return team, ok
}

// GetMember returns the caller's membership stored by RequireTeamAccess
func GetMember(c *gin.Context) (models.TeamMember, bool) {
	v, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		return models.TeamMember{}, false
	}
	member, ok := v.(models.TeamMember)
	return member, ok
}
