package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/logging"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/middleware"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/sirupsen/logrus"
)

// respondError maps a service error onto the API error envelope. Anything
// unrecognised is reported to Sentry and answered with 500.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrNotFullMember),
		errors.Is(err, services.ErrTaskPermissionDenied):
		apierrors.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrTaskConflict):
		apierrors.Conflict(c, apierrors.ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrTaskCompleted):
		apierrors.Conflict(c, apierrors.ErrCodeTaskCompleted, err.Error())
	case errors.Is(err, services.ErrInvitationAlreadyUsed):
		apierrors.Conflict(c, apierrors.ErrCodeInvitationUsed, err.Error())
	case errors.Is(err, services.ErrWorldAlreadyHasTeam),
		errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, apierrors.ErrCodeAlreadyExists, err.Error())

	case errors.Is(err, services.ErrLastFullMember),
		errors.Is(err, services.ErrNotPostTask):
		apierrors.UnprocessableEntity(c, err.Error())

	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidTaskType),
		errors.Is(err, services.ErrInvalidTaskCategory),
		errors.Is(err, services.ErrInvalidTimeWindow),
		errors.Is(err, services.ErrTaskBackdated),
		errors.Is(err, services.ErrInvalidTaskAssignee),
		errors.Is(err, services.ErrInvalidApproval),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrWorldKeyRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidPermission),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrUnknownOnboardingShape),
		errors.Is(err, services.ErrScheduleRequired),
		errors.Is(err, schedule.ErrInvalidConfig):
		apierrors.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrBrainstormNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())

	default:
		logging.CaptureError(log, err, "http_handler", logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		})
		apierrors.InternalError(c, "")
	}
}

// currentUser returns the authenticated user ID or answers 401
func currentUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return userID, ok
}
