package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/dto"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/middleware"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/sirupsen/logrus"
)

// PlanningHandler turns onboarding, brainstorm results and schedules into
// tasks. Every response is an orchestration report, including partial runs.
type PlanningHandler struct {
	orchestrator *services.Orchestrator
	suggester    services.BrainstormSuggester
	schedules    *ScheduleHandler
	log          logrus.FieldLogger
}

// NewPlanningHandler creates a PlanningHandler. suggester may be nil, in
// which case brainstorm requests must carry their own result.
func NewPlanningHandler(orchestrator *services.Orchestrator, suggester services.BrainstormSuggester, schedules *ScheduleHandler, log logrus.FieldLogger) *PlanningHandler {
	return &PlanningHandler{
		orchestrator: orchestrator,
		suggester:    suggester,
		schedules:    schedules,
		log:          log,
	}
}

// Onboarding creates the first tasks after onboarding finished
func (h *PlanningHandler) Onboarding(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	type OnboardingRequest struct {
		Shape    services.OnboardingShape `json:"shape"`
		WorldKey string                   `json:"world_key"`
	}

	var req OnboardingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.InvalidBody(c, err)
			return
		}
	}

	report, err := h.orchestrator.PlanOnboarding(c.Request.Context(), services.OnboardingInput{
		TeamID:   team.ID,
		ActorID:  userID,
		WorldKey: worldKeyOr(req.WorldKey, team),
		Shape:    req.Shape,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrchestrationReportDTO(*report))
}

// Brainstorm expands shoot and edit days into tasks. The days come from
// the request, or from the suggestion service when only a release date is
// given.
func (h *PlanningHandler) Brainstorm(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	type BrainstormRequest struct {
		Result      *services.BrainstormResult `json:"result"`
		ReleaseDate string                     `json:"release_date"`
		Notes       string                     `json:"notes"`
		WorldKey    string                     `json:"world_key"`
	}

	var req BrainstormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	var result services.BrainstormResult
	switch {
	case req.Result != nil:
		result = *req.Result
	case req.ReleaseDate != "":
		release, err := parseDate(req.ReleaseDate)
		if err != nil {
			apierrors.BadRequest(c, "release_date "+err.Error())
			return
		}
		if h.suggester == nil {
			respondError(c, h.log, services.ErrBrainstormNotConfigured)
			return
		}

		roles := make([]models.MemberRole, 0, len(team.Members))
		for _, m := range team.Members {
			roles = append(roles, m.Role)
		}
		suggested, err := h.suggester.Suggest(c.Request.Context(), services.SuggestInput{
			ReleaseDate: release,
			Notes:       req.Notes,
			Roles:       roles,
		})
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		result = *suggested
	default:
		apierrors.BadRequest(c, "Either result or release_date is required")
		return
	}

	report, err := h.orchestrator.ExpandBrainstorm(c.Request.Context(), services.ExpandBrainstormInput{
		TeamID:   team.ID,
		ActorID:  userID,
		WorldKey: worldKeyOr(req.WorldKey, team),
		Result:   result,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrchestrationReportDTO(*report))
}

// Schedule builds a posting schedule and creates one post event per slot
func (h *PlanningHandler) Schedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	type MaterializeRequest struct {
		scheduleRequest
		WorldKey   string  `json:"world_key"`
		AssigneeID *uint64 `json:"assignee_id"`
	}

	var req MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	cfg, err := req.config()
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	sched, err := h.schedules.build(cfg)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	report, err := h.orchestrator.MaterializeSchedule(c.Request.Context(), services.MaterializeInput{
		TeamID:     team.ID,
		ActorID:    userID,
		WorldKey:   worldKeyOr(req.WorldKey, team),
		Schedule:   sched,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule": sched,
		"report":   dto.ToOrchestrationReportDTO(*report),
	})
}

func worldKeyOr(worldKey string, team models.Team) string {
	if worldKey != "" {
		return worldKey
	}
	return team.WorldKey
}
