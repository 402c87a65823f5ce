package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/middleware"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/notify"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Teams         *services.TeamService
	Tasks         *services.TaskService
	Notifications *services.NotificationService
	Orchestrator  *services.Orchestrator
	Suggester     services.BrainstormSuggester
	Hub           *notify.Hub
	Metrics       *metrics.Metrics
	Log           logrus.FieldLogger
}

// RegisterRoutes mounts every endpoint on r. Session middleware must already
// be installed on r.
func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	scheduleHandler := NewScheduleHandler(deps.Metrics, deps.Log)
	teamHandler := NewTeamHandler(deps.Teams, deps.Log)
	taskHandler := NewTaskHandler(deps.Tasks, deps.Log)
	planningHandler := NewPlanningHandler(deps.Orchestrator, deps.Suggester, scheduleHandler, deps.Log)
	notificationHandler := NewNotificationHandler(deps.Notifications, deps.Hub, deps.Log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Multiverse API is running",
		})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/schedules/preview", scheduleHandler.Preview)
		api.POST("/invitations/:token/accept", teamHandler.AcceptInvitation)

		teamAccess := middleware.RequireTeamAccess(deps.Teams)
		full := middleware.RequireFullPermission()

		teams := api.Group("/teams")
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("/:id", teamAccess, teamHandler.GetTeam)
			teams.DELETE("/:id", teamAccess, full, teamHandler.DeleteTeam)
			teams.PATCH("/:id/members/:user_id", teamAccess, full, teamHandler.UpdateMember)
			teams.DELETE("/:id/members/:user_id", teamAccess, teamHandler.RemoveMember)
			teams.POST("/:id/invitations", teamAccess, full, teamHandler.CreateInvitation)
			teams.GET("/:id/invitations", teamAccess, full, teamHandler.ListInvitations)
			teams.POST("/:id/onboarding", teamAccess, planningHandler.Onboarding)
			teams.POST("/:id/brainstorm", teamAccess, planningHandler.Brainstorm)
			teams.POST("/:id/schedule", teamAccess, planningHandler.Schedule)
			teams.GET("/:id/tasks", teamAccess, taskHandler.ListTasks)
			teams.POST("/:id/tasks", teamAccess, taskHandler.CreateTask)
		}

		taskAccess := middleware.RequireTaskAccess(deps.Tasks)
		tasks := api.Group("/tasks/:id", taskAccess)
		{
			tasks.GET("", taskHandler.GetTask)
			tasks.PATCH("/assignee", taskHandler.ReassignTask)
			tasks.PATCH("/schedule", taskHandler.RescheduleTask)
			tasks.POST("/complete", taskHandler.CompleteTask)
			tasks.PATCH("/post", taskHandler.UpdatePostProduction)
			tasks.DELETE("", taskHandler.DeleteTask)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		api.GET("/ws", notificationHandler.Live)
	}

	r.NoRoute(func(c *gin.Context) {
		apierrors.NotFound(c, "The requested resource was not found")
	})
}
