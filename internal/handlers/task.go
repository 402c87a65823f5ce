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
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
	"github.com/sirupsen/logrus"
)

type TaskHandler struct {
	tasks *services.TaskService
	log   logrus.FieldLogger
}

func NewTaskHandler(tasks *services.TaskService, log logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{
		tasks: tasks,
		log:   log,
	}
}

// ListTasks returns the team's tasks visible to the caller.
// Filters: status, assignee_id, world_key, from, to (YYYY-MM-DD, to exclusive).
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)
	params := utils.ParsePageParams(c)

	input := services.ListTasksInput{
		TeamID:   team.ID,
		ViewerID: userID,
		WorldKey: c.Query("world_key"),
		Page:     params.Page,
		PageSize: params.PageSize,
	}

	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}
	if s := c.Query("assignee_id"); s != "" {
		assignee, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id")
			return
		}
		input.AssigneeID = &assignee
	}
	if s := c.Query("from"); s != "" {
		from, err := parseDate(s)
		if err != nil {
			apierrors.BadRequest(c, "from "+err.Error())
			return
		}
		input.DateFrom = &from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseDate(s)
		if err != nil {
			apierrors.BadRequest(c, "to "+err.Error())
			return
		}
		input.DateTo = &to
	}

	tasks, total, err := h.tasks.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.PageSize, total))
}

// CreateTask creates a pending task in the team
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, _ := middleware.GetTeam(c)

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Type        models.TaskType     `json:"type" binding:"required"`
		Category    models.TaskCategory `json:"category"`
		WorldKey    string              `json:"world_key"`
		Date        string              `json:"date" binding:"required"`
		StartTime   string              `json:"start_time"`
		EndTime     string              `json:"end_time"`
		AssigneeID  *uint64             `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		apierrors.BadRequest(c, "date "+err.Error())
		return
	}

	worldKey := req.WorldKey
	if worldKey == "" {
		worldKey = team.WorldKey
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), services.CreateTaskInput{
		TeamID:      team.ID,
		ActorID:     userID,
		WorldKey:    worldKey,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Category:    req.Category,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns the task loaded by RequireTaskAccess
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task))
}

// ReassignTask hands the task to another member
func (h *TaskHandler) ReassignTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	type ReassignTaskRequest struct {
		AssigneeID uint64 `json:"assignee_id" binding:"required"`
		Version    *int   `json:"version"`
	}

	var req ReassignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	updated, err := h.tasks.ReassignTask(c.Request.Context(), services.ReassignTaskInput{
		TaskID:          task.ID,
		ActorID:         userID,
		AssigneeID:      req.AssigneeID,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// RescheduleTask moves the task to another date and time window
func (h *TaskHandler) RescheduleTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	type RescheduleTaskRequest struct {
		Date      string `json:"date" binding:"required"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Version   *int   `json:"version"`
	}

	var req RescheduleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		apierrors.BadRequest(c, "date "+err.Error())
		return
	}

	updated, err := h.tasks.RescheduleTask(c.Request.Context(), services.RescheduleTaskInput{
		TaskID:          task.ID,
		ActorID:         userID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// CompleteTask marks the task completed. The body is optional.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	type CompleteTaskRequest struct {
		Version *int `json:"version"`
	}

	var req CompleteTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.InvalidBody(c, err)
			return
		}
	}

	updated, err := h.tasks.CompleteTask(c.Request.Context(), services.CompleteTaskInput{
		TaskID:          task.ID,
		ActorID:         userID,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdatePostProduction updates video link, caption and review state of a post task
func (h *TaskHandler) UpdatePostProduction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	type UpdatePostProductionRequest struct {
		VideoURL       *string                `json:"video_url"`
		Caption        *string                `json:"caption"`
		ApprovalStatus *models.ApprovalStatus `json:"approval_status"`
		RevisionNotes  *string                `json:"revision_notes"`
		Version        *int                   `json:"version"`
	}

	var req UpdatePostProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	updated, err := h.tasks.UpdatePostProduction(c.Request.Context(), services.UpdatePostProductionInput{
		TaskID:          task.ID,
		ActorID:         userID,
		VideoURL:        req.VideoURL,
		Caption:         req.Caption,
		ApprovalStatus:  req.ApprovalStatus,
		RevisionNotes:   req.RevisionNotes,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes the task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	if err := h.tasks.DeleteTask(c.Request.Context(), task.ID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
