package dto

import (
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	TeamID         uint64              `json:"team_id"`
	WorldKey       string              `json:"world_key,omitempty"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Type           models.TaskType     `json:"type"`
	Category       models.TaskCategory `json:"category"`
	Date           string              `json:"date"`
	StartTime      string              `json:"start_time,omitempty"`
	EndTime        string              `json:"end_time,omitempty"`
	AssignedTo     *uint64             `json:"assigned_to"`
	AssignedBy     uint64              `json:"assigned_by"`
	Status         models.TaskStatus   `json:"status"`
	CompletedAt    *time.Time          `json:"completed_at"`
	Version        int                 `json:"version"`
	PostProduction *PostProductionDTO  `json:"post_production,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// PostProductionDTO carries the posting workflow fields of post tasks
type PostProductionDTO struct {
	VideoURL       string                `json:"video_url"`
	Caption        string                `json:"caption"`
	ApprovalStatus models.ApprovalStatus `json:"approval_status"`
	RevisionNotes  string                `json:"revision_notes"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		TeamID:      task.TeamID,
		WorldKey:    task.WorldKey,
		Title:       task.Title,
		Description: task.Description,
		Type:        task.Type,
		Category:    task.Category,
		StartTime:   task.StartTime,
		EndTime:     task.EndTime,
		AssignedBy:  task.AssignedBy,
		Status:      task.Status,
		Version:     task.Version,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if !task.Date.IsZero() {
		dto.Date = task.Date.Format(time.DateOnly)
	}
	if dto.Category == "" {
		dto.Category = models.CategoryTask
	}
	if dto.Status == "" {
		dto.Status = models.TaskStatusPending
	}
	if task.AssignedTo != nil {
		assignee := *task.AssignedTo
		dto.AssignedTo = &assignee
	}
	if task.CompletedAt != nil {
		completedAt := *task.CompletedAt
		dto.CompletedAt = &completedAt
	}

	switch task.Type {
	case models.TaskTypePost:
		dto.PostProduction = &PostProductionDTO{
			VideoURL:       task.VideoURL,
			Caption:        task.Caption,
			ApprovalStatus: task.ApprovalStatus,
			RevisionNotes:  task.RevisionNotes,
		}
	case models.TaskTypeInviteTeam, models.TaskTypeBrainstorm, models.TaskTypeShoot,
		models.TaskTypeEdit, models.TaskTypeRelease, models.TaskTypeGeneral:
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
