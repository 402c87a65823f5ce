package repository

import (
	"context"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/database"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.team_id = ?", filter.TeamID)

	// Apply filters
	if filter.WorldKey != "" {
		query = query.Where("tasks.world_key = ?", filter.WorldKey)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssigneeID)
	}
	if filter.DateFrom != nil {
		query = query.Where("tasks.date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("tasks.date < ?", *filter.DateTo)
	}
	if filter.Viewer != nil && !filter.Viewer.IsFull() {
		query = query.Where("(tasks.category = ? OR tasks.assigned_to = ?)",
			models.CategoryEvent, filter.Viewer.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.date ASC, tasks.start_time ASC, tasks.id ASC")

	if err := listQuery.Scopes(database.Paginate(filter.Page, filter.PageSize)).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateVersioned applies changes guarded by the version the caller read.
// On success task carries the new version; on a lost race ErrStaleVersion
// is returned and nothing is written.
func (r *GormTaskRepository) UpdateVersioned(ctx context.Context, task *models.Task, changes map[string]interface{}) error {
	updates := make(map[string]interface{}, len(changes)+1)
	for k, v := range changes {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND team_id = ? AND version = ?", task.ID, task.TeamID, task.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}

	task.Version++
	return nil
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, teamID, id uint64) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.Task{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingOn returns pending, assigned tasks dated on day across all teams
func (r *GormTaskRepository) ListPendingOn(ctx context.Context, day time.Time) ([]models.Task, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_to IS NOT NULL", models.TaskStatusPending).
		Where("date >= ? AND date < ?", start, end).
		Order("team_id ASC, start_time ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
