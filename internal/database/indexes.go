package database

import (
	"fmt"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"gorm.io/gorm"
)

// compositeIndexes are the multi-column indexes the list queries rely on
var compositeIndexes = []struct {
	model   interface{}
	name    string
	columns string
}{
	// Team task listing ordered by date then start time
	{&models.Task{}, "idx_tasks_team_date_start", "team_id, date, start_time"},
	{&models.Task{}, "idx_tasks_team_assignee_status", "team_id, assigned_to, status"},
	// Reminder sweep
	{&models.Task{}, "idx_tasks_status_date", "status, date"},
	// Inbox listing and unread counts
	{&models.Notification{}, "idx_notifications_user_read", "user_id, is_read, created_at"},
}

// AddIndexes creates missing composite indexes
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
