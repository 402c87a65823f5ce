package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskType string

const (
	TaskTypeInviteTeam TaskType = "invite_team"
	TaskTypeBrainstorm TaskType = "brainstorm"
	TaskTypeShoot      TaskType = "shoot"
	TaskTypeEdit       TaskType = "edit"
	TaskTypePost       TaskType = "post"
	TaskTypeRelease    TaskType = "release"
	TaskTypeGeneral    TaskType = "general"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeInviteTeam, TaskTypeBrainstorm, TaskTypeShoot, TaskTypeEdit,
		TaskTypePost, TaskTypeRelease, TaskTypeGeneral:
		return true
	default:
		return false
	}
}

// TaskCategory controls visibility. Events are shared with the whole team;
// plain tasks are private to the assignee and full-permission members.
type TaskCategory string

const (
	CategoryTask  TaskCategory = "task"
	CategoryEvent TaskCategory = "event"
)

func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryTask, CategoryEvent:
		return true
	default:
		return false
	}
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ApprovalStatus tracks post-production review of a posting task.
type ApprovalStatus string

const (
	ApprovalNone              ApprovalStatus = ""
	ApprovalPendingReview     ApprovalStatus = "pending_review"
	ApprovalApproved          ApprovalStatus = "approved"
	ApprovalRevisionRequested ApprovalStatus = "revision_requested"
)

func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalNone, ApprovalPendingReview, ApprovalApproved, ApprovalRevisionRequested:
		return true
	default:
		return false
	}
}

type Task struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;index" json:"team_id"`
	WorldKey    string         `gorm:"type:varchar(100);index" json:"world_key"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        TaskType       `gorm:"type:varchar(30);not null" json:"type"`
	Category    TaskCategory   `gorm:"type:varchar(20);not null;default:'task'" json:"category"`
	Date        time.Time      `gorm:"not null;index" json:"date"`
	StartTime   string         `gorm:"type:varchar(5)" json:"start_time"`
	EndTime     string         `gorm:"type:varchar(5)" json:"end_time"`
	AssignedTo  *uint64        `gorm:"index" json:"assigned_to"`
	AssignedBy  uint64         `gorm:"not null" json:"assigned_by"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CompletedAt *time.Time     `json:"completed_at"`
	Version     int            `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Post-production fields, written by the posting UI only.
	VideoURL       string         `gorm:"type:varchar(500)" json:"video_url"`
	Caption        string         `gorm:"type:text" json:"caption"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(30)" json:"approval_status"`
	RevisionNotes  string         `gorm:"type:text" json:"revision_notes"`
}

// IsCompleted reports whether the task reached its terminal state.
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsAssignedTo reports whether userID holds the task.
func (t Task) IsAssignedTo(userID uint64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// VisibleTo applies the visibility rule for a team member.
func (t Task) VisibleTo(member TeamMember) bool {
	switch t.Category {
	case CategoryEvent:
		return true
	case CategoryTask:
		return member.IsFull() || t.IsAssignedTo(member.UserID)
	default:
		return false
	}
}
