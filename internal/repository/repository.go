package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
)

var (
	// ErrStaleVersion is returned when a versioned update lost a race with another writer.
	ErrStaleVersion = errors.New("task repository: stale version")
	// ErrInvitationConsumed is returned when an invitation was already accepted.
	ErrInvitationConsumed = errors.New("invitation repository: invitation already consumed")
)

// TeamRepository defines the interface for team and membership data access
type TeamRepository interface {
	// Create creates a team and its owning member in a single transaction
	Create(ctx context.Context, team *models.Team, owner *models.TeamMember) error

	// FindByID finds a team by ID
	FindByID(ctx context.Context, id uint64) (*models.Team, error)

	// FindByWorldKey finds the team bound to a world
	FindByWorldKey(ctx context.Context, worldKey string) (*models.Team, error)

	// Delete deletes a team and everything it owns
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to a team
	AddMember(ctx context.Context, member *models.TeamMember) error

	// UpdateMember saves role and permission changes
	UpdateMember(ctx context.Context, member *models.TeamMember) error

	// RemoveMember removes a member from a team
	RemoveMember(ctx context.Context, teamID, userID uint64) error

	// FindMember finds a specific team member
	FindMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error)

	// ListMembers lists all members of a team ordered by join time
	ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error)

	// ListMembershipsByUserID lists every team membership of a user
	ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.TeamMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks of one team with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateVersioned applies changes only if the task still has task.Version,
	// then bumps the version on task
	UpdateVersioned(ctx context.Context, task *models.Task, changes map[string]interface{}) error

	// Delete soft deletes a task
	Delete(ctx context.Context, teamID, id uint64) error

	// ListPendingOn returns pending, assigned tasks dated on day across all teams
	ListPendingOn(ctx context.Context, day time.Time) ([]models.Task, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TeamID     uint64
	AssigneeID *uint64
	WorldKey   string
	Status     *models.TaskStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	// Viewer restricts results to what a non-full member may see
	Viewer   *models.TeamMember
	Page     int
	PageSize int
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// Create creates a new invitation
	Create(ctx context.Context, invitation *models.Invitation) error

	// FindByToken finds an invitation by its token
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)

	// Accept consumes a pending invitation and adds the member atomically
	Accept(ctx context.Context, invitation *models.Invitation, member *models.TeamMember) error

	// ListByTeam lists invitations of a team, newest first
	ListByTeam(ctx context.Context, teamID uint64) ([]models.Invitation, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create persists a single notification
	Create(ctx context.Context, notification *models.Notification) error

	// List retrieves a recipient's notifications, newest first
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, int64, error)

	// MarkRead marks one notification of the recipient as read
	MarkRead(ctx context.Context, id, userID uint64, at time.Time) error

	// MarkAllRead marks every unread notification of the recipient as read
	MarkAllRead(ctx context.Context, userID uint64, teamID *uint64, at time.Time) (int64, error)

	// CountUnread counts unread notifications of the recipient
	CountUnread(ctx context.Context, userID uint64) (int64, error)
}

// NotificationFilter holds filtering options for listing notifications
type NotificationFilter struct {
	UserID     uint64
	TeamID     *uint64
	UnreadOnly bool
	Page       int
	PageSize   int
}
