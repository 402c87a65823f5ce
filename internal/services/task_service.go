package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/constants"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/logging"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskCompleted        = errors.New("task is already completed")
	ErrTaskConflict         = errors.New("task was modified by another request")
	ErrNotTeamMember        = errors.New("user is not a member of the team")
	ErrTaskPermissionDenied = errors.New("user does not have permission to modify this task")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidTaskType      = errors.New("invalid task type")
	ErrInvalidTaskCategory  = errors.New("invalid task category")
	ErrInvalidTimeWindow    = errors.New("start and end must be HH:MM with end after start")
	ErrTaskBackdated        = errors.New("task date cannot be in the past")
	ErrInvalidTaskAssignee  = errors.New("assignee is not a member of the team")
	ErrNotPostTask          = errors.New("post-production fields only apply to post tasks")
	ErrInvalidApproval      = errors.New("invalid approval status")
)

// Transition names a lifecycle change that ran post-commit hooks
type Transition string

const (
	TransitionCreate         Transition = "create"
	TransitionReassign       Transition = "reassign"
	TransitionReschedule     Transition = "reschedule"
	TransitionComplete       Transition = "complete"
	TransitionPostProduction Transition = "post_production"
	TransitionDelete         Transition = "delete"
)

// TaskEvent is what a post-commit hook sees after a successful write
type TaskEvent struct {
	Transition Transition
	Task       models.Task
	ActorID    uint64
}

// PostCommitHook runs after the primary write committed. Its error is
// logged and never returned to the caller.
type PostCommitHook func(ctx context.Context, event TaskEvent) error

// TaskService owns the task lifecycle: pending until completed, completed
// forever after
type TaskService struct {
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
	notifier Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	hooks    []PostCommitHook
	now      func() time.Time
}

// NewTaskService creates a new TaskService with the notification hook and,
// when m is set, the metrics hook installed
func NewTaskService(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, notifier Notifier, m *metrics.Metrics, log logrus.FieldLogger) *TaskService {
	s := &TaskService{
		taskRepo: taskRepo,
		teamRepo: teamRepo,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}

	if notifier != nil {
		s.hooks = append(s.hooks, s.notifyHook)
	}
	if m != nil {
		s.hooks = append(s.hooks, s.metricsHook)
	}
	return s
}

// AddHook appends a post-commit hook
func (s *TaskService) AddHook(hook PostCommitHook) {
	s.hooks = append(s.hooks, hook)
}

// SetClock replaces the time source
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// today is the current calendar date in UTC
func (s *TaskService) today() time.Time {
	return schedule.DateOf(s.now().UTC())
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	TeamID      uint64
	ActorID     uint64
	WorldKey    string
	Title       string
	Description string
	Type        models.TaskType
	Category    models.TaskCategory
	Date        time.Time
	StartTime   string
	EndTime     string
	AssigneeID  *uint64
}

// Draft returns the task the input would create, without touching storage
func (in CreateTaskInput) Draft() models.Task {
	category := in.Category
	if category == "" {
		category = models.CategoryTask
	}

	var assignee *uint64
	if in.AssigneeID != nil {
		id := *in.AssigneeID
		assignee = &id
	}

	return models.Task{
		TeamID:      in.TeamID,
		WorldKey:    in.WorldKey,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        in.Type,
		Category:    category,
		Date:        schedule.DateOf(in.Date),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		AssignedTo:  assignee,
		AssignedBy:  in.ActorID,
		Status:      models.TaskStatusPending,
		Version:     1,
	}
}

// ReassignTaskInput represents input for changing a task's assignee
type ReassignTaskInput struct {
	TaskID          uint64
	ActorID         uint64
	AssigneeID      uint64
	ExpectedVersion *int
}

// RescheduleTaskInput represents input for moving a task
type RescheduleTaskInput struct {
	TaskID          uint64
	ActorID         uint64
	Date            time.Time
	StartTime       string
	EndTime         string
	ExpectedVersion *int
}

// CompleteTaskInput represents input for completing a task
type CompleteTaskInput struct {
	TaskID          uint64
	ActorID         uint64
	ExpectedVersion *int
}

// UpdatePostProductionInput represents input for the posting workflow fields
type UpdatePostProductionInput struct {
	TaskID          uint64
	ActorID         uint64
	VideoURL        *string
	Caption         *string
	ApprovalStatus  *models.ApprovalStatus
	RevisionNotes   *string
	ExpectedVersion *int
}

// ListTasksInput represents filters for listing a team's tasks
type ListTasksInput struct {
	TeamID     uint64
	ViewerID   uint64
	AssigneeID *uint64
	WorldKey   string
	Status     *models.TaskStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// CreateTask validates and persists a new pending task
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	task := input.Draft()

	if task.Title == "" {
		return nil, ErrTitleRequired
	}
	if !task.Type.Valid() {
		return nil, ErrInvalidTaskType
	}
	if !task.Category.Valid() {
		return nil, ErrInvalidTaskCategory
	}
	if err := validateTimeWindow(task.StartTime, task.EndTime); err != nil {
		return nil, err
	}
	if s.backdated(task) {
		return nil, ErrTaskBackdated
	}

	if _, err := s.ensureTeamMember(ctx, input.TeamID, input.ActorID); err != nil {
		return nil, err
	}
	if task.AssignedTo != nil {
		if err := s.ensureAssignee(ctx, input.TeamID, *task.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.runHooks(ctx, TaskEvent{Transition: TransitionCreate, Task: task, ActorID: input.ActorID})
	return &task, nil
}

// GetTask returns a task the viewer is allowed to see. Tasks hidden from
// the viewer are reported as not found.
func (s *TaskService) GetTask(ctx context.Context, taskID, viewerID uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	member, err := s.ensureTeamMember(ctx, task.TeamID, viewerID)
	if err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !task.VisibleTo(*member) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListTasks returns the team's tasks visible to the viewer, ordered by date
// then start time
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	member, err := s.ensureTeamMember(ctx, input.TeamID, input.ViewerID)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		TeamID:     input.TeamID,
		AssigneeID: input.AssigneeID,
		WorldKey:   input.WorldKey,
		Status:     input.Status,
		DateFrom:   input.DateFrom,
		DateTo:     input.DateTo,
		Viewer:     member,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// ReassignTask hands a pending task to another team member
func (s *TaskService) ReassignTask(ctx context.Context, input ReassignTaskInput) (*models.Task, error) {
	task, _, err := s.loadForUpdate(ctx, input.TaskID, input.ActorID, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return nil, ErrTaskCompleted
	}
	if err := s.ensureAssignee(ctx, task.TeamID, input.AssigneeID); err != nil {
		return nil, err
	}
	if task.IsAssignedTo(input.AssigneeID) {
		return task, nil
	}

	assignee := input.AssigneeID
	if err := s.update(ctx, task, map[string]interface{}{
		"assigned_to": assignee,
		"assigned_by": input.ActorID,
	}); err != nil {
		return nil, err
	}
	task.AssignedTo = &assignee
	task.AssignedBy = input.ActorID

	s.runHooks(ctx, TaskEvent{Transition: TransitionReassign, Task: *task, ActorID: input.ActorID})
	return task, nil
}

// RescheduleTask moves a pending task to a new date and time window. Any
// date is accepted, including past ones.
func (s *TaskService) RescheduleTask(ctx context.Context, input RescheduleTaskInput) (*models.Task, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidTimeWindow)
	}
	if err := validateTimeWindow(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	task, _, err := s.loadForUpdate(ctx, input.TaskID, input.ActorID, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return nil, ErrTaskCompleted
	}

	date := schedule.DateOf(input.Date)
	if err := s.update(ctx, task, map[string]interface{}{
		"date":       date,
		"start_time": input.StartTime,
		"end_time":   input.EndTime,
	}); err != nil {
		return nil, err
	}
	task.Date = date
	task.StartTime = input.StartTime
	task.EndTime = input.EndTime

	s.runHooks(ctx, TaskEvent{Transition: TransitionReschedule, Task: *task, ActorID: input.ActorID})
	return task, nil
}

// CompleteTask moves a task to its terminal state. Completing a completed
// task returns it unchanged and emits nothing, including when another
// request completed it between the read and the write.
func (s *TaskService) CompleteTask(ctx context.Context, input CompleteTaskInput) (*models.Task, error) {
	task, _, err := s.loadForUpdate(ctx, input.TaskID, input.ActorID, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return task, nil
	}

	completedAt := s.now().UTC()
	err = s.taskRepo.UpdateVersioned(ctx, task, map[string]interface{}{
		"status":       models.TaskStatusCompleted,
		"completed_at": completedAt,
	})
	if errors.Is(err, repository.ErrStaleVersion) {
		// a concurrent completion already won; report its result quietly
		current, findErr := s.findTask(ctx, task.ID)
		if findErr == nil && current.IsCompleted() {
			return current, nil
		}
		s.recordConflict()
		return nil, ErrTaskConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &completedAt

	s.runHooks(ctx, TaskEvent{Transition: TransitionComplete, Task: *task, ActorID: input.ActorID})
	return task, nil
}

// UpdatePostProduction stores video link, caption and review state of a
// post task. Only full-permission members may approve or request changes.
func (s *TaskService) UpdatePostProduction(ctx context.Context, input UpdatePostProductionInput) (*models.Task, error) {
	task, member, err := s.loadForUpdate(ctx, input.TaskID, input.ActorID, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	if task.Type != models.TaskTypePost {
		return nil, ErrNotPostTask
	}

	changes := map[string]interface{}{}
	if input.VideoURL != nil {
		changes["video_url"] = strings.TrimSpace(*input.VideoURL)
	}
	if input.Caption != nil {
		changes["caption"] = *input.Caption
	}
	if input.RevisionNotes != nil {
		changes["revision_notes"] = *input.RevisionNotes
	}
	if input.ApprovalStatus != nil {
		status := *input.ApprovalStatus
		if !status.Valid() {
			return nil, ErrInvalidApproval
		}
		if (status == models.ApprovalApproved || status == models.ApprovalRevisionRequested) && !member.IsFull() {
			return nil, ErrTaskPermissionDenied
		}
		changes["approval_status"] = status
	}
	if len(changes) == 0 {
		return task, nil
	}

	if err := s.update(ctx, task, changes); err != nil {
		return nil, err
	}
	if v, ok := changes["video_url"].(string); ok {
		task.VideoURL = v
	}
	if input.Caption != nil {
		task.Caption = *input.Caption
	}
	if input.RevisionNotes != nil {
		task.RevisionNotes = *input.RevisionNotes
	}
	if input.ApprovalStatus != nil {
		task.ApprovalStatus = *input.ApprovalStatus
	}

	s.runHooks(ctx, TaskEvent{Transition: TransitionPostProduction, Task: *task, ActorID: input.ActorID})
	return task, nil
}

// DeleteTask removes a task. Only full-permission members may delete.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, member, err := s.loadForUpdate(ctx, taskID, actorID, nil)
	if err != nil {
		return err
	}
	if !member.IsFull() {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.Delete(ctx, task.TeamID, task.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.runHooks(ctx, TaskEvent{Transition: TransitionDelete, Task: *task, ActorID: actorID})
	return nil
}

// loadForUpdate fetches the task, checks the actor belongs to its team and
// can see it, and checks the caller's expected version if one was given
func (s *TaskService) loadForUpdate(ctx context.Context, taskID, actorID uint64, expectedVersion *int) (*models.Task, *models.TeamMember, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	member, err := s.ensureTeamMember(ctx, task.TeamID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !task.VisibleTo(*member) {
		return nil, nil, ErrTaskNotFound
	}

	if expectedVersion != nil && *expectedVersion != task.Version {
		s.recordConflict()
		return nil, nil, ErrTaskConflict
	}

	return task, member, nil
}

func (s *TaskService) update(ctx context.Context, task *models.Task, changes map[string]interface{}) error {
	if err := s.taskRepo.UpdateVersioned(ctx, task, changes); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			s.recordConflict()
			return ErrTaskConflict
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// backdated reports whether a task falls before today, or starts earlier
// today than the current minute
func (s *TaskService) backdated(task models.Task) bool {
	today := s.today()
	if task.Date.Before(today) {
		return true
	}
	if !task.Date.Equal(today) || task.StartTime == "" {
		return false
	}
	start, err := time.Parse(constants.TimeLayout, task.StartTime)
	if err != nil {
		return false
	}
	return atClock(today, start).Before(s.now().UTC().Truncate(time.Minute))
}

func (s *TaskService) recordConflict() {
	if s.metrics != nil {
		s.metrics.TaskConflicts.Inc()
	}
}

func (s *TaskService) findTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureTeamMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error) {
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	return member, nil
}

func (s *TaskService) ensureAssignee(ctx context.Context, teamID, userID uint64) error {
	if _, err := s.ensureTeamMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return ErrInvalidTaskAssignee
		}
		return err
	}
	return nil
}

// runHooks runs every post-commit hook on a context detached from the
// caller's cancellation
func (s *TaskService) runHooks(ctx context.Context, event TaskEvent) {
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range s.hooks {
		if err := hook(hookCtx, event); err != nil {
			logging.CaptureError(s.log, err, "post_commit_hook", logrus.Fields{
				"transition": event.Transition,
				"task_id":    event.Task.ID,
				"team_id":    event.Task.TeamID,
			})
		}
	}
}

// notifyHook decides who hears about a transition. The actor is never a
// recipient.
func (s *TaskService) notifyHook(ctx context.Context, event TaskEvent) error {
	task := event.Task
	payload := map[string]interface{}{
		"task_id":   task.ID,
		"task_type": task.Type,
		"date":      task.Date.Format(time.DateOnly),
	}

	var input FanoutInput
	switch event.Transition {
	case TransitionCreate, TransitionReassign:
		if task.AssignedTo == nil || *task.AssignedTo == event.ActorID {
			return nil
		}
		input = FanoutInput{
			Recipients: []uint64{*task.AssignedTo},
			Type:       models.NotificationTaskAssigned,
			Title:      "New task assigned",
			Message:    fmt.Sprintf("You were assigned %q on %s", task.Title, task.Date.Format(time.DateOnly)),
		}
	case TransitionReschedule:
		recipients, err := s.fullMembersExcept(ctx, task.TeamID, event.ActorID)
		if err != nil {
			return err
		}
		input = FanoutInput{
			Recipients: recipients,
			Type:       models.NotificationTaskRescheduled,
			Title:      "Task rescheduled",
			Message:    fmt.Sprintf("%q moved to %s %s", task.Title, task.Date.Format(time.DateOnly), task.StartTime),
		}
		payload["start_time"] = task.StartTime
		payload["end_time"] = task.EndTime
	case TransitionComplete:
		recipients, err := s.fullMembersExcept(ctx, task.TeamID, event.ActorID)
		if err != nil {
			return err
		}
		input = FanoutInput{
			Recipients: recipients,
			Type:       models.NotificationTaskCompleted,
			Title:      "Task completed",
			Message:    fmt.Sprintf("%q was completed", task.Title),
		}
	case TransitionPostProduction, TransitionDelete:
		return nil
	default:
		return nil
	}

	if len(input.Recipients) == 0 {
		return nil
	}
	input.TeamID = task.TeamID
	input.Payload = payload

	result, err := s.notifier.Fanout(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to fan out %s: %w", input.Type, err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("failed to persist %d of %d %s notifications: %w",
			len(result.Failed), len(result.Failed)+len(result.Created), input.Type, result.Failed[0].Err)
	}
	return nil
}

func (s *TaskService) metricsHook(_ context.Context, event TaskEvent) error {
	s.metrics.TaskTransitions.WithLabelValues(string(event.Transition)).Inc()
	return nil
}

func (s *TaskService) fullMembersExcept(ctx context.Context, teamID, exclude uint64) ([]uint64, error) {
	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return fullMemberIDs(members, exclude), nil
}

func fullMemberIDs(members []models.TeamMember, exclude uint64) []uint64 {
	var ids []uint64
	for _, m := range members {
		if m.IsFull() && m.UserID != exclude {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// validateTimeWindow accepts an empty window, or HH:MM bounds with end
// after start
func validateTimeWindow(start, end string) error {
	if start == "" && end == "" {
		return nil
	}

	s, err := time.Parse(constants.TimeLayout, start)
	if err != nil {
		return ErrInvalidTimeWindow
	}
	if end == "" {
		return nil
	}
	e, err := time.Parse(constants.TimeLayout, end)
	if err != nil {
		return ErrInvalidTimeWindow
	}
	if !e.After(s) {
		return ErrInvalidTimeWindow
	}
	return nil
}
