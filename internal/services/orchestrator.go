package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/constants"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownOnboardingShape = errors.New("unknown onboarding shape")
	ErrScheduleRequired       = errors.New("schedule is required")
)

// OnboardingShape is the event that finished onboarding
type OnboardingShape string

const (
	ShapeNoTeam     OnboardingShape = "no_team"
	ShapeTeamFormed OnboardingShape = "team_formed"
)

// Valid reports whether s is a known shape
func (s OnboardingShape) Valid() bool {
	switch s {
	case ShapeNoTeam, ShapeTeamFormed:
		return true
	default:
		return false
	}
}

// Sources recorded in orchestration reports and metrics
const (
	SourceOnboarding = "onboarding"
	SourceEditDay    = "edit_day"
	SourceShootDay   = "shoot_day"
	SourceSlot       = "slot"
)

// BusyWindow is a span of time a user is unavailable
type BusyWindow struct {
	Start time.Time
	End   time.Time
}

// BusyProvider reports a user's busy windows on a day, typically from a
// synced external calendar
type BusyProvider interface {
	BusyWindows(ctx context.Context, userID uint64, day time.Time) ([]BusyWindow, error)
}

// TaskCreator persists tasks on behalf of the orchestrator
type TaskCreator interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error)
}

// FailedTask is a task that was built but not stored
type FailedTask struct {
	Task   models.Task `json:"task"`
	Reason string      `json:"reason"`
}

// RejectedEntry is an input entry that never became a task
type RejectedEntry struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// OrchestrationReport lists everything an orchestration run did, so that
// partial success is visible to the caller
type OrchestrationReport struct {
	Created  []models.Task   `json:"created"`
	Failed   []FailedTask    `json:"failed"`
	Rejected []RejectedEntry `json:"rejected"`
}

// Attempted is the number of tasks the run tried to store
func (r *OrchestrationReport) Attempted() int {
	return len(r.Created) + len(r.Failed)
}

// Summary renders the outcome as "N of M tasks created"
func (r *OrchestrationReport) Summary() string {
	s := fmt.Sprintf("%d of %d tasks created", len(r.Created), r.Attempted())
	if len(r.Rejected) > 0 {
		s += fmt.Sprintf(", %d entries rejected", len(r.Rejected))
	}
	return s
}

func (r *OrchestrationReport) reject(source string, index int, reason string) {
	r.Rejected = append(r.Rejected, RejectedEntry{Source: source, Index: index, Reason: reason})
}

// Orchestrator turns onboarding events, brainstorm results and schedules
// into stored tasks
type Orchestrator struct {
	tasks        TaskCreator
	teamRepo     repository.TeamRepository
	busy         BusyProvider
	writeTimeout time.Duration
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	now          func() time.Time
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithBusyProvider enables busy-window avoidance
func WithBusyProvider(p BusyProvider) OrchestratorOption {
	return func(o *Orchestrator) { o.busy = p }
}

// WithWriteTimeout bounds every task write
func WithWriteTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithOrchestratorMetrics records per-source outcomes
func WithOrchestratorMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(tasks TaskCreator, teamRepo repository.TeamRepository, log logrus.FieldLogger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		tasks:        tasks,
		teamRepo:     teamRepo,
		writeTimeout: constants.DefaultWriteTimeout,
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnboardingInput represents a finished onboarding
type OnboardingInput struct {
	TeamID   uint64
	ActorID  uint64
	WorldKey string
	// Shape is derived from the member list when empty
	Shape OnboardingShape
}

// ExpandBrainstormInput represents a brainstorm result to turn into tasks
type ExpandBrainstormInput struct {
	TeamID   uint64
	ActorID  uint64
	WorldKey string
	Result   BrainstormResult
}

// MaterializeInput represents schedule slots to turn into posting tasks
type MaterializeInput struct {
	TeamID     uint64
	ActorID    uint64
	WorldKey   string
	Schedule   *schedule.Schedule
	AssigneeID *uint64
}

// PlanOnboarding creates the immediate next steps after onboarding. Every
// task is dated today and starts now. A solo artist only gets a brainstorm;
// a formed team also gets an invite step. The brainstorm becomes a shared
// event once collaborators exist.
func (o *Orchestrator) PlanOnboarding(ctx context.Context, input OnboardingInput) (*OrchestrationReport, error) {
	members, err := o.teamMembers(ctx, input.TeamID, input.ActorID)
	if err != nil {
		return nil, err
	}
	collaborators := len(members) - 1

	shape := input.Shape
	if shape == "" {
		shape = ShapeNoTeam
		if collaborators > 0 {
			shape = ShapeTeamFormed
		}
	}
	if !shape.Valid() {
		return nil, ErrUnknownOnboardingShape
	}

	now := o.now().UTC().Truncate(time.Minute)
	actor := input.ActorID

	var drafts []CreateTaskInput
	if shape == ShapeTeamFormed {
		drafts = append(drafts, CreateTaskInput{
			Title:       "Invite your team",
			Description: "Send invitations so your collaborators can join the plan.",
			Type:        models.TaskTypeInviteTeam,
			Category:    models.CategoryTask,
			AssigneeID:  &actor,
		})
	}

	brainstormCategory := models.CategoryTask
	if collaborators > 0 {
		brainstormCategory = models.CategoryEvent
	}
	drafts = append(drafts, CreateTaskInput{
		Title:       "Brainstorm content",
		Description: "Pick content formats and plan shoot and edit days for the release.",
		Type:        models.TaskTypeBrainstorm,
		Category:    brainstormCategory,
		AssigneeID:  &actor,
	})

	report := &OrchestrationReport{}
	for _, draft := range drafts {
		duration := constants.BrainstormTaskDuration
		if draft.Type == models.TaskTypeInviteTeam {
			duration = constants.InviteTaskDuration
		}

		draft.TeamID = input.TeamID
		draft.ActorID = input.ActorID
		draft.WorldKey = input.WorldKey
		start, end := o.placeTask(ctx, draft.AssigneeID, now, now.Add(duration))
		draft.Date = schedule.DateOf(now)
		draft.StartTime, draft.EndTime = clockWindow(start, end)

		o.write(ctx, SourceOnboarding, draft, report)
	}

	o.logReport(SourceOnboarding, input.TeamID, report)
	return report, nil
}

// ExpandBrainstorm turns proposed edit and shoot days into tasks. Edit days
// are private tasks for the editor, shoot days are team events. Titles and
// descriptions are the proposal's format and reason, unchanged.
func (o *Orchestrator) ExpandBrainstorm(ctx context.Context, input ExpandBrainstormInput) (*OrchestrationReport, error) {
	members, err := o.teamMembers(ctx, input.TeamID, input.ActorID)
	if err != nil {
		return nil, err
	}

	now := o.now().UTC()
	report := &OrchestrationReport{}
	budget := constants.MaxBrainstormEntries

	expand := func(source string, entries []BrainstormEntry, taskType models.TaskType, category models.TaskCategory, skill models.MemberRole, fallback *uint64) {
		for i, entry := range entries {
			if budget == 0 {
				report.reject(source, i, fmt.Sprintf("more than %d proposals", constants.MaxBrainstormEntries))
				continue
			}
			budget--

			date, reason := checkBrainstormEntry(entry, now)
			if reason != "" {
				report.reject(source, i, reason)
				continue
			}

			assignee, ok := resolveAssignee(entry.AssigneeID, members, skill, fallback)
			if !ok {
				report.reject(source, i, "assignee is not a member of the team")
				continue
			}

			start, _ := time.Parse(constants.TimeLayout, entry.StartTime)
			end, _ := time.Parse(constants.TimeLayout, entry.EndTime)
			start, end = o.placeTask(ctx, assignee, atClock(date, start), atClock(date, end))

			draft := CreateTaskInput{
				TeamID:      input.TeamID,
				ActorID:     input.ActorID,
				WorldKey:    input.WorldKey,
				Title:       entry.Format,
				Description: entry.Reason,
				Type:        taskType,
				Category:    category,
				Date:        date,
				AssigneeID:  assignee,
			}
			draft.StartTime, draft.EndTime = clockWindow(start, end)
			o.write(ctx, source, draft, report)
		}
	}

	actor := input.ActorID
	expand(SourceEditDay, input.Result.EditDays, models.TaskTypeEdit, models.CategoryTask, models.RoleEditor, &actor)
	expand(SourceShootDay, input.Result.ShootDays, models.TaskTypeShoot, models.CategoryEvent, models.RoleVideographer, nil)

	o.logReport("brainstorm", input.TeamID, report)
	return report, nil
}

// MaterializeSchedule creates one posting event per slot. Slots dated
// before today, or earlier today than now, are skipped.
func (o *Orchestrator) MaterializeSchedule(ctx context.Context, input MaterializeInput) (*OrchestrationReport, error) {
	if input.Schedule == nil {
		return nil, ErrScheduleRequired
	}
	if _, err := o.teamMembers(ctx, input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	now := o.now().UTC()
	today := schedule.DateOf(now)
	report := &OrchestrationReport{}

	for i, slot := range input.Schedule.Slots {
		date := schedule.DateOf(slot.PostingDate)
		if date.Before(today) {
			report.reject(SourceSlot, i, "slot date is in the past")
			continue
		}

		suggested, err := time.Parse(constants.TimeLayout, slot.SuggestedTime)
		if err != nil {
			suggested, _ = time.Parse(constants.TimeLayout, schedule.DefaultSuggestedTime)
		}
		start := atClock(date, suggested)
		if start.Before(now.Truncate(time.Minute)) {
			report.reject(SourceSlot, i, "slot time has passed")
			continue
		}
		start, end := o.placeTask(ctx, input.AssigneeID, start, start.Add(constants.PostTaskDuration))

		draft := CreateTaskInput{
			TeamID:      input.TeamID,
			ActorID:     input.ActorID,
			WorldKey:    input.WorldKey,
			Title:       fmt.Sprintf("Post on %s", slot.Platform),
			Description: fmt.Sprintf("%s, slot %d of %d", slot.WeekLabel, slot.Position, input.Schedule.TotalSlots),
			Type:        models.TaskTypePost,
			Category:    models.CategoryEvent,
			Date:        date,
			AssigneeID:  input.AssigneeID,
		}
		draft.StartTime, draft.EndTime = clockWindow(start, end)
		o.write(ctx, SourceSlot, draft, report)
	}

	o.logReport(SourceSlot, input.TeamID, report)
	return report, nil
}

// write stores one task under the write timeout. A failed or timed out
// write keeps the in-memory task in the report.
func (o *Orchestrator) write(ctx context.Context, source string, input CreateTaskInput, report *OrchestrationReport) {
	wctx, cancel := context.WithTimeout(ctx, o.writeTimeout)
	defer cancel()

	task, err := o.tasks.CreateTask(wctx, input)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "write timed out"
		}
		report.Failed = append(report.Failed, FailedTask{Task: input.Draft(), Reason: reason})
		o.count(source, "failed")

		o.log.WithError(err).WithFields(logrus.Fields{
			"team_id": input.TeamID,
			"source":  source,
			"title":   input.Title,
		}).Warn("task write failed")
		return
	}

	report.Created = append(report.Created, *task)
	o.count(source, "created")
}

func (o *Orchestrator) count(source, outcome string) {
	if o.metrics != nil {
		o.metrics.OrchestratedTasks.WithLabelValues(source, outcome).Inc()
	}
}

func (o *Orchestrator) logReport(source string, teamID uint64, report *OrchestrationReport) {
	o.log.WithFields(logrus.Fields{
		"team_id":  teamID,
		"source":   source,
		"created":  len(report.Created),
		"failed":   len(report.Failed),
		"rejected": len(report.Rejected),
	}).Info(report.Summary())
}

func (o *Orchestrator) teamMembers(ctx context.Context, teamID, actorID uint64) ([]models.TeamMember, error) {
	members, err := o.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	for _, m := range members {
		if m.UserID == actorID {
			return members, nil
		}
	}
	return nil, ErrNotTeamMember
}

// placeTask shifts [start, end) past the assignee's busy windows when the
// result still fits in the same day
func (o *Orchestrator) placeTask(ctx context.Context, assignee *uint64, start, end time.Time) (time.Time, time.Time) {
	if o.busy == nil || assignee == nil {
		return start, end
	}

	windows, err := o.busy.BusyWindows(ctx, *assignee, schedule.DateOf(start))
	if err != nil {
		o.log.WithError(err).WithField("user_id", *assignee).Warn("busy windows unavailable, placing task as proposed")
		return start, end
	}

	if s, e, ok := fitAroundBusy(start, end, windows); ok {
		return s, e
	}
	return start, end
}

func fitAroundBusy(start, end time.Time, windows []BusyWindow) (time.Time, time.Time, bool) {
	sorted := make([]BusyWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	duration := end.Sub(start)
	lastMinute := schedule.DateOf(start).Add(24*time.Hour - time.Minute)

	s, e := start, end
	for _, w := range sorted {
		if w.End.After(s) && w.Start.Before(e) {
			s = w.End.UTC().Truncate(time.Minute)
			if s.Before(w.End) {
				s = s.Add(time.Minute)
			}
			e = s.Add(duration)
		}
	}

	if e.After(lastMinute) {
		return start, end, false
	}
	return s, e, true
}

// checkBrainstormEntry returns the entry's date, or a rejection reason
func checkBrainstormEntry(entry BrainstormEntry, now time.Time) (time.Time, string) {
	today := schedule.DateOf(now)
	if err := utils.ValidateStruct(entry); err != nil {
		return time.Time{}, err.Error()
	}

	date, err := time.Parse(time.DateOnly, entry.Date)
	if err != nil {
		return time.Time{}, "date is not a calendar date"
	}
	date = schedule.DateOf(date)
	if date.Before(today) {
		return time.Time{}, "date is in the past"
	}

	if err := validateTimeWindow(entry.StartTime, entry.EndTime); err != nil {
		return time.Time{}, "time window is empty or inverted"
	}
	if date.Equal(today) {
		start, _ := time.Parse(constants.TimeLayout, entry.StartTime)
		if atClock(date, start).Before(now.Truncate(time.Minute)) {
			return time.Time{}, "start time is in the past"
		}
	}
	return date, ""
}

// resolveAssignee picks the proposal's assignee, else the first member with
// the skill role, else fallback. ok is false when the proposal names someone
// outside the team.
func resolveAssignee(proposed *uint64, members []models.TeamMember, skill models.MemberRole, fallback *uint64) (*uint64, bool) {
	if proposed != nil {
		for _, m := range members {
			if m.UserID == *proposed {
				id := m.UserID
				return &id, true
			}
		}
		return nil, false
	}

	for _, m := range members {
		if m.Role == skill {
			id := m.UserID
			return &id, true
		}
	}
	return fallback, true
}

func atClock(date, clock time.Time) time.Time {
	return schedule.DateOf(date).Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
}

// clockWindow formats a window as HH:MM bounds. An end past the start's day
// is clamped to 23:59, and dropped if that leaves nothing.
func clockWindow(start, end time.Time) (string, string) {
	startClock := start.Format(constants.TimeLayout)

	lastMinute := schedule.DateOf(start).Add(24*time.Hour - time.Minute)
	if end.After(lastMinute) {
		end = lastMinute
	}
	if !end.After(start) {
		return startClock, ""
	}
	return startClock, end.Format(constants.TimeLayout)
}
