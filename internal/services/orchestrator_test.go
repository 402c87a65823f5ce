package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOrchestrator(db *gorm.DB, opts ...OrchestratorOption) *Orchestrator {
	tasks := NewTaskService(repository.NewTaskRepository(db), repository.NewTeamRepository(db), nil, nil, quietLogger())
	tasks.SetClock(clock)
	opts = append([]OrchestratorOption{WithClock(clock)}, opts...)
	return NewOrchestrator(tasks, repository.NewTeamRepository(db), quietLogger(), opts...)
}

// busyCalendar serves fixed busy windows per user
type busyCalendar map[uint64][]BusyWindow

func (c busyCalendar) BusyWindows(_ context.Context, userID uint64, _ time.Time) ([]BusyWindow, error) {
	return c[userID], nil
}

// blockingCreator never finishes a write before its context ends
type blockingCreator struct{}

func (blockingCreator) CreateTask(ctx context.Context, _ CreateTaskInput) (*models.Task, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPlanOnboarding_SoloArtist(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-solo", full(1, models.RoleArtist))
	o := newOrchestrator(db)

	report, err := o.PlanOnboarding(context.Background(), OnboardingInput{
		TeamID:   team.ID,
		ActorID:  1,
		WorldKey: "world-solo",
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	task := report.Created[0]
	assert.Equal(t, models.TaskTypeBrainstorm, task.Type)
	assert.Equal(t, models.CategoryTask, task.Category)
	assert.True(t, task.Date.Equal(date(2026, 10, 15)))
	assert.Equal(t, "10:30", task.StartTime)
	assert.Equal(t, "11:00", task.EndTime)
	assert.True(t, task.IsAssignedTo(1))
	assert.Equal(t, "world-solo", task.WorldKey)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "1 of 1 tasks created", report.Summary())
}

func TestPlanOnboarding_TeamFormed(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-team", full(1, models.RoleArtist), member(2, models.RoleEditor))
	o := newOrchestrator(db)

	report, err := o.PlanOnboarding(context.Background(), OnboardingInput{TeamID: team.ID, ActorID: 1})
	require.NoError(t, err)

	require.Len(t, report.Created, 2)
	invite, brainstorm := report.Created[0], report.Created[1]

	assert.Equal(t, models.TaskTypeInviteTeam, invite.Type)
	assert.Equal(t, "10:30", invite.StartTime)
	assert.Equal(t, "10:45", invite.EndTime)

	assert.Equal(t, models.TaskTypeBrainstorm, brainstorm.Type)
	assert.Equal(t, models.CategoryEvent, brainstorm.Category)
	assert.Equal(t, "11:00", brainstorm.EndTime)
}

func TestPlanOnboarding_ExplicitShape(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-explicit", full(1, models.RoleArtist))
	o := newOrchestrator(db)
	ctx := context.Background()

	report, err := o.PlanOnboarding(ctx, OnboardingInput{TeamID: team.ID, ActorID: 1, Shape: ShapeTeamFormed})
	require.NoError(t, err)
	require.Len(t, report.Created, 2)
	// no collaborators yet, so the brainstorm stays private
	assert.Equal(t, models.CategoryTask, report.Created[1].Category)

	_, err = o.PlanOnboarding(ctx, OnboardingInput{TeamID: team.ID, ActorID: 1, Shape: "solo_tour"})
	assert.ErrorIs(t, err, ErrUnknownOnboardingShape)

	_, err = o.PlanOnboarding(ctx, OnboardingInput{TeamID: team.ID, ActorID: 7})
	assert.ErrorIs(t, err, ErrNotTeamMember)
}

func TestPlanOnboarding_LateEveningClampsEnd(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-late", full(1, models.RoleArtist))
	late := time.Date(2026, 10, 15, 23, 45, 20, 0, time.UTC)
	o := newOrchestrator(db, WithClock(func() time.Time { return late }))

	report, err := o.PlanOnboarding(context.Background(), OnboardingInput{TeamID: team.ID, ActorID: 1})
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	assert.Equal(t, "23:45", report.Created[0].StartTime)
	assert.Equal(t, "23:59", report.Created[0].EndTime)
}

func TestExpandBrainstorm(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-bs",
		full(1, models.RoleArtist),
		member(2, models.RoleEditor),
		member(3, models.RoleVideographer),
	)
	o := newOrchestrator(db)

	result := BrainstormResult{
		EditDays: []BrainstormEntry{
			{Date: "2026-10-18", StartTime: "10:00", EndTime: "14:00", Format: "Teaser cut", Reason: "Cut the teaser"},
			{Date: "2026-10-10", StartTime: "10:00", EndTime: "14:00", Format: "Too late"},
			{Date: "2026-10-19", StartTime: "25:00", EndTime: "26:00", Format: "Bad clock"},
		},
		ShootDays: []BrainstormEntry{
			{Date: "2026-10-16", StartTime: "09:00", EndTime: "17:00", Format: "Studio session", Reason: "Performance footage"},
			{Date: "2026-10-17", StartTime: "12:00", EndTime: "11:00", Format: "Inverted"},
			{Date: "2026-10-17", StartTime: "12:00", EndTime: "13:00", Format: "Stranger", AssigneeID: ptr(uint64(42))},
		},
	}

	report, err := o.ExpandBrainstorm(context.Background(), ExpandBrainstormInput{
		TeamID:   team.ID,
		ActorID:  1,
		WorldKey: "world-bs",
		Result:   result,
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 2)
	edit, shoot := report.Created[0], report.Created[1]

	assert.Equal(t, models.TaskTypeEdit, edit.Type)
	assert.Equal(t, models.CategoryTask, edit.Category)
	assert.Equal(t, "Teaser cut", edit.Title)
	assert.Equal(t, "Cut the teaser", edit.Description)
	assert.True(t, edit.IsAssignedTo(2))
	assert.True(t, edit.Date.Equal(date(2026, 10, 18)))

	assert.Equal(t, models.TaskTypeShoot, shoot.Type)
	assert.Equal(t, models.CategoryEvent, shoot.Category)
	assert.True(t, shoot.IsAssignedTo(3))
	assert.Equal(t, "09:00", shoot.StartTime)
	assert.Equal(t, "17:00", shoot.EndTime)

	require.Len(t, report.Rejected, 4)
	assert.Equal(t, RejectedEntry{Source: SourceEditDay, Index: 1, Reason: "date is in the past"}, report.Rejected[0])
	assert.Equal(t, SourceEditDay, report.Rejected[1].Source)
	assert.Equal(t, 2, report.Rejected[1].Index)
	assert.NotEmpty(t, report.Rejected[1].Reason)
	assert.Equal(t, RejectedEntry{Source: SourceShootDay, Index: 1, Reason: "time window is empty or inverted"}, report.Rejected[2])
	assert.Equal(t, RejectedEntry{Source: SourceShootDay, Index: 2, Reason: "assignee is not a member of the team"}, report.Rejected[3])

	assert.Equal(t, "2 of 2 tasks created, 4 entries rejected", report.Summary())
}

func TestExpandBrainstorm_FallbackAssignees(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-fallback", full(1, models.RoleArtist), member(2, models.RoleManager))
	o := newOrchestrator(db)

	report, err := o.ExpandBrainstorm(context.Background(), ExpandBrainstormInput{
		TeamID:  team.ID,
		ActorID: 1,
		Result: BrainstormResult{
			EditDays:  []BrainstormEntry{{Date: "2026-10-20", StartTime: "10:00", EndTime: "11:00", Format: "Edit"}},
			ShootDays: []BrainstormEntry{{Date: "2026-10-21", StartTime: "10:00", EndTime: "11:00", Format: "Shoot"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 2)
	assert.True(t, report.Created[0].IsAssignedTo(1))
	assert.Nil(t, report.Created[1].AssignedTo)
}

func TestExpandBrainstorm_CapsEntries(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-cap", full(1, models.RoleArtist))
	o := newOrchestrator(db)

	entries := make([]BrainstormEntry, 31)
	for i := range entries {
		entries[i] = BrainstormEntry{Date: "2026-10-20", StartTime: "10:00", EndTime: "11:00", Format: "Edit"}
	}

	report, err := o.ExpandBrainstorm(context.Background(), ExpandBrainstormInput{
		TeamID:  team.ID,
		ActorID: 1,
		Result:  BrainstormResult{EditDays: entries},
	})
	require.NoError(t, err)

	assert.Len(t, report.Created, 30)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 30, report.Rejected[0].Index)
}

func TestExpandBrainstorm_StartAlreadyPassedToday(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-today", full(1, models.RoleArtist))
	o := newOrchestrator(db)

	report, err := o.ExpandBrainstorm(context.Background(), ExpandBrainstormInput{
		TeamID:  team.ID,
		ActorID: 1,
		Result: BrainstormResult{
			EditDays: []BrainstormEntry{
				{Date: "2026-10-15", StartTime: "08:00", EndTime: "09:00", Format: "Morning edit"},
				{Date: "2026-10-15", StartTime: "16:00", EndTime: "18:00", Format: "Evening edit"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	assert.Equal(t, "Evening edit", report.Created[0].Title)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, RejectedEntry{Source: SourceEditDay, Index: 0, Reason: "start time is in the past"}, report.Rejected[0])
	assert.Empty(t, report.Failed)
}

func testSchedule() *schedule.Schedule {
	return &schedule.Schedule{
		TotalSlots: 3,
		Slots: []schedule.Slot{
			{PostingDate: date(2026, 10, 9), WeekLabel: "Week -1", Position: 1, Platform: schedule.PlatformTikTok, SuggestedTime: "14:00"},
			{PostingDate: date(2026, 10, 16), WeekLabel: "Release week", Position: 2, Platform: schedule.PlatformTikTok, SuggestedTime: "14:00"},
			{PostingDate: date(2026, 10, 20), WeekLabel: "Week +1", Position: 3, Platform: schedule.PlatformTikTok, SuggestedTime: ""},
		},
	}
}

func TestMaterializeSchedule(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-posts", full(1, models.RoleArtist))
	m := metrics.New()
	o := newOrchestrator(db, WithOrchestratorMetrics(m))

	report, err := o.MaterializeSchedule(context.Background(), MaterializeInput{
		TeamID:     team.ID,
		ActorID:    1,
		WorldKey:   "world-posts",
		Schedule:   testSchedule(),
		AssigneeID: ptr(uint64(1)),
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 2)
	post := report.Created[0]
	assert.Equal(t, "Post on tiktok", post.Title)
	assert.Equal(t, "Release week, slot 2 of 3", post.Description)
	assert.Equal(t, models.TaskTypePost, post.Type)
	assert.Equal(t, models.CategoryEvent, post.Category)
	assert.Equal(t, "14:00", post.StartTime)
	assert.Equal(t, "14:30", post.EndTime)
	assert.Equal(t, "14:00", report.Created[1].StartTime)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, RejectedEntry{Source: SourceSlot, Index: 0, Reason: "slot date is in the past"}, report.Rejected[0])
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OrchestratedTasks.WithLabelValues(SourceSlot, "created")))

	_, err = o.MaterializeSchedule(context.Background(), MaterializeInput{TeamID: team.ID, ActorID: 1})
	assert.ErrorIs(t, err, ErrScheduleRequired)
}

func TestMaterializeSchedule_SkipsPassedSlotToday(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-posts-today", full(1, models.RoleArtist))
	o := newOrchestrator(db)

	report, err := o.MaterializeSchedule(context.Background(), MaterializeInput{
		TeamID:  team.ID,
		ActorID: 1,
		Schedule: &schedule.Schedule{
			TotalSlots: 2,
			Slots: []schedule.Slot{
				{PostingDate: date(2026, 10, 15), WeekLabel: "Release week", Position: 1, Platform: schedule.PlatformTikTok, SuggestedTime: "09:00"},
				{PostingDate: date(2026, 10, 15), WeekLabel: "Release week", Position: 2, Platform: schedule.PlatformTikTok, SuggestedTime: "18:00"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	assert.Equal(t, "18:00", report.Created[0].StartTime)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, RejectedEntry{Source: SourceSlot, Index: 0, Reason: "slot time has passed"}, report.Rejected[0])
}

func TestMaterializeSchedule_AvoidsBusyWindows(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-busy", full(1, models.RoleArtist))
	busy := busyCalendar{1: {
		{Start: time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 16, 15, 40, 30, 0, time.UTC)},
		{Start: time.Date(2026, 10, 16, 13, 30, 0, 0, time.UTC), End: time.Date(2026, 10, 16, 15, 10, 0, 0, time.UTC)},
	}}
	o := newOrchestrator(db, WithBusyProvider(busy))

	sched := testSchedule()
	sched.Slots = sched.Slots[1:2]
	report, err := o.MaterializeSchedule(context.Background(), MaterializeInput{
		TeamID:     team.ID,
		ActorID:    1,
		Schedule:   sched,
		AssigneeID: ptr(uint64(1)),
	})
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	assert.Equal(t, "15:41", report.Created[0].StartTime)
	assert.Equal(t, "16:11", report.Created[0].EndTime)
}

func TestFitAroundBusy_KeepsProposalWhenDayIsFull(t *testing.T) {
	day := date(2026, 10, 16)
	start := day.Add(22 * time.Hour)
	end := start.Add(time.Hour)
	windows := []BusyWindow{{Start: day.Add(21 * time.Hour), End: day.Add(23 * time.Hour)}}

	_, _, ok := fitAroundBusy(start, end, windows)
	assert.False(t, ok)

	s, e, ok := fitAroundBusy(day.Add(9*time.Hour), day.Add(10*time.Hour), windows)
	assert.True(t, ok)
	assert.Equal(t, day.Add(9*time.Hour), s)
	assert.Equal(t, day.Add(10*time.Hour), e)
}

func TestOrchestrator_WriteTimeout(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-slow", full(1, models.RoleArtist))
	o := NewOrchestrator(blockingCreator{}, repository.NewTeamRepository(db), quietLogger(),
		WithClock(clock), WithWriteTimeout(10*time.Millisecond))

	report, err := o.PlanOnboarding(context.Background(), OnboardingInput{TeamID: team.ID, ActorID: 1})
	require.NoError(t, err)

	assert.Empty(t, report.Created)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "write timed out", report.Failed[0].Reason)
	assert.Equal(t, "Brainstorm content", report.Failed[0].Task.Title)
	assert.Equal(t, "0 of 1 tasks created", report.Summary())
}

// errCreator fails every write
type errCreator struct{}

func (errCreator) CreateTask(context.Context, CreateTaskInput) (*models.Task, error) {
	return nil, errors.New("disk full")
}

func TestOrchestrator_PartialFailureIsReported(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "world-fail", full(1, models.RoleArtist), member(2, models.RoleEditor))
	o := NewOrchestrator(errCreator{}, repository.NewTeamRepository(db), quietLogger(), WithClock(clock))

	report, err := o.PlanOnboarding(context.Background(), OnboardingInput{TeamID: team.ID, ActorID: 1})
	require.NoError(t, err)

	require.Len(t, report.Failed, 2)
	assert.Equal(t, "disk full", report.Failed[0].Reason)
	assert.Equal(t, models.TaskTypeInviteTeam, report.Failed[0].Task.Type)
	assert.Equal(t, "0 of 2 tasks created", report.Summary())
}
