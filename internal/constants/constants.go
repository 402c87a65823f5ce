package constants

import "time"

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyTeam   = "team"
	ContextKeyMember = "team_member"
	ContextKeyTask   = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Orchestration
const (
	// DefaultWriteTimeout bounds each store write made on behalf of a user flow.
	DefaultWriteTimeout = 3 * time.Second

	MaxBrainstormEntries = 30

	// Durations of generated tasks.
	InviteTaskDuration     = 15 * time.Minute
	BrainstormTaskDuration = 30 * time.Minute
	PostTaskDuration       = 30 * time.Minute
)

// TimeLayout is the wall clock format of task start and end times.
const TimeLayout = "15:04"
