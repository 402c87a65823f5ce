package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestFanout_OnePerDistinctRecipient(t *testing.T) {
	db := newTestDB(t)
	b := &recordingBroadcaster{}
	s := newNotificationService(db, b)

	result, err := s.Fanout(context.Background(), FanoutInput{
		Recipients: []uint64{2, 3, 2, 0},
		TeamID:     9,
		Type:       models.NotificationTaskCompleted,
		Title:      "Task completed",
		Message:    "done",
		Payload:    map[string]interface{}{"task_id": 5},
	})
	require.NoError(t, err)

	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []uint64{2, 3}, b.recipients())

	stored := notificationsFor(t, db, 2)
	require.Len(t, stored, 1)
	assert.Equal(t, uint64(9), stored[0].TeamID)
	assert.False(t, stored[0].IsRead)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(stored[0].Payload, &payload))
	assert.Equal(t, float64(5), payload["task_id"])
}

func TestFanout_RejectsUnknownType(t *testing.T) {
	s := newNotificationService(newTestDB(t), nil)

	_, err := s.Fanout(context.Background(), FanoutInput{Recipients: []uint64{1}, Type: "poke"})

	assert.ErrorIs(t, err, ErrInvalidNotificationType)
}

func TestFanout_LiveDeliveryFailureIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	s := newNotificationService(db, &recordingBroadcaster{err: errors.New("socket closed")})

	result, err := s.Fanout(context.Background(), FanoutInput{
		Recipients: []uint64{4},
		TeamID:     1,
		Type:       models.NotificationTaskAssigned,
		Title:      "New task assigned",
	})

	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, notificationsFor(t, db, 4), 1)
}

func TestFanout_StoreFailureIsReportedPerRecipient(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	b := &recordingBroadcaster{}
	s := NewNotificationService(repository.NewNotificationRepository(db), b, nil, quietLogger())

	result, err := s.Fanout(context.Background(), FanoutInput{
		Recipients: []uint64{1, 2},
		TeamID:     1,
		Type:       models.NotificationMemberJoined,
		Title:      "New team member",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Created)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, uint64(1), result.Failed[0].UserID)
	assert.Empty(t, b.recipients())
}

func TestMarkRead(t *testing.T) {
	db := newTestDB(t)
	s := newNotificationService(db, nil)
	ctx := context.Background()

	result, err := s.Fanout(ctx, FanoutInput{Recipients: []uint64{1, 2}, TeamID: 1, Type: models.NotificationTaskReminder, Title: "Reminder"})
	require.NoError(t, err)
	mine := result.Created[0]
	theirs := result.Created[1]

	require.NoError(t, s.MarkRead(ctx, 1, mine.ID))
	// marking twice is fine
	require.NoError(t, s.MarkRead(ctx, 1, mine.ID))

	assert.ErrorIs(t, s.MarkRead(ctx, 1, theirs.ID), ErrNotificationNotFound)
	assert.ErrorIs(t, s.MarkRead(ctx, 1, 999), ErrNotificationNotFound)

	stored := notificationsFor(t, db, 1)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsRead)
	require.NotNil(t, stored[0].ReadAt)
	assert.True(t, stored[0].ReadAt.Equal(fixedNow))

	assert.False(t, notificationsFor(t, db, 2)[0].IsRead)
}

func TestMarkAllRead_ScopedToRecipientAndTeam(t *testing.T) {
	db := newTestDB(t)
	s := newNotificationService(db, nil)
	ctx := context.Background()

	for _, teamID := range []uint64{1, 1, 2} {
		_, err := s.Fanout(ctx, FanoutInput{Recipients: []uint64{7}, TeamID: teamID, Type: models.NotificationTaskAssigned, Title: "t"})
		require.NoError(t, err)
	}
	_, err := s.Fanout(ctx, FanoutInput{Recipients: []uint64{8}, TeamID: 1, Type: models.NotificationTaskAssigned, Title: "t"})
	require.NoError(t, err)

	count, err := s.MarkAllRead(ctx, 7, ptr(uint64(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := s.UnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	count, err = s.MarkAllRead(ctx, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	unread, err = s.UnreadCount(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestListNotifications_NewestFirstAndUnreadFilter(t *testing.T) {
	db := newTestDB(t)
	s := newNotificationService(db, nil)
	ctx := context.Background()

	var ids []uint64
	for _, title := range []string{"first", "second", "third"} {
		result, err := s.Fanout(ctx, FanoutInput{Recipients: []uint64{3}, TeamID: 1, Type: models.NotificationTaskAssigned, Title: title})
		require.NoError(t, err)
		ids = append(ids, result.Created[0].ID)
	}
	require.NoError(t, s.MarkRead(ctx, 3, ids[2]))

	all, total, err := s.ListNotifications(ctx, ListNotificationsInput{UserID: 3, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title)

	unread, total, err := s.ListNotifications(ctx, ListNotificationsInput{UserID: 3, UnreadOnly: true, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Title)
}
