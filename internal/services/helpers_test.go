package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/notify"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedNow is Thursday 2026-10-15 10:30 UTC
var fixedNow = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.Invitation{},
		&models.Notification{},
	))
	return db
}

// seedTeam creates a team with the given members; the first member is the creator
func seedTeam(t *testing.T, db *gorm.DB, worldKey string, members ...models.TeamMember) *models.Team {
	t.Helper()

	team := &models.Team{Name: "Team " + worldKey, WorldKey: worldKey, CreatorID: members[0].UserID}
	require.NoError(t, db.Create(team).Error)

	for i := range members {
		members[i].TeamID = team.ID
		if members[i].Permission == "" {
			members[i].Permission = models.PermissionMember
		}
		members[i].JoinedAt = fixedNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(&members[i]).Error)
	}
	return team
}

func full(userID uint64, role models.MemberRole) models.TeamMember {
	return models.TeamMember{UserID: userID, Role: role, Permission: models.PermissionFull}
}

func member(userID uint64, role models.MemberRole) models.TeamMember {
	return models.TeamMember{UserID: userID, Role: role, Permission: models.PermissionMember}
}

// recordingBroadcaster keeps every published message
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (b *recordingBroadcaster) Publish(_ context.Context, msg notify.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	return b.err
}

func (b *recordingBroadcaster) recipients() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uint64, len(b.messages))
	for i, m := range b.messages {
		ids[i] = m.UserID
	}
	return ids
}

// failingNotifier fails every fan-out
type failingNotifier struct {
	calls int
}

func (n *failingNotifier) Fanout(context.Context, FanoutInput) (*FanoutResult, error) {
	n.calls++
	return nil, errors.New("notification store unavailable")
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint64) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Order("id ASC").Find(&out).Error)
	return out
}

func countNotifications(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&n).Error)
	return n
}

// newNotificationService wires a notification service on db with a clock
func newNotificationService(db *gorm.DB, b notify.Broadcaster) *NotificationService {
	s := NewNotificationService(repository.NewNotificationRepository(db), b, nil, quietLogger())
	s.now = clock
	return s
}
