package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/notify"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// Notifier creates notifications for a set of recipients
type Notifier interface {
	Fanout(ctx context.Context, input FanoutInput) (*FanoutResult, error)
}

// FanoutInput describes one notification addressed to many recipients
type FanoutInput struct {
	Recipients []uint64
	TeamID     uint64
	Type       models.NotificationType
	Title      string
	Message    string
	Payload    map[string]interface{}
}

// FanoutResult lists what was persisted and which recipients failed
type FanoutResult struct {
	Created []models.Notification
	Failed  []FanoutFailure
}

// FanoutFailure records a recipient whose notification was not persisted
type FanoutFailure struct {
	UserID uint64
	Err    error
}

// NotificationService persists notifications and hands them to live delivery
type NotificationService struct {
	repo        repository.NotificationRepository
	broadcaster notify.Broadcaster
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewNotificationService creates a new NotificationService. broadcaster and
// m may be nil.
func NewNotificationService(repo repository.NotificationRepository, broadcaster notify.Broadcaster, m *metrics.Metrics, log logrus.FieldLogger) *NotificationService {
	if broadcaster == nil {
		broadcaster = notify.Noop{}
	}
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// ListNotificationsInput represents filters for listing notifications
type ListNotificationsInput struct {
	UserID     uint64
	TeamID     *uint64
	UnreadOnly bool
	Page       int
	PageSize   int
}

// Fanout persists one notification per distinct recipient, then attempts
// live delivery. Persistence failures are reported per recipient; delivery
// failures are only logged.
func (s *NotificationService) Fanout(ctx context.Context, input FanoutInput) (*FanoutResult, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidNotificationType
	}

	var payload datatypes.JSON
	if len(input.Payload) > 0 {
		raw, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification payload: %w", err)
		}
		payload = datatypes.JSON(raw)
	}

	result := &FanoutResult{}
	for _, userID := range distinctRecipients(input.Recipients) {
		notification := models.Notification{
			UserID:    userID,
			TeamID:    input.TeamID,
			Type:      input.Type,
			Title:     input.Title,
			Message:   input.Message,
			Payload:   payload,
			CreatedAt: s.now().UTC(),
		}

		if err := s.repo.Create(ctx, &notification); err != nil {
			result.Failed = append(result.Failed, FanoutFailure{UserID: userID, Err: err})
			if s.metrics != nil {
				s.metrics.NotificationFailures.Inc()
			}
			continue
		}

		result.Created = append(result.Created, notification)
		if s.metrics != nil {
			s.metrics.NotificationsCreated.WithLabelValues(string(input.Type)).Inc()
		}
		s.deliver(ctx, notification)
	}

	return result, nil
}

func (s *NotificationService) deliver(ctx context.Context, n models.Notification) {
	err := s.broadcaster.Publish(ctx, notify.Message{
		ID:        n.ID,
		UserID:    n.UserID,
		TeamID:    n.TeamID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Payload:   json.RawMessage(n.Payload),
		CreatedAt: n.CreatedAt,
	})

	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		s.log.WithError(err).WithFields(logrus.Fields{
			"notification_id": n.ID,
			"user_id":         n.UserID,
		}).Warn("live notification delivery failed")
	}
	if s.metrics != nil {
		s.metrics.LiveDeliveries.WithLabelValues(outcome).Inc()
	}
}

// ListNotifications returns the recipient's notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, error) {
	notifications, total, err := s.repo.List(ctx, repository.NotificationFilter{
		UserID:     input.UserID,
		TeamID:     input.TeamID,
		UnreadOnly: input.UnreadOnly,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint64) error {
	if err := s.repo.MarkRead(ctx, notificationID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read,
// optionally limited to one team
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64, teamID *uint64) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, teamID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return count, nil
}

// UnreadCount counts the user's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func distinctRecipients(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
