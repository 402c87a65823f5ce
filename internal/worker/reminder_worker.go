// Package worker runs background jobs on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultReminderSpec runs the sweep every morning at 08:00 UTC
const DefaultReminderSpec = "0 8 * * *"

// ReminderWorker reminds assignees of pending tasks dated today. It sweeps
// at most once per calendar day.
type ReminderWorker struct {
	tasks    repository.TaskRepository
	notifier services.Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	spec     string
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewReminderWorker creates a worker. An empty spec uses DefaultReminderSpec.
func NewReminderWorker(tasks repository.TaskRepository, notifier services.Notifier, m *metrics.Metrics, log logrus.FieldLogger, spec string) *ReminderWorker {
	if spec == "" {
		spec = DefaultReminderSpec
	}
	return &ReminderWorker{
		tasks:    tasks,
		notifier: notifier,
		metrics:  m,
		log:      log,
		spec:     spec,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (w *ReminderWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Start registers the sweep and starts the scheduler
func (w *ReminderWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, func() {
		if _, err := w.RunOnce(context.Background()); err != nil {
			w.log.WithError(err).Error("reminder sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", w.spec, err)
	}

	w.cron.Start()
	w.log.WithField("spec", w.spec).Info("reminder worker started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (w *ReminderWorker) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce sends today's reminders and returns how many were persisted. A
// second call on the same day does nothing.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	today := schedule.DateOf(w.now().UTC())

	w.mu.Lock()
	if w.lastRun.Equal(today) {
		w.mu.Unlock()
		w.count("skipped")
		return 0, nil
	}
	w.lastRun = today
	w.mu.Unlock()

	tasks, err := w.tasks.ListPendingOn(ctx, today)
	if err != nil {
		w.mu.Lock()
		w.lastRun = time.Time{}
		w.mu.Unlock()
		w.count("failed")
		return 0, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		if task.AssignedTo == nil {
			continue
		}

		message := fmt.Sprintf("%q is scheduled for today", task.Title)
		if task.StartTime != "" {
			message = fmt.Sprintf("%q starts today at %s", task.Title, task.StartTime)
		}

		result, err := w.notifier.Fanout(ctx, services.FanoutInput{
			Recipients: []uint64{*task.AssignedTo},
			TeamID:     task.TeamID,
			Type:       models.NotificationTaskReminder,
			Title:      "Reminder",
			Message:    message,
			Payload: map[string]interface{}{
				"task_id":    task.ID,
				"start_time": task.StartTime,
			},
		})
		if err != nil {
			w.log.WithError(err).WithField("task_id", task.ID).Warn("reminder not sent")
			continue
		}
		sent += len(result.Created)
	}

	w.count("completed")
	w.log.WithFields(logrus.Fields{
		"date":      today.Format(time.DateOnly),
		"tasks":     len(tasks),
		"reminders": sent,
	}).Info("reminder sweep finished")
	return sent, nil
}

func (w *ReminderWorker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.ReminderRuns.WithLabelValues(outcome).Inc()
	}
}
