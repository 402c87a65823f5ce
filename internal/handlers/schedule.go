package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/sirupsen/logrus"
)

// scheduleRequest is the JSON form of a schedule configuration
type scheduleRequest struct {
	ReleaseDate     string                  `json:"release_date" binding:"required"`
	NextReleaseDate string                  `json:"next_release_date"`
	Platforms       []schedule.Platform     `json:"platforms" binding:"required,min=1"`
	TimeBudget      schedule.BudgetTier     `json:"time_budget"`
	PostingHistory  []schedule.HistoryEntry `json:"posting_history"`
}

func (r scheduleRequest) config() (schedule.Config, error) {
	release, err := parseDate(r.ReleaseDate)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("release_date: %w", err)
	}

	cfg := schedule.Config{
		ReleaseDate:    release,
		TimeBudget:     r.TimeBudget,
		PostingHistory: r.PostingHistory,
	}
	if r.NextReleaseDate != "" {
		next, err := parseDate(r.NextReleaseDate)
		if err != nil {
			return schedule.Config{}, fmt.Errorf("next_release_date: %w", err)
		}
		cfg.NextReleaseDate = &next
	}

	for _, name := range r.Platforms {
		p, err := schedule.ParsePlatform(string(name))
		if err != nil {
			return schedule.Config{}, err
		}
		cfg.Platforms = append(cfg.Platforms, p)
	}
	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("must be a YYYY-MM-DD date")
	}
	return d, nil
}

type ScheduleHandler struct {
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewScheduleHandler(m *metrics.Metrics, log logrus.FieldLogger) *ScheduleHandler {
	return &ScheduleHandler{
		metrics: m,
		log:     log,
	}
}

// Preview builds a posting schedule without storing anything
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	cfg, err := req.config()
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	sched, err := h.build(cfg)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, sched)
}

func (h *ScheduleHandler) build(cfg schedule.Config) (*schedule.Schedule, error) {
	sched, err := schedule.Build(cfg)
	if err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.ScheduleSlots.Observe(float64(sched.TotalSlots))
	}
	return sched, nil
}
