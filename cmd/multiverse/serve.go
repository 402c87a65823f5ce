package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/config"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/database"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/handlers"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/logging"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/metrics"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/middleware"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/notify"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/services"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(cfg.GinMode)
	log := logging.New(cfg.GinMode)

	if err := logging.InitSentry(cfg.SentryDSN, cfg.GinMode); err != nil {
		log.WithError(err).Warn("error reporting disabled")
	}
	defer logging.Flush()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	m := metrics.New()

	hub, broadcaster, err := liveDelivery(ctx, cfg, log)
	if err != nil {
		return err
	}

	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	notifications := services.NewNotificationService(repository.NewNotificationRepository(db), broadcaster, m, log)
	tasks := services.NewTaskService(taskRepo, teamRepo, notifications, m, log)
	teams := services.NewTeamService(teamRepo, repository.NewInvitationRepository(db), notifications, newMailer(cfg), cfg.AppBaseURL, log)
	orchestrator := services.NewOrchestrator(tasks, teamRepo, log,
		services.WithWriteTimeout(cfg.WriteTimeout),
		services.WithOrchestratorMetrics(m),
	)

	var suggester services.BrainstormSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewBrainstormService(cfg.OpenAIAPIKey)
	}

	reminders := worker.NewReminderWorker(taskRepo, notifications, m, log, cfg.ReminderCron)
	if err := reminders.Start(); err != nil {
		return err
	}
	defer reminders.Stop()

	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisAddr(),
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(sessions.Sessions("multiverse_session", store))

	handlers.RegisterRoutes(r, handlers.Dependencies{
		Teams:         teams,
		Tasks:         tasks,
		Notifications: notifications,
		Orchestrator:  orchestrator,
		Suggester:     suggester,
		Hub:           hub,
		Metrics:       m,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ServerAddr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// liveDelivery builds the websocket hub and the broadcaster notifications
// are published on. In redis mode every instance forwards the shared
// channel into its own hub.
func liveDelivery(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*notify.Hub, notify.Broadcaster, error) {
	switch cfg.LiveDelivery {
	case config.LiveDeliveryHub:
		hub := notify.NewHub(log)
		return hub, hub, nil

	case config.LiveDeliveryRedis:
		hub := notify.NewHub(log)
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}

		broadcaster := notify.NewRedisBroadcaster(client, notify.DefaultChannel, log)
		go func() {
			defer client.Close()
			if err := broadcaster.Forward(ctx, hub); err != nil {
				log.WithError(err).Error("live notification relay stopped")
			}
		}()
		return hub, broadcaster, nil

	case config.LiveDeliveryNone:
		return nil, notify.Noop{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown live delivery mode %q", cfg.LiveDelivery)
	}
}

func newMailer(cfg *config.Config) utils.Mailer {
	smtp := utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	if !smtp.Enabled() {
		return nil
	}
	return utils.NewSMTPMailer(smtp)
}
