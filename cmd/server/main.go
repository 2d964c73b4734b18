package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"coworkspace/internal/api"
	"coworkspace/internal/auth"
	"coworkspace/internal/availability"
	"coworkspace/internal/calendar"
	"coworkspace/internal/config"
	"coworkspace/internal/logging"
	"coworkspace/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile       string
		addr          string
		migrate       bool
		issueToken    string
		adminTokenTTL time.Duration
	)
	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	flagSet.BoolVar(&migrate, "migrate", false, "create database tables and indexes before serving")
	flagSet.StringVar(&issueToken, "issue-admin-token", "", "print an admin bearer token for this subject and exit")
	flagSet.DurationVar(&adminTokenTTL, "admin-token-ttl", 12*time.Hour, "lifetime of tokens printed by --issue-admin-token")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	verifier := auth.NewVerifier([]byte(cfg.AdminJWTSecret), nil)
	if issueToken != "" {
		token, err := verifier.Issue(issueToken, adminTokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openStores(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	var (
		adapter    calendar.Adapter
		authorizer api.CalendarAuthorizer
	)
	if cfg.GoogleConfigured() {
		a := calendar.NewAuthorizer(
			calendar.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
			deps.credentials,
			logger,
		)
		authorizer = a
		adapter = calendar.NewGoogleCalendar(a, cfg.GoogleCalendarID, cfg.Location)
	} else {
		logger.Warn("Google OAuth client not configured; availability ignores the external calendar")
	}

	messenger := service.NewMessenger(
		service.SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.SendGridFromEmail, FromName: cfg.SendGridFromName},
		service.TwilioConfig{AccountSID: cfg.TwilioAccountSID, AuthToken: cfg.TwilioAuthToken, FromNumber: cfg.TwilioFromNumber},
		logger,
	)
	sender := service.NewSenderService(messenger, cfg.Location, logger)
	defer sender.Wait()

	meetings := service.NewMeetingService(
		availability.NewEngine(cfg.Policy()),
		deps.meetings,
		adapter,
		sender,
		service.MeetingServiceConfig{
			GracePeriod:     cfg.GracePeriod,
			CalendarTimeout: cfg.CalendarTimeout,
			DefaultDays:     cfg.DefaultDays,
			MaxDays:         cfg.MaxDays,
		},
		logger,
	)
	admin := service.NewAdminService(deps.meetings, adapter, cfg.Location, cfg.CalendarTimeout, logger)

	if deps.purger != nil {
		scheduler := cron.New(cron.WithLocation(cfg.Location))
		job := service.NewJobService(deps.purger, logger)
		if _, err := job.Schedule(scheduler, cfg.PurgeSchedule); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		logger.Info("Cron Job: purge scheduled", "schedule", cfg.PurgeSchedule)
	}

	router := api.NewRouter(api.Handlers{
		User:     api.NewUserMeetingHandler(meetings, logger),
		Admin:    api.NewAdminHandler(admin, logger),
		Calendar: api.NewCalendarHandler(authorizer, calendar.NewStateSigner([]byte(cfg.AdminJWTSecret), nil), logger),
		Store:    deps.pinger,
		Logger:   logger,
	}, auth.AdminAuthMiddleware(verifier))

	if addr == "" {
		addr = ":" + cfg.Port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware(router, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("Server running", "addr", addr, "meeting_store", cfg.MeetingStore, "credential_store", cfg.CredentialStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// middleware wraps the router with CORS, access logging and panic recovery.
func middleware(router http.Handler, cfg *config.Config, logger *slog.Logger) http.Handler {
	var h http.Handler = router
	if len(cfg.CORSAllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORSAllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		)(h)
	}
	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)(h)
}
