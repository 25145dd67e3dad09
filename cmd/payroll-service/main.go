package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paycore/paycore-backend/internal/payroll/consumers"
	"github.com/paycore/paycore-backend/internal/payroll/events"
	"github.com/paycore/paycore-backend/internal/payroll/handler"
	"github.com/paycore/paycore-backend/internal/payroll/repository"
	"github.com/paycore/paycore-backend/internal/payroll/scheduler"
	"github.com/paycore/paycore-backend/internal/payroll/service"
	"github.com/paycore/paycore-backend/migrations"
	"github.com/paycore/paycore-backend/pkg/config"
	"github.com/paycore/paycore-backend/pkg/database"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const serviceName = "payroll-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Payroll Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log.WithComponent("rabbitmq"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()
	go rmq.Watch(ctx)

	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	// Initialize event publisher
	publisher, err := events.NewPayrollEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	attendanceRepo := repository.NewAttendanceRepository(db)
	ratePeriodRepo := repository.NewRatePeriodRepository(db)
	overtimeRepo := repository.NewOvertimeConfigRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)
	editRequestRepo := repository.NewEditRequestRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Initialize services
	loc := cfg.Payroll.Location()
	rateService := service.NewRateService(ratePeriodRepo, profileRepo, log.WithComponent("rates"))
	overtimeService := service.NewOvertimeService(overtimeRepo,
		decimal.NewFromFloat(cfg.Payroll.DefaultWeeklyThresholdHours),
		decimal.NewFromFloat(cfg.Payroll.DefaultOvertimeMultiplier),
		log.WithComponent("overtime"))
	earningsService := service.NewEarningsService(attendanceRepo, overrideRepo, ratePeriodRepo, profileRepo,
		overtimeService, log.WithComponent("earnings"))
	payrollService := service.NewPayrollService(payrollRepo, profileRepo, earningsService, db, publisher,
		log.WithComponent("payroll"))
	overrideService := service.NewOverrideService(overrideRepo, payrollService, publisher, log.WithComponent("overrides"))
	editRequestService := service.NewEditRequestService(editRequestRepo, payrollRepo, profileRepo, taskRepo, db,
		publisher, log.WithComponent("edit_requests"))
	attendanceService := service.NewAttendanceService(attendanceRepo, db, payrollService, publisher, loc,
		cfg.Payroll.AutoCheckoutAfter, log.WithComponent("attendance"))
	profileService := service.NewProfileService(profileRepo, log.WithComponent("profiles"))

	// Start consumers
	recalcConsumer, err := consumers.NewRecalculationConsumer(rmq, payrollService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create recalculation consumer")
	}
	if err := recalcConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start recalculation consumer")
	}

	profileConsumer, err := consumers.NewProfileEventConsumer(rmq, profileService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create profile event consumer")
	}
	if err := profileConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start profile event consumer")
	}

	// Schedule the stale check-in sweep
	sched := scheduler.New(attendanceService, loc, log.WithComponent("scheduler"))
	if err := sched.RegisterSweep(cfg.Payroll.SweepSchedule); err != nil {
		log.Fatal().Err(err).Msg("invalid sweep schedule")
	}
	sched.Start()

	// Optional idempotency store
	var idempotency func(http.Handler) http.Handler
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; idempotency keys are served best effort")
		}
		idempotency = httputil.Idempotency(rdb, cfg.Redis.IdempotencyTTL, log)
	}

	// Create router
	handlers := &handler.Handlers{
		Payroll:      handler.NewPayrollHandler(payrollService, log),
		Earnings:     handler.NewEarningsHandler(earningsService, log),
		Overrides:    handler.NewOverrideHandler(overrideService, log),
		Rates:        handler.NewRateHandler(rateService, overtimeService, log),
		EditRequests: handler.NewEditRequestHandler(editRequestService, log),
		Attendance:   handler.NewAttendanceHandler(attendanceService, log),
	}

	r := handler.NewRouter(handlers, handler.RouterOptions{
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Idempotency:    idempotency,
		Health: func(w http.ResponseWriter, r *http.Request) {
			httputil.JSON(w, http.StatusOK, map[string]interface{}{
				"status":   "healthy",
				"service":  serviceName,
				"database": db.Health(r.Context()),
				"rabbitmq": rmq.Health(),
			})
		},
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
