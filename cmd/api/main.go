package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	appHTTP "github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	ingestService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/ingest"
	pointService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/point"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg := database.DefaultPoolConfig()
	poolCfg.MaxConns = cfg.Database.MaxConns
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), poolCfg)
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgresql.Migrate(ctx, db); err != nil {
		slog.Error("Error applying schema", "error", err)
		os.Exit(1)
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		slog.Error("Error initializing storage", "error", err)
		os.Exit(1)
	}

	loc := cfg.Location()
	txManager := postgresql.NewTxManager(db)
	authorizer := auth.PermissionListAuthorizer{}

	employeeRepo := postgresql.NewEmployeeRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db, loc)
	punchRepo := postgresql.NewPunchRepository(db)
	uploadRepo := postgresql.NewUploadRepository(db, loc)
	attendanceRepo := postgresql.NewAttendanceRepository(db, loc)
	pointRepo := postgresql.NewPointRepository(db, loc)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	scheduler := cron.NewScheduler()

	reconcilePolicy := attendanceService.Policy{
		DuplicateWindow:    cfg.Reconcile.DuplicateWindow,
		MaxOvertimeMinutes: cfg.Reconcile.MaxOvertimeMinutes,
	}
	pointPolicy := cfg.PointPolicy()

	pointEngine := pointService.NewEngine(pointRepo, pointPolicy)
	pointSvc := pointService.NewPointService(txManager, pointRepo, authorizer, pointPolicy, loc)
	coordinator := attendanceService.NewCoordinator(
		txManager,
		attendanceRepo,
		punchRepo,
		scheduleRepo,
		pointEngine,
		authorizer,
		attendanceService.CoordinatorConfig{
			Workers:  cfg.Reconcile.Workers,
			Policy:   reconcilePolicy,
			Location: loc,
		},
	)
	attendanceSvc := attendanceService.NewAttendanceService(
		txManager,
		attendanceRepo,
		scheduleRepo,
		pointEngine,
		authorizer,
		reconcilePolicy,
	)
	ingestSvc := ingestService.NewIngestService(
		txManager,
		punchRepo,
		employeeRepo,
		scheduleRepo,
		coordinator,
		loc,
	)
	uploadSvc := ingestService.NewUploadService(
		uploadRepo,
		fileStorage,
		ingestSvc,
		authorizer,
		scheduler.TriggerFunc(cron.JobIngestUploads),
		ingestService.UploadConfig{
			MaxSize:   cfg.Storage.MaxUploadSize,
			BatchSize: cfg.Reconcile.BatchSize,
			Lease:     cfg.Reconcile.ProcessingLease,
			Location:  loc,
		},
	)

	attendanceJobs := cron.NewAttendanceJobs(uploadSvc, coordinator, cron.AttendanceJobsConfig{
		IngestInterval: cfg.Reconcile.JobInterval,
		Location:       loc,
		CloseHour:      cfg.Reconcile.CloseHour,
		CloseDays:      cfg.Reconcile.CloseDays,
	})
	attendanceJobs.RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         logger,
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		appHTTP.NewUploadHandler(uploadSvc, cfg.Storage.MaxUploadSize),
		appHTTP.NewAttendanceHandler(attendanceSvc, coordinator),
		appHTTP.NewPointHandler(pointSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.App.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance-engine"),
		slog.String("env", cfg.App.Env),
	)
}
