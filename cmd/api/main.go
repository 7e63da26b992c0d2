package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/config"
	"github.com/chmc/wbms-api/internal/convert"
	accountHandler "github.com/chmc/wbms-api/internal/handler/account"
	authHandler "github.com/chmc/wbms-api/internal/handler/auth"
	catalogHandler "github.com/chmc/wbms-api/internal/handler/catalog"
	examinationHandler "github.com/chmc/wbms-api/internal/handler/examination"
	"github.com/chmc/wbms-api/internal/handler/health"
	patientHandler "github.com/chmc/wbms-api/internal/handler/patient"
	promHandler "github.com/chmc/wbms-api/internal/handler/prometheus"
	reportHandler "github.com/chmc/wbms-api/internal/handler/report"
	verifyHandler "github.com/chmc/wbms-api/internal/handler/verify"
	"github.com/chmc/wbms-api/internal/middleware"
	"github.com/chmc/wbms-api/internal/repository/postgres"
	"github.com/chmc/wbms-api/internal/router"
	accountService "github.com/chmc/wbms-api/internal/service/account"
	authService "github.com/chmc/wbms-api/internal/service/auth"
	catalogService "github.com/chmc/wbms-api/internal/service/catalog"
	"github.com/chmc/wbms-api/internal/service/document"
	examinationService "github.com/chmc/wbms-api/internal/service/examination"
	patientService "github.com/chmc/wbms-api/internal/service/patient"
	reportService "github.com/chmc/wbms-api/internal/service/report"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/internal/telemetry"
	"github.com/chmc/wbms-api/pkg/auth"
	"github.com/chmc/wbms-api/pkg/logger"
	"github.com/chmc/wbms-api/pkg/metrics"
	"github.com/chmc/wbms-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise telemetry")
	}

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := postgres.NewStore(db, cfg.Documents.FileNumbering)
	repos := store.Repos()

	files, err := storage.NewFileStore(cfg.Documents.StorageRoot)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open media storage")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "wbms", "api")

	converter, err := convert.New(cfg.Converter, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create converter")
	}

	jwtSvc, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JWT service")
	}
	hasher := security.NewBcryptHasher(0)

	codes := document.NewCodes(cfg.Documents.CodePrefix, cfg.Secrets.Code())
	verifier := document.NewVerifier(repos, codes, files, converter, m)
	generator := document.NewGenerator(templateSource(cfg.Documents.TemplatePath), files, codes, m)

	accountSvc := accountService.NewService(repos.Accounts, files, hasher)
	authSvc := authService.NewService(repos.Accounts, jwtSvc, hasher)
	patientSvc := patientService.NewService(repos.Patients, files, cfg.Secrets.Patient())
	examSvc := examinationService.NewService(store, repos, files, generator, verifier, document.NewIntegrity(repos.Examinations, files))
	catalogSvc := catalogService.NewService(repos.ServiceTypes, repos.Appointments)
	reportSvc := reportService.NewService(repos.Reports, repos.Examinations)

	mode := gin.DebugMode
	if cfg.Environment == "production" {
		mode = gin.ReleaseMode
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(jwtSvc), router.Handlers{
		Auth:        authHandler.NewHandler(authSvc),
		Health:      health.NewHandler(map[string]health.Check{"database": store.Ping}),
		Account:     accountHandler.NewHandler(accountSvc),
		Patient:     patientHandler.NewHandler(patientSvc),
		Examination: examinationHandler.NewHandler(examSvc),
		Catalog:     catalogHandler.NewHandler(catalogSvc),
		Report:      reportHandler.NewHandler(reportSvc),
		Verify:      verifyHandler.NewHandler(verifier),
		Metrics:     promHandler.New(registry, "wbms"),
	}, router.RouterConfig{
		AllowOrigins: cfg.CORS.AllowOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		VerifyLimit:  middleware.NewRateLimiter(cfg.RateLimit.VerifyRPS, cfg.RateLimit.VerifyBurst, cfg.RateLimit.IdleTTL),
		Mode:         mode,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("file_numbering", cfg.Documents.FileNumbering).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited properly")
}

// templateSource reads the configured template and falls back to the
// built-in layout when the file is missing.
func templateSource(path string) document.TemplateSource {
	if _, err := os.Stat(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("examination template not found, using built-in template")
		return document.DefaultTemplateSource
	}
	return document.FileTemplate(path)
}
