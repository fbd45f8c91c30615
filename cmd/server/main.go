package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/calmsteps-backend/internal/config"
	"github.com/AnshRaj112/calmsteps-backend/internal/database"
	"github.com/AnshRaj112/calmsteps-backend/internal/handlers"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/middleware"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
	"github.com/AnshRaj112/calmsteps-backend/internal/routes"
	"github.com/AnshRaj112/calmsteps-backend/internal/services"
	"github.com/AnshRaj112/calmsteps-backend/pkg/utils"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.New(mode, logger.Options{
		DisableRedaction: !cfg.LogRedaction,
		HashSalt:         cfg.LogHashSalt,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Info("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cipher, err := utils.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("invalid ENCRYPTION_KEY", "error", err, "hint", "generate with: openssl rand -base64 32")
	}
	if !cipher.Enabled() {
		log.Warn("ENCRYPTION_KEY not set, journal text will be stored unencrypted")
	}

	log.Info("connecting to PostgreSQL", "uri", database.MaskURI(cfg.PostgresURI))
	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", "error", err)
	}
	defer pg.Close()
	if err := database.InitPostgresTables(ctx, pg); err != nil {
		log.Fatal("failed to initialise PostgreSQL schema", "error", err)
	}

	log.Info("connecting to Redis", "uri", database.MaskURI(cfg.RedisURI))
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		log.Fatal("failed to connect to Redis", "error", err)
	}
	defer rdb.Close()

	// MongoDB only backs journaling; the programme keeps working without it.
	var journal *services.JournalService
	log.Info("connecting to MongoDB", "uri", database.MaskURI(cfg.MongoURI))
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Error("failed to connect to MongoDB, journaling disabled", "error", err)
	} else {
		defer mongoClient.Disconnect(context.Background())
		journals := repository.NewJournalRepository(mongoDB)
		if err := journals.EnsureIndexes(ctx); err != nil {
			log.Warn("failed to ensure MongoDB journal indexes", "error", err)
		}
		journal = services.NewJournalService(journals, cipher, log)
	}

	users := repository.NewUserRepository(pg)
	hub := services.NewProgressHub(rdb, log)
	hub.Start(ctx)

	auth := services.NewAuthService(users, services.NewSessionStore(rdb), log)
	modules := services.NewModuleService(repository.NewModuleRepository(pg), hub, log)
	assessments := services.NewAssessmentService(repository.NewAssessmentRepository(pg), log)
	billing := services.NewBillingService(repository.NewBillingRepository(pg), users, services.NewEventLedger(rdb), cfg.StripeWebhookSecret, log)
	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, billing webhooks will be rejected")
	}

	deps := handlers.Deps{
		Auth:           auth,
		Modules:        modules,
		Dashboard:      services.NewDashboardService(modules, assessments, journal, log),
		Assessments:    assessments,
		Guides:         services.NewGuideService(repository.NewGuideRepository(pg), hub, log),
		Billing:        billing,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
		HealthChecks: map[string]handlers.HealthCheck{
			"postgres": pg.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		AutosaveDebounce: cfg.AutosaveDebounce,
		Log:              log,
	}
	if journal != nil {
		deps.Journal = journal
		deps.HealthChecks["mongodb"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}
	h := handlers.New(deps)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, cfg.TrustProxy) {
			r.Use(mw)
		}
		log.Info("production security enabled", "allowed_host", cfg.AllowedHost, "trust_proxy", cfg.TrustProxy)
	} else {
		r.Use(middleware.SecurityHeaders)
	}

	routes.SetupRoutes(r, h, routes.Options{
		Auth:       middleware.RequireAuth(auth),
		WriteLimit: middleware.WriteRateLimit(rdb, middleware.WriteLimitMax, middleware.WriteLimitWindow, cfg.TrustProxy, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("calmsteps backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
