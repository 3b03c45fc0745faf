package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "whitelist-bot/internal/api/http"
	"whitelist-bot/internal/config"
	"whitelist-bot/internal/i18n"
	"whitelist-bot/internal/jobs"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/platform/discord"
	"whitelist-bot/internal/repository"
	"whitelist-bot/internal/repository/file"
	"whitelist-bot/internal/repository/postgres"
	"whitelist-bot/internal/scheduler"
	"whitelist-bot/internal/security"
	"whitelist-bot/internal/service"
	"whitelist-bot/internal/workflow"

	"github.com/bwmarrin/discordgo"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting whitelist bot...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Platform configuration", "type", cfg.Platform.Type, "call_timeout", cfg.CallTimeout(), "retries", cfg.Platform.Retries)

	if err := i18n.Validate(); err != nil {
		log.Fatalf("Invalid message catalogs: %v", err)
	}

	// Initialize config store
	configs, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open config store", "error", err)
		log.Fatalf("Failed to open config store: %v", err)
	}
	defer closeStore()

	// Initialize platform
	var (
		p       platform.Platform
		session *discordgo.Session
	)
	switch cfg.Platform.Type {
	case "discord":
		session, err = discordgo.New("Bot " + cfg.Discord.Token)
		if err != nil {
			log.Fatalf("Failed to create discord session: %v", err)
		}
		p = discord.NewClient(session)
	case "memory":
		logger.Warn("Using in-memory platform, no gateway will be opened")
		p = platform.NewMemory()
	}

	// Initialize workflow
	drafts := workflow.NewCaseStore()
	cases := workflow.NewRegistry()
	executor := workflow.NewExecutor(p, workflow.ExecutorOptions{
		CallTimeout: cfg.CallTimeout(),
		Retries:     uint(cfg.Platform.Retries),
	})
	engine := workflow.NewEngine(configs, executor, drafts, cases)

	// Initialize services
	tenantSvc := service.NewTenantService(configs, p, executor)
	onboardingSvc := service.NewOnboardingService(engine, executor, tenantSvc)

	// Scheduled jobs
	sched, err := scheduler.NewScheduler(jobs.NewJobRunner(drafts, cases, cfg))
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// HTTP ingress
	var srv *http.Server
	if cfg.HTTP.Enabled {
		auth := httpapi.NewAuthMiddleware(security.NewTokenManager(cfg.Ingress.Secret))
		srv = &http.Server{
			Addr:              cfg.GetHTTPAddress(),
			Handler:           httpapi.NewRouter(httpapi.NewHandler(onboardingSvc, tenantSvc, p), auth),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP ingress listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	// Discord gateway
	var gateway *discord.Gateway
	if session != nil {
		gateway = discord.NewGateway(session, cfg.Discord.AppID, onboardingSvc, tenantSvc)
		if err := gateway.Open(); err != nil {
			logger.Error("Failed to open discord gateway", "error", err)
			log.Fatalf("Failed to open discord gateway: %v", err)
		}
		logger.Info("Discord gateway connected")
	}

	// Wait for shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("Shutting down", "signal", sig.String())

	if gateway != nil {
		if err := gateway.Close(); err != nil {
			logger.Error("Failed to close discord gateway", "error", err)
		}
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}
}

func openStore(cfg *config.Config) (repository.TenantConfigRepository, func(), error) {
	switch cfg.Store.Type {
	case "postgres":
		logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := postgres.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database connection established")
		return store, func() { db.Close() }, nil
	default:
		logger.Info("Using file config store", "dir", cfg.Store.Dir)
		repo, err := file.NewTenantConfigRepository(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
