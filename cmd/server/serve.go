package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interview/internal/api"
	"interview/internal/auth"
	"interview/internal/cache"
	"interview/internal/feedback"
	"interview/internal/interviewer"
	"interview/internal/jobs"
	"interview/internal/llm"
	_ "interview/internal/llm/gemini"
	_ "interview/internal/llm/openai"
	"interview/internal/prompts"
	"interview/internal/repositories"
	"interview/internal/routers"
	"interview/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview session server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting the interview service",
		zap.String("provider", cfg.AI.Provider),
		zap.String("addr", cfg.Server.Addr))

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	store := cache.NewRedisStore(rdb, cfg.Redis.SessionTTL)

	pingCtx, cancel := context.WithTimeout(parent, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		// readiness reports it; turns fail with store_unavailable until redis is back
		log.Warn("redis is not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	cancel()

	provider, err := llm.NewProvider(cfg.AI.Provider, cfg.AI.Settings())
	if err != nil {
		return fmt.Errorf("initialize AI provider: %w", err)
	}
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		return fmt.Errorf("initialize prompt manager: %w", err)
	}
	interviews := interviewer.NewService(provider, promptManager, log)

	engine := session.NewEngine(session.Deps{
		Cache:       store,
		Configs:     &repositories.InterviewRepository{DB: db},
		Results:     &repositories.ResultRepository{DB: db},
		Interviewer: interviews,
		Feedback:    feedback.NewGenerator(interviews, log),
		Publisher:   store,
		Log:         log,
	}, session.Options{
		AITimeout:         cfg.AI.Timeout,
		CompletionChannel: cfg.Session.CompletionChannel,
	})

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.CookieName, &repositories.CandidateRepository{DB: db}, log)
	health := api.NewHealthHandler(cfg.AI.Provider, map[string]api.Pinger{
		"redis":    store,
		"database": api.PingFunc(sqlDB.PingContext),
	})
	router := routers.New(
		api.NewInterviewHandler(engine, verifier, cfg.Server.AllowedOrigins, log),
		health,
		routers.Options{AllowedOrigins: cfg.Server.AllowedOrigins, WSPath: cfg.Server.WSPath},
	)

	housekeeping := jobs.NewHousekeepingJob(engine, engine.Hub(), &jobs.HousekeepingConfig{
		Schedule:        cfg.Jobs.HousekeepingSchedule,
		ClosedRetention: cfg.Session.ClosedRetention,
	}, log)
	if err := housekeeping.Start(); err != nil {
		return err
	}
	defer housekeeping.Stop()

	// no write timeout: websocket connections are long lived
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("interview service listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("interview service shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", zap.Error(err))
	}
	// queued turns and finalizes still hold cache and store writes
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Error("pending interview events did not drain", zap.Error(err))
	}
	log.Info("interview service exited")
	return nil
}
