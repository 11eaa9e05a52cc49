package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/standuphq/standup-engine/internal/aggregator"
	"github.com/standuphq/standup-engine/internal/api"
	"github.com/standuphq/standup-engine/internal/auth"
	"github.com/standuphq/standup-engine/internal/config"
	"github.com/standuphq/standup-engine/internal/generator"
	"github.com/standuphq/standup-engine/internal/health"
	"github.com/standuphq/standup-engine/internal/llm"
	"github.com/standuphq/standup-engine/internal/platform/factory"
	"github.com/standuphq/standup-engine/internal/platform/logger"
	"github.com/standuphq/standup-engine/internal/provider/github"
	"github.com/standuphq/standup-engine/internal/services"
	"github.com/standuphq/standup-engine/internal/vault"
)

func main() {
	mode := flag.String("mode", "", "Override STANDUP_MODE (development, production)")
	flag.Parse()

	log := logger.New("standup-service")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
		if err := cfg.ResolveDefaults(); err != nil {
			log.Fatal().Err(err).Msg("Invalid mode override")
		}
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Standup service starting")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// -------- Storage --------
	st, err := factory.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Store unavailable")
	}

	// -------- Credential vault --------
	v, err := vault.NewFromHex(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid encryption key")
	}

	// -------- Health monitor --------
	storeChecker := health.NewChecker("store", st, log, 2*time.Second)
	go storeChecker.Start(ctx, 30*time.Second)

	// -------- Generation stack --------
	var llmClient llm.Client
	if cfg.LLMConfigured() {
		llmClient = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	} else {
		log.Warn().Msg("no LLM configured; reports will use the deterministic template")
	}
	pipeline := generator.New(llmClient, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMUnitCost, log)

	// -------- Services --------
	ghFactory := github.Factory(cfg.GitHubBaseURL, cfg.FetchTimeout)
	agg := aggregator.New(log, cfg.FetchMaxConcurrent, cfg.FetchTimeout)
	standups := services.NewStandupService(st, v, ghFactory, agg, pipeline, log)
	integrations := services.NewIntegrationService(st, v, ghFactory, log)
	authorizer := auth.New(cfg.Mode, cfg.APIKey)

	// -------- Router & server --------
	router := api.NewRouter(standups, integrations, authorizer, storeChecker.IsHealthy)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
