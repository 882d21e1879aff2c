package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wikisoft/rosterval/internal/casestore"
	"github.com/wikisoft/rosterval/internal/config"
	"github.com/wikisoft/rosterval/internal/events"
	"github.com/wikisoft/rosterval/internal/httpapi"
	"github.com/wikisoft/rosterval/internal/knowledge"
	"github.com/wikisoft/rosterval/internal/llm"
	"github.com/wikisoft/rosterval/internal/logging"
	"github.com/wikisoft/rosterval/internal/matcher"
	"github.com/wikisoft/rosterval/internal/progress"
	"github.com/wikisoft/rosterval/internal/registry"
	"github.com/wikisoft/rosterval/internal/schema"
	"github.com/wikisoft/rosterval/internal/storage"

	"github.com/wikisoft/rosterval/internal/agent"
)

func main() {
	var (
		port       = flag.String("port", "", "Server port (overrides config)")
		skipAI     = flag.Bool("skip-ai", false, "Disable the Layer-AI validator (header matching still uses the LLM when configured)")
		webhookURL = flag.String("webhook-url", "", "Outbound CloudEvents webhook URL (overrides config)")
	)
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if *webhookURL != "" {
		cfg.WebhookURL = *webhookURL
	}

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", "1.0.0").Str("port", cfg.Port).Bool("llm_enabled", cfg.LLMEnabled).Msg("starting rosterval validation service")

	reg := schema.Default()
	cases := casestore.New()
	kb := knowledge.New()

	var client *llm.Client
	if cfg.LLMEnabled && cfg.OpenAIAPIKey != "" {
		client = llm.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Retry.Policy())
	} else {
		log.Warn().Msg("llm client disabled: falling back to lexical matching and skipping layer-ai validation")
	}

	if cfg.DatabaseDSN != "" {
		store := storage.Open(cfg.DatabaseDSN)
		ctx := context.Background()
		if err := store.InitSchema(ctx); err != nil {
			log.Error().Err(err).Msg("failed to initialize persistence schema")
			os.Exit(1)
		}
		log.Info().Str("dsn", maskDSN(cfg.DatabaseDSN)).Msg("optional postgres persistence initialized")
		warmStart(ctx, store, cases, kb)
		defer store.Close()
	} else {
		log.Info().Msg("no DATABASE_DSN configured, running with in-memory case store and knowledge base only")
	}

	m := matcher.New(cases, client, reg)

	toolRegistry, err := registry.New(registry.Deps{
		Schema:  reg,
		Cases:   cases,
		Matcher: m,
		Client:  client,
		KB:      kb,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to construct tool registry")
		os.Exit(1)
	}

	hub := progress.NewHub()
	go hub.Run()

	a := agent.New(toolRegistry, hub)

	var auth progress.Authenticator
	if cfg.JWTSecret != "" {
		auth = progress.NewJWTAuth(cfg.JWTSecret)
	} else {
		log.Warn().Msg("no JWT_SECRET configured: accepting unauthenticated connections")
		auth = progress.NoAuth{}
	}

	dispatcher := events.NewDispatcher(
		events.NewBuilder(events.Extensions{Source: "rosterval", Version: "1.0.0", Environment: getEnv("ENVIRONMENT", "development")}),
		cfg.WebhookURL,
		10*time.Second,
	)

	srv := httpapi.NewServer(a, dispatcher, auth, progress.NewHandler(hub, auth), httpapi.Config{
		MaxIterations:              cfg.Agent.MaxIterations,
		SkipAI:                     *skipAI || !cfg.LLMEnabled,
		RowCap:                     cfg.Parser.MaxRows,
		Layer2Tolerance:            cfg.Layer2.TolerancePercent,
		RequireAuth:                cfg.RequireAuth,
		MatchRetryThreshold:        cfg.Confidence.MatchRetry,
		MatchHumanThreshold:        cfg.Confidence.MatchHuman,
		EarlyTerminationConfidence: cfg.Confidence.EarlyTerminate,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	}()

	log.Info().
		Str("validate", "POST /validate").
		Str("diagnostic_questions", "GET /diagnostic-questions").
		Str("webhook_register", "POST /webhook/generic").
		Str("progress_stream", "GET /validate/stream/{session_id}").
		Str("health", "GET /health").
		Msg("available endpoints")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited gracefully")
}

// warmStart loads any persisted cases and rules into the in-memory
// stores that actually serve requests. Persisted learned exceptions are
// not loaded.
func warmStart(ctx context.Context, store *storage.Store, cases *casestore.Store, kb *knowledge.Base) {
	persistedCases, err := store.LoadCases(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load persisted cases")
	} else {
		for _, rec := range persistedCases {
			cases.Save(rec.Headers, rec.Matches, rec.Confidence, rec.WasAutoApproved, rec.HumanCorrections, rec.Metadata)
		}
		log.Info().Int("count", len(persistedCases)).Msg("warm-started case store")
	}

	rules, err := store.LoadRules(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load persisted knowledge base rules")
	} else {
		for _, r := range rules {
			kb.AddRule(r.Field, r.Condition, r.Message, r.Severity, r.Category)
		}
		log.Info().Int("count", len(rules)).Msg("warm-started knowledge base rules")
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// maskDSN redacts the password segment of a postgres DSN before logging.
func maskDSN(dsn string) string {
	if len(dsn) == 0 {
		return ""
	}
	start, end := -1, -1
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' && start == -1 {
			if i+1 < len(dsn) && dsn[i+1] != '/' {
				start = i + 1
			}
		}
		if dsn[i] == '@' && start != -1 {
			end = i
			break
		}
	}
	if start != -1 && end != -1 && end > start {
		return dsn[:start] + "***" + dsn[end:]
	}
	return dsn
}
