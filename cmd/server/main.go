package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"coinsage/internal/capabilities"
	"coinsage/internal/config"
	chatModels "coinsage/internal/domain/models/chat"
	"coinsage/internal/domain/repositories"
	chatSvc "coinsage/internal/domain/services/chat"
	"coinsage/internal/handler"
	"coinsage/internal/middleware"
	"coinsage/internal/repository/postgres"
	"coinsage/internal/service/chat"
	"coinsage/internal/service/chat/functions"
	anthropicProvider "coinsage/internal/service/chat/providers/anthropic"
	openaiProvider "coinsage/internal/service/chat/providers/openai"
	"coinsage/internal/service/chat/ratelimit"
	"coinsage/internal/service/market"
	"coinsage/internal/service/retrieval"
)

const defaultSystemPrompt = `You are a helpful cryptocurrency analysis assistant. ` +
	`You answer questions about coins, market metrics, and blockchain concepts. ` +
	`Use the provided context and live market functions when they help, and say ` +
	`so plainly when you do not know something.`

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	var logWriter io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logWriter = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"provider", cfg.Provider,
	)

	backend, model, err := setupBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to setup backend: %v", err)
	}

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	policy := buildPolicy(cfg)
	policy = capabilityRegistry.TunePolicy(cfg.Provider, model, policy)
	if err := policy.Validate(); err != nil {
		log.Fatalf("Invalid budget policy: %v", err)
	}
	logger.Info("budget policy resolved",
		"max_history_messages", policy.MaxHistoryMessages,
		"max_prompt_chars", policy.MaxPromptChars,
		"response_max_tokens", policy.ResponseMaxTokens,
		"rpm_limit", policy.RPMLimit,
		"tpm_limit", policy.TPMLimit,
	)

	registry, err := functions.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize function registry: %v", err)
	}
	if cfg.MarketAPIKey != "" {
		marketClient := market.NewClient(cfg.MarketAPIBaseURL, cfg.MarketAPIKey)
		functions.RegisterMarketFunctions(registry, marketClient)
		logger.Info("market functions registered", "functions", registry.Names())
	} else {
		logger.Warn("LUNARCRUSH_API_KEY not set, market functions disabled")
	}

	// Optional Postgres persistence; the assistant runs purely in memory
	// without it.
	var repo repositories.ConversationRepository
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		repo = postgres.NewConversationRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Logger: logger,
		})
		logger.Info("database connected")
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	assistant := chat.NewAssistant(chat.AssistantConfig{
		Invoker:          chat.NewInvoker(backend, ratelimit.New(policy), nil, logger),
		Functions:        registry,
		Store:            retrieval.NewMemoryStore(),
		Repo:             repo,
		Policy:           policy,
		SystemPrompt:     systemPrompt,
		Temperature:      0.7,
		TranslateQueries: cfg.TranslateQueries,
		Logger:           logger,
	})

	apiHandler := handler.New(assistant, logger)

	var httpHandler http.Handler = apiHandler.Routes()
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// setupBackend builds the configured model backend.
func setupBackend(cfg *config.Config) (chatSvc.Backend, string, error) {
	switch cfg.Provider {
	case "openai":
		backend, err := openaiProvider.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		return backend, cfg.OpenAIModel, err
	case "anthropic":
		backend, err := anthropicProvider.NewProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		return backend, cfg.AnthropicModel, err
	default:
		return nil, "", fmt.Errorf("unknown provider '%s' (expected openai or anthropic)", cfg.Provider)
	}
}

// buildPolicy applies configuration overrides on top of the defaults.
func buildPolicy(cfg *config.Config) chatModels.BudgetPolicy {
	policy := chatModels.DefaultBudgetPolicy()
	policy.MaxHistoryMessages = cfg.MaxHistoryMessages
	policy.MaxPromptChars = cfg.MaxPromptChars
	policy.RAGContextMaxChars = cfg.RAGContextMaxChars
	policy.ResponseMaxTokens = cfg.ResponseMaxTokens
	policy.RetryMaxAttempts = cfg.RetryMaxAttempts
	policy.RetryBaseDelay = cfg.RetryBaseDelay
	policy.RPMLimit = cfg.RPMLimit
	policy.TPMLimit = cfg.TPMLimit
	policy.SummaryMaxChars = cfg.SummaryMaxChars
	return policy
}
