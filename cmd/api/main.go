package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aorysoft/leadbot/internal/api/router"
	"github.com/aorysoft/leadbot/internal/booking"
	"github.com/aorysoft/leadbot/internal/calendar"
	appconfig "github.com/aorysoft/leadbot/internal/config"
	"github.com/aorysoft/leadbot/internal/conversation"
	"github.com/aorysoft/leadbot/internal/intent"
	"github.com/aorysoft/leadbot/internal/ledger"
	"github.com/aorysoft/leadbot/internal/llm"
	"github.com/aorysoft/leadbot/internal/notify"
	"github.com/aorysoft/leadbot/internal/observability/metrics"
	"github.com/aorysoft/leadbot/internal/webchat"
	"github.com/aorysoft/leadbot/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Calendar
	seed := calendar.DefaultSeed()
	if cfg.CalendarSeedJSON != "" {
		parsed, err := calendar.ParseSeedJSON([]byte(cfg.CalendarSeedJSON))
		if err != nil {
			logger.Error("invalid CALENDAR_SEED_JSON", "error", err)
			os.Exit(1)
		}
		seed = parsed
	}
	store := calendar.NewStore(seed)

	// Ledger: Postgres when configured, CSV file otherwise.
	var led ledger.Appender
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := ledger.NewPostgresLedger(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure ledger schema", "error", err)
			os.Exit(1)
		}
		led = pg
		logger.Info("using postgres booking ledger")
	} else {
		led = ledger.NewCSVLedger(cfg.LedgerPath, logger)
		logger.Info("using csv booking ledger", "path", cfg.LedgerPath)
	}

	// LLM provider
	client, model, cleanup, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize llm client", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	chatMetrics := metrics.NewChatMetrics(nil)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
		logger.Info("booking confirmations via sendgrid", "from", cfg.SendGridFromEmail)
	} else {
		emailSender = notify.NewStubEmailSender(logger)
	}

	// Conversation history: Redis when configured, in-process otherwise.
	var history conversation.HistoryStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory history", "error", err)
			history = conversation.NewMemoryHistoryStore()
		} else {
			history = conversation.NewRedisHistoryStore(rdb, cfg.HistoryTTL)
			logger.Info("conversation history in redis", "addr", cfg.RedisAddr, "ttl", cfg.HistoryTTL)
		}
	} else {
		history = conversation.NewMemoryHistoryStore()
	}

	booker := booking.NewService(store, led, emailSender, chatMetrics, logger)
	resolver := intent.NewResolver(client, model, cfg.LLMTimeout, logger)
	convSvc := conversation.NewService(conversation.ServiceConfig{
		Resolver:    resolver,
		Calendar:    store,
		Booker:      booker,
		LLM:         client,
		History:     history,
		Metrics:     chatMetrics,
		Logger:      logger,
		Model:       model,
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	})

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(convSvc, logger),
		BookingHandler:      booking.NewHandler(booker, logger),
		CalendarHandler:     calendar.NewHandler(store, logger),
		WebchatHandler:      webchat.NewHandler(convSvc, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRatePerSecond:   cfg.ChatRatePerSecond,
		ChatBurst:           cfg.ChatBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildLLMClient wires the configured provider, wrapping it with the other
// one as a fallback when both are configured.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (llm.Client, string, func(), error) {
	noop := func() {}

	newGemini := func() (llm.Client, func(), error) {
		g, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	}
	newBedrock := func() (llm.Client, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg)), nil
	}

	switch cfg.LLMProvider {
	case "bedrock":
		primary, err := newBedrock()
		if err != nil {
			return nil, "", nil, err
		}
		if cfg.GeminiAPIKey != "" {
			secondary, geminiCleanup, gErr := newGemini()
			if gErr != nil {
				logger.Warn("gemini fallback unavailable", "error", gErr)
				return primary, cfg.BedrockModelID, noop, nil
			}
			return llm.NewFallbackClient(primary, secondary, logger), cfg.BedrockModelID, geminiCleanup, nil
		}
		return primary, cfg.BedrockModelID, noop, nil
	default:
		primary, geminiCleanup, err := newGemini()
		if err != nil {
			return nil, "", nil, err
		}
		if cfg.BedrockModelID != "" {
			secondary, bErr := newBedrock()
			if bErr != nil {
				logger.Warn("bedrock fallback unavailable", "error", bErr)
				return primary, cfg.GeminiModelID, geminiCleanup, nil
			}
			return llm.NewFallbackClient(primary, secondary, logger), cfg.GeminiModelID, geminiCleanup, nil
		}
		return primary, cfg.GeminiModelID, geminiCleanup, nil
	}
}
