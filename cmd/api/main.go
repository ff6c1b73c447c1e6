package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/inmobilia/inmobilia-ai-platform/cmd/mainconfig"
	"github.com/inmobilia/inmobilia-ai-platform/internal/api/router"
	"github.com/inmobilia/inmobilia-ai-platform/internal/catalog"
	appconfig "github.com/inmobilia/inmobilia-ai-platform/internal/config"
	"github.com/inmobilia/inmobilia-ai-platform/internal/conversation"
	"github.com/inmobilia/inmobilia-ai-platform/internal/leads"
	"github.com/inmobilia/inmobilia-ai-platform/internal/observability/metrics"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting inmobilia-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Conversation state lives in Redis; it is required.
	redisClient := connectRedis(cfg)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	stateStore := conversation.NewStateStore(redisClient, cfg.SessionTTL, nil)

	// Postgres is optional: without it the catalog serves fallback listings
	// and lead records are not archived.
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	var catalogRepo catalog.Repository
	if db := connectCatalogDB(cfg.DatabaseURL, logger); db != nil {
		catalogRepo = catalog.NewSQLRepository(db)
	}

	metricsHandler, convMetrics := setupMetrics()
	events := conversation.NewEventLogger(logger)

	llmClient := buildLLMClient(awsCfg, cfg, logger)
	var classifier *conversation.Classifier
	if llmClient != nil && cfg.BedrockGuardrailModelID != "" {
		classifier = conversation.NewClassifier(llmClient, conversation.ClassifierConfig{
			Model:   cfg.BedrockGuardrailModelID,
			Timeout: 10 * time.Second,
		})
	} else {
		logger.Warn("guardrail classifier disabled, gates run on patterns only")
	}

	crm := leads.NewInMemoryCRM()
	gates := conversation.NewGateSet(classifier, convMetrics, events, logger, conversation.GateLimits{
		Relevance: cfg.GuardrailMaxInputRelevance,
		Security:  cfg.GuardrailMaxInputSecurity,
		Consent:   cfg.GuardrailMaxInput,
		PII:       cfg.GuardrailMaxInput,
	})

	capture := conversation.NewCaptureAgent(crm, nil, cfg.DefaultProjectID, convMetrics, events, logger)
	leadsHandler := leads.NewHandler(crm, nil, logger, cfg.DefaultProjectID)
	if pool != nil {
		archive := leads.NewArchive(pool)
		capture = conversation.NewCaptureAgent(crm, archive, cfg.DefaultProjectID, convMetrics, events, logger)
		leadsHandler = leads.NewHandler(crm, archive, logger, cfg.DefaultProjectID)
	}

	engine := conversation.NewEngine(conversation.EngineConfig{
		Store:      stateStore,
		Relevance:  gates.Relevance,
		Security:   gates.Security,
		Consent:    gates.Consent,
		PII:        gates.PII,
		Supervisor: conversation.NewSupervisor(llmClient, conversation.SupervisorConfig{Model: cfg.BedrockModelID, Timeout: 10 * time.Second}, logger),
		Search:     conversation.NewSearchAgent(catalogRepo, cfg.CatalogResultLimit, convMetrics, events, logger),
		Capture:    capture,
		Metrics:    convMetrics,
		Events:     events,
		Logger:     logger,
	})

	dispatcher := buildDispatcher(engine, awsCfg, cfg, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(dispatcher, stateStore, logger),
		LeadsHandler:        leadsHandler,
		MetricsHandler:      metricsHandler,
		RateLimitPerSecond:  5,
		RateLimitBurst:      10,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
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

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupMetrics registers the conversation metrics on a private registry and
// returns the scrape handler for it.
func setupMetrics() (http.Handler, *metrics.ConversationMetrics) {
	registry := prometheus.NewRegistry()
	m := metrics.NewConversationMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), m
}

func connectRedis(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// connectPostgresPool opens a pgx pool for the lead archive, or nil when no
// database is configured.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres unreachable, lead archive disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// connectCatalogDB opens the database/sql handle the catalog queries run on,
// or nil when no database is configured.
func connectCatalogDB(databaseURL string, logger *logging.Logger) *sql.DB {
	if databaseURL == "" {
		return nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Error("failed to open catalog db", "error", err)
		return nil
	}
	return db
}

// buildLLMClient wires the Bedrock Converse client, with an optional
// fallback model for when the primary is throttled or unavailable.
func buildLLMClient(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) conversation.LLMClient {
	if cfg.BedrockModelID == "" {
		logger.Warn("no bedrock model configured, llm routing and classification disabled")
		return nil
	}
	api := bedrockruntime.NewFromConfig(awsCfg)
	primary := conversation.NewBedrockLLMClient(api)
	if cfg.BedrockFallbackModelID == "" {
		return primary
	}
	fallback := fixedModelClient{
		inner: conversation.NewBedrockLLMClient(api),
		model: cfg.BedrockFallbackModelID,
	}
	return conversation.NewFallbackLLMClient(primary, fallback, logger)
}

// fixedModelClient forces every request onto one model, used to retarget
// fallback attempts at the configured fallback model.
type fixedModelClient struct {
	inner conversation.LLMClient
	model string
}

func (c fixedModelClient) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	req.Model = c.model
	return c.inner.Complete(ctx, req)
}

// buildDispatcher routes turns through SQS (or the in-memory queue in
// development) so bursts are absorbed and per-conversation ordering holds.
func buildDispatcher(engine *conversation.Engine, awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) conversation.Dispatcher {
	if cfg.UseMemoryQueue || cfg.TurnQueueURL == "" {
		logger.Info("using in-memory turn queue")
		return conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(128), logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	return conversation.NewOrchestrator(engine, conversation.NewSQSQueue(sqsClient, cfg.TurnQueueURL), logger,
		conversation.WithWorkerCount(cfg.WorkerCount))
}
