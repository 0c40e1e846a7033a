package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ragdesk/internal/ai"
	"ragdesk/internal/app"
	"ragdesk/internal/config"
	"ragdesk/internal/history"
	"ragdesk/internal/logger"
	"ragdesk/internal/pkg/retry"
	redisClient "ragdesk/internal/platform/redis"
	"ragdesk/internal/rag"
	"ragdesk/internal/search"
)

// App owns every long-lived client of the server process. It is built once
// at startup and handed to the transport layer.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	LLM     *ai.AzureOpenAIClient
	Search  *search.Client
	Redis   *redis.Client
	History history.Store
	Chat    *app.ChatService
	// HistoryBackend records which history variant was selected at startup.
	HistoryBackend history.Backend

	StartedAt time.Time
}

// Base loads configuration and builds the logger shared by every command.
func Base() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.File, cfg.IsProduction())
	return cfg, log, nil
}

func New(ctx context.Context) (*App, error) {
	cfg, log, err := Base()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llm := NewAIClient(cfg)
	searchCli := NewSearchClient(cfg)
	retriever := rag.NewHybridRetriever(llm, searchCli, cfg.RAG.TopK)

	backend := history.ResolveBackend(
		cfg.History.RedisURL,
		time.Duration(cfg.History.TTLSeconds)*time.Second,
		cfg.History.MemoryMaxSessions,
	)

	var (
		store    history.Store
		redisCli *redis.Client
	)
	switch backend.Kind {
	case history.Durable:
		redisCli, err = redisClient.New(backend.RedisURL)
		if err != nil {
			return nil, err
		}
		// An unreachable server is not fatal: turns fail until it is back.
		if err := redisClient.Ping(ctx, redisCli); err != nil {
			log.Warn("chat history store unreachable at startup", zap.Error(err))
		}
		store = history.NewRedisStore(redisCli, backend.TTL)
	default:
		log.Warn("using in-process chat history, not shared across replicas",
			zap.String("reason", backend.FallbackReason),
			zap.Int("max_sessions", backend.MaxSessions),
		)
		store = history.NewMemoryStore(backend.MaxSessions, backend.TTL)
	}
	log.Info("chat history backend ready", zap.Stringer("backend", backend.Kind))

	return &App{
		Config:         cfg,
		Logger:         log,
		LLM:            llm,
		Search:         searchCli,
		Redis:          redisCli,
		History:        store,
		Chat:           app.NewChatService(retriever, llm, store, log.Named("chat")),
		HistoryBackend: backend,
		StartedAt:      time.Now(),
	}, nil
}

func NewAIClient(cfg *config.Config) *ai.AzureOpenAIClient {
	return ai.NewAzureOpenAIClient(ai.Config{
		Endpoint:        cfg.LLM.Endpoint,
		APIKey:          cfg.LLM.APIKey,
		Deployment:      cfg.LLM.Deployment,
		APIVersion:      cfg.LLM.APIVersion,
		EmbedDeployment: cfg.LLM.EmbedDeployment,
		EmbedAPIVersion: cfg.LLM.EmbedAPIVersion,
		Timeout:         upstreamTimeout(cfg),
		Retry:           retryPolicy(cfg),
	})
}

func NewSearchClient(cfg *config.Config) *search.Client {
	return search.NewClient(search.Config{
		Endpoint:   cfg.Search.Endpoint,
		APIKey:     cfg.Search.APIKey,
		Index:      cfg.Search.Index,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    upstreamTimeout(cfg),
		Retry:      retryPolicy(cfg),
	})
}

func upstreamTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{MaxRetries: cfg.Upstream.MaxRetries}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
