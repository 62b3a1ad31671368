// Package ragsvc provides the document QA server implementation.
package ragsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	"github.com/panjf2000/ants/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/biz"
	"github.com/kart-io/docrag/internal/rag/extract"
	"github.com/kart-io/docrag/internal/rag/handler"
	"github.com/kart-io/docrag/internal/rag/router"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/component/milvus"
	miniocomp "github.com/kart-io/docrag/pkg/component/minio"
	"github.com/kart-io/docrag/pkg/llm"
	"github.com/kart-io/docrag/pkg/llm/hunyuan"
	"github.com/kart-io/docrag/pkg/llm/openai"
	cacheopts "github.com/kart-io/docrag/pkg/options/cache"
	llmopts "github.com/kart-io/docrag/pkg/options/llm"
	logopts "github.com/kart-io/docrag/pkg/options/logger"
	milvusopts "github.com/kart-io/docrag/pkg/options/milvus"
	minioopts "github.com/kart-io/docrag/pkg/options/minio"
	ragopts "github.com/kart-io/docrag/pkg/options/rag"
	httpopts "github.com/kart-io/docrag/pkg/options/server/http"
	"github.com/kart-io/docrag/pkg/retry"
)

// Name is the name of the application.
const Name = "docrag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions     *httpopts.Options
	LogOptions      *logopts.Options
	MilvusOptions   *milvusopts.Options
	MinioOptions    *minioopts.Options
	CacheOptions    *cacheopts.Options
	RAGOptions      *ragopts.Options
	OpenAIOptions   *llmopts.ProviderOptions
	HunyuanOptions  *llmopts.ProviderOptions
	ShutdownTimeout time.Duration
}

// Server represents the document QA server.
type Server struct {
	httpServer      *http.Server
	pool            *ants.Pool
	shutdownTimeout time.Duration
	milvusClose     func()
	redisClose      func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting document QA service...", "name", Name, "version", version.Get().GitVersion)

	// 2. 初始化 Milvus 客户端
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	vectorStore := store.NewMilvusStore(milvusClient)
	logger.Info("Vector store initialized")

	// 3. 初始化 MinIO 对象存储
	objectStore, err := miniocomp.New(cfg.MinioOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio: %w", err)
	}
	logger.Infow("Object storage initialized",
		"endpoint", cfg.MinioOptions.Endpoint,
		"bucket", cfg.MinioOptions.Bucket,
	)

	// 4. 初始化 Redis 客户端（用于缓存，连接失败时降级）
	redisClient, redisClose := cfg.newRedisClient(ctx)

	// 5. 初始化 LLM 供应商
	embedder, chats, err := cfg.newProviders(redisClient)
	if err != nil {
		return nil, err
	}

	// 6. 初始化后台协程池
	pool, err := ants.NewPool(cfg.RAGOptions.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	logger.Infow("Worker pool initialized", "workers", cfg.RAGOptions.Workers)

	// 7. 初始化 Biz 层
	progress := biz.NewProgressStore()
	retrier := retry.New(&retry.Config{
		MaxAttempts: cfg.RAGOptions.MaxRetries,
		Delay:       cfg.RAGOptions.RetryDelay,
	})
	downloader := biz.NewHTTPDownloader(cfg.RAGOptions.DownloadTimeout, cfg.RAGOptions.DataDir)
	ingestor := biz.NewIngestor(vectorStore, embedder, extract.NewAnalysisExtractor(), downloader, progress, retrier, &biz.IngestorConfig{
		EmbeddingMaxToken: cfg.RAGOptions.EmbeddingMaxToken,
		EmbeddingDim:      cfg.RAGOptions.EmbeddingDim,
	})
	answerer := biz.NewAnswerer(vectorStore, embedder, &biz.AnswererConfig{
		TopK:        cfg.RAGOptions.TopK,
		TokenBudget: cfg.RAGOptions.TokenBudget(),
	})

	var answerCache *biz.AnswerCache
	if redisClient != nil {
		answerCache = biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
			Enabled:   cfg.CacheOptions.Enabled,
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
	}

	service := biz.NewRAGService(objectStore, vectorStore, ingestor, answerer, progress, answerCache, pool, chats, embedder)
	logger.Info("Service layer initialized")

	// 8. 初始化 Handler 与路由
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, handler.NewRAGHandler(service))

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("Document QA service is ready")
	return &Server{
		httpServer:      httpServer,
		pool:            pool,
		shutdownTimeout: cfg.ShutdownTimeout,
		milvusClose:     func() { _ = milvusClient.Close(context.Background()) },
		redisClose:      redisClose,
	}, nil
}

// newRedisClient 按缓存配置建立 Redis 连接。
// 连接失败只降级缓存能力，不阻止服务启动。
func (cfg *Config) newRedisClient(ctx context.Context) (*goredis.Client, func()) {
	if !cfg.CacheOptions.Enabled || cfg.CacheOptions.Redis == nil {
		logger.Info("Cache is disabled")
		return nil, nil
	}

	redisOpts := cfg.CacheOptions.Redis
	client := goredis.NewClient(&goredis.Options{
		Addr:         redisOpts.Addr(),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		PoolSize:     redisOpts.PoolSize,
		DialTimeout:  redisOpts.DialTimeout,
		ReadTimeout:  redisOpts.ReadTimeout,
		WriteTimeout: redisOpts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		_ = client.Close()
		return nil, nil
	}

	logger.Infow("Redis cache initialized",
		"addr", redisOpts.Addr(),
		"ttl", cfg.CacheOptions.TTL,
	)
	return client, func() { _ = client.Close() }
}

// newProviders 构建 Embedding 供应商与按标签索引的 Chat 供应商。
// OpenAI 为必选（同时承担 Embedding），Hunyuan 未配置密钥时跳过。
func (cfg *Config) newProviders(redisClient *goredis.Client) (llm.EmbeddingProvider, map[string]llm.ChatProvider, error) {
	openaiProvider, err := llm.NewProvider(openai.ProviderName, cfg.OpenAIOptions.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize openai provider: %w", err)
	}
	logger.Infow("OpenAI provider initialized", "embed_model", cfg.OpenAIOptions.EmbedModel)

	chats := map[string]llm.ChatProvider{
		model.APIOpenAI: openaiProvider,
	}

	if cfg.HunyuanOptions.Configured() {
		hunyuanProvider, err := llm.NewChatProvider(hunyuan.ProviderName, cfg.HunyuanOptions.ToConfigMap())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize hunyuan provider: %w", err)
		}
		chats[model.APIHunyuan] = hunyuanProvider
		logger.Info("Hunyuan provider initialized")
	} else {
		logger.Warn("Hunyuan provider not configured, queries with api=hunyuan will be rejected")
	}

	var embedder llm.EmbeddingProvider = openaiProvider
	if redisClient != nil {
		embedder = llm.NewCachedEmbeddingProvider(openaiProvider, redisClient, llm.DefaultEmbeddingCacheConfig())
		logger.Info("Embedding cache enabled")
	}

	return embedder, chats, nil
}

// Run starts the server and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		s.pool.Release()
		if s.milvusClose != nil {
			s.milvusClose()
		}
		if s.redisClose != nil {
			s.redisClose()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
