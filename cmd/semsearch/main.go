package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/repository/points"
	chiTransport "github.com/kailas-cloud/semsearch/internal/transport/chi"
	natsTransport "github.com/kailas-cloud/semsearch/internal/transport/nats"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	"github.com/kailas-cloud/semsearch/internal/transport/rerank"
	collectionuc "github.com/kailas-cloud/semsearch/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	"github.com/kailas-cloud/semsearch/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	"github.com/kailas-cloud/semsearch/internal/version"
)

const embeddingProvider = "openai"

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting semsearch",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
		zap.Strings("index_addrs", cfg.Index.Addrs),
	)

	metrics.RegisterMetrics()
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	ctx := context.Background()

	// Vector index backend
	index, redisStore, closeIndex := openIndex(ctx, cfg, logger)
	defer closeIndex()
	logger.Info("Connected to vector index")

	// Embedding chains: documents and queries differ only in the instruction prefix
	cacheStore, closeCache := openCache(cfg, redisStore, logger)
	defer closeCache()
	docEmbedder := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, cacheStore, logger)
	queryEmbedder := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, cacheStore, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimension", cfg.Embedding.Dimension),
		zap.Bool("cache", cacheStore != nil),
	)

	// Collections
	specs := make([]point.CollectionSpec, 0, len(kind.All()))
	for _, k := range kind.All() {
		specs = append(specs, collectionuc.NewSpec(k, cfg.Collections.CollectionName(string(k)), cfg.Embedding.Dimension))
	}
	collections := collectionuc.New(index, specs, logger)
	ensureCtx, cancelEnsure := context.WithTimeout(ctx, time.Duration(cfg.Index.TimeoutSec)*time.Second)
	if err := collections.EnsureCollections(ensureCtx); err != nil {
		// Retried lazily on first use of each kind.
		logger.Error("Failed to ensure collections", zap.Error(err))
	}
	cancelEnsure()

	// Use cases
	pipeline := indexing.New(docEmbedder, collections, index, indexing.Config{
		BatchSize:      batchSizes(cfg.Indexing.BatchSizes),
		PayloadTextCap: cfg.Indexing.PayloadTextCap,
		WebTextCap:     cfg.Indexing.WebTextCap,
	}, logger)

	engine := searchuc.NewEngine(index, collections, searchuc.EngineConfig{
		Oversample: cfg.Search.Oversample,
		MinScore:   cfg.Search.MinScore,
		Timeout:    time.Duration(cfg.Search.TimeoutSec) * time.Second,
	})
	searchSvc := searchuc.New(engine, queryEmbedder, buildReranker(cfg, logger), searchuc.Config{
		DefaultTopK:  cfg.Search.DefaultTopK,
		MaxTopK:      cfg.Search.MaxTopK,
		UnifiedKinds: unifiedKinds(cfg.Search.UnifiedKinds),
	}, logger)

	healthSvc := healthuc.New(index, docEmbedder, collections)

	// NATS consumer
	stopNATS := startNATS(cfg, pipeline, logger)
	defer stopNATS()

	// HTTP
	server := chiTransport.NewServer(pipeline, searchSvc, healthSvc, logger)
	handler := otelhttp.NewHandler(chiTransport.NewRouter(server, cfg.Auth.APIKeys), "semsearch")

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openIndex connects the configured backend and waits for it.
// redisStore is non-nil for the redis and valkey drivers.
func openIndex(ctx context.Context, cfg config.Config, logger *zap.Logger) (point.Index, *dbRedis.Store, func()) {
	readiness := time.Duration(cfg.Index.ReadinessTimeout) * time.Second

	if cfg.Index.Driver == config.DriverQdrant {
		store, err := qdrant.NewStore(qdrant.Config{
			Addr:            cfg.Index.Addrs[0],
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		})
		if err != nil {
			logger.Fatal("Failed to create qdrant store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Qdrant not ready", zap.Error(err))
		}
		return store, nil, func() { _ = store.Close() }
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Index.Addrs,
		Password: cfg.Index.Password,
		Valkey:   cfg.Index.Driver == config.DriverValkey,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	repo := points.New(store, cfg.Index.KeyPrefix).WithHNSW(points.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	return repo, store, store.Close
}

// openCache returns the embedding cache store, reusing the index connection when it points at the same servers.
// A nil store disables caching.
func openCache(cfg config.Config, indexStore *dbRedis.Store, logger *zap.Logger) (*dbRedis.Store, func()) {
	if !cfg.Cache.Enabled {
		return nil, func() {}
	}
	if indexStore != nil && slices.Equal(cfg.Cache.Addrs, cfg.Index.Addrs) {
		return indexStore, func() {}
	}
	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Cache.Addrs, Password: cfg.Index.Password})
	if err != nil {
		logger.Warn("Embedding cache disabled", zap.Error(err))
		return nil, func() {}
	}
	return store, store.Close
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction -> Client.
func buildEmbedder(
	cfg config.Config, instruction string, cache *dbRedis.Store, logger *zap.Logger,
) *embeddinguc.Client {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimension,
		Provider:   embeddingProvider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Config{
			KeyPrefix: cfg.Index.KeyPrefix,
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
			Dimension: cfg.Embedding.Dimension,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embeddingProvider, cfg.Embedding.Model, cfg.Embedding.MaxBatchSize, logger,
	)

	// Outside the cache so the cache key includes the instruction.
	if instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embeddinguc.NewClient(embedder, embeddinguc.Config{
		Dimension: cfg.Embedding.Dimension,
		MaxChars:  cfg.Embedding.MaxChars,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	})
}

// buildReranker returns nil when reranking is disabled, so every rerank request falls back.
func buildReranker(cfg config.Config, logger *zap.Logger) searchuc.Reranker {
	if !cfg.Rerank.Enabled {
		return nil
	}
	return rerank.NewClient(&rerank.Config{
		APIKey:  cfg.Rerank.APIKey,
		BaseURL: cfg.Rerank.BaseURL,
		Model:   cfg.Rerank.Model,
		Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
		RPS:     cfg.Rerank.RPS,
		Burst:   cfg.Rerank.Burst,
		Logger:  logger,
	})
}

func startNATS(cfg config.Config, pipeline *indexing.Pipeline, logger *zap.Logger) func() {
	if cfg.NATS.URL == "" {
		return func() {}
	}
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("semsearch"))
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	consumer := natsTransport.NewConsumer(nc, pipeline, natsTransport.Config{
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		Queue:         cfg.NATS.Queue,
	}, logger)
	if err := consumer.Start(); err != nil {
		logger.Fatal("Failed to start NATS consumer", zap.Error(err))
	}
	return func() {
		if err := consumer.Stop(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
		}
		nc.Close()
	}
}

func batchSizes(in map[string]int) map[kind.Kind]int {
	out := make(map[kind.Kind]int, len(in))
	for k, v := range in {
		out[kind.Kind(k)] = v
	}
	return out
}

func unifiedKinds(in []string) []kind.Kind {
	out := make([]kind.Kind, len(in))
	for i, k := range in {
		out[i] = kind.Kind(k)
	}
	return out
}
