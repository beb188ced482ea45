package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aksara-ai/aksara"
	"github.com/aksara-ai/aksara/classifier"
	"github.com/aksara-ai/aksara/internal/config"
	"github.com/aksara-ai/aksara/internal/httpapi"
	"github.com/aksara-ai/aksara/observer"
	"github.com/aksara-ai/aksara/provider/openaicompat"
	"github.com/aksara-ai/aksara/search/qdrant"
	"github.com/aksara-ai/aksara/store/postgres"
	"github.com/aksara-ai/aksara/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// 1. Load config
	cfg := config.Load(os.Getenv("AKSARA_CONFIG"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Observability
	var tracer aksara.Tracer
	if cfg.Observer.Enabled {
		shutdown, err := observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
		tracer = observer.NewTracer()
	}

	// 3. Providers
	llm := aksara.WithRetry(
		openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL),
		aksara.RetryLogger(logger))
	embedder := aksara.WithEmbedderRetry(
		openaicompat.NewEmbedding(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions),
		aksara.RetryLogger(logger))

	// 4. Retrieval
	searcher, err := qdrant.New(qdrant.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		ContentKey: cfg.Qdrant.ContentKey,
	}, embedder)
	if err != nil {
		log.Fatalf("qdrant: %v", err)
	}
	defer searcher.Close()

	retriever := aksara.NewRetriever(searcher,
		aksara.WithTopK(cfg.Engine.TopK),
		aksara.WithResultCap(cfg.Engine.ResultCap),
		aksara.WithRetrieverLogger(logger),
		aksara.WithRetrieverTracer(tracer))

	// 5. Conversation store, wrapped so outages degrade to local history.
	ttl := time.Duration(cfg.Store.TTLHours) * time.Hour
	store := aksara.NewFallbackStore(buildStore(ctx, cfg, ttl), ttl,
		aksara.WithFallbackLogger(logger))

	// 6. Engine
	engineOpts := []aksara.EngineOption{
		aksara.WithMaxSteps(cfg.Engine.MaxSteps),
		aksara.WithMaxHistory(cfg.Engine.MaxHistory),
		aksara.WithDefaultFanOut(cfg.Engine.FanOut),
		aksara.WithLockWait(time.Duration(cfg.Engine.LockWaitSec) * time.Second),
		aksara.WithLogger(logger),
		aksara.WithTracer(tracer),
	}
	if cfg.Classifier.BaseURL != "" {
		engineOpts = append(engineOpts, aksara.WithClassifier(classifier.New(cfg.Classifier.BaseURL)))
	}
	engine := aksara.NewEngine(llm, retriever, store, engineOpts...)

	// 7. HTTP server
	api := httpapi.New(engine, cfg.Server.APIKey, httpapi.WithLogger(logger))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}

// buildStore creates the configured conversation store backend.
func buildStore(ctx context.Context, cfg config.Config, ttl time.Duration) aksara.ConversationStore {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		store := postgres.New(pool, postgres.WithTTL(ttl))
		if err := store.Init(ctx); err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		return store
	default:
		store := sqlite.New(cfg.Store.Path, sqlite.WithTTL(ttl))
		if err := store.Init(ctx); err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		return store
	}
}
