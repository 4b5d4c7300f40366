package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/config"
	"github.com/suwonbread/bready/internal/db/sqlite"
	"github.com/suwonbread/bready/internal/domain"
	logpkg "github.com/suwonbread/bready/internal/logger"
	"github.com/suwonbread/bready/internal/metrics"
	bakeryrepo "github.com/suwonbread/bready/internal/repository/bakery"
	chathistoryrepo "github.com/suwonbread/bready/internal/repository/chathistory"
	"github.com/suwonbread/bready/internal/repository/embcache"
	userrepo "github.com/suwonbread/bready/internal/repository/user"
	visitrepo "github.com/suwonbread/bready/internal/repository/visitrecord"
	wishlistrepo "github.com/suwonbread/bready/internal/repository/wishlist"
	"github.com/suwonbread/bready/internal/token"
	chiTransport "github.com/suwonbread/bready/internal/transport/chi"
	"github.com/suwonbread/bready/internal/transport/kakao"
	openaiLLM "github.com/suwonbread/bready/internal/transport/openai"
	accountuc "github.com/suwonbread/bready/internal/usecase/account"
	authuc "github.com/suwonbread/bready/internal/usecase/auth"
	cataloguc "github.com/suwonbread/bready/internal/usecase/catalog"
	ingestuc "github.com/suwonbread/bready/internal/usecase/ingest"
	raguc "github.com/suwonbread/bready/internal/usecase/rag"
	"github.com/suwonbread/bready/internal/vector"
	"github.com/suwonbread/bready/internal/vector/memvec"
	"github.com/suwonbread/bready/internal/vector/qdrantvec"
	"github.com/suwonbread/bready/internal/vector/redisvec"
	"github.com/suwonbread/bready/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bready API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_driver", cfg.Vector.Driver),
		zap.String("db_path", cfg.Database.Path),
	)

	ctx := context.Background()

	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to sqlite")

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterHTTPMetrics()

	// Vector index per driver. The redis store doubles as the embedding
	// cache backend; other drivers run uncached.
	var index vector.Index
	var cacheStore *redisvec.Store
	switch cfg.Vector.Driver {
	case "redis":
		store, err := redisvec.NewStore(ctx, redisvec.Config{
			Addrs:      cfg.Vector.Redis.Addrs,
			Password:   cfg.Vector.Redis.Password,
			KeyPrefix:  cfg.Vector.Redis.KeyPrefix,
			Dimensions: cfg.Vector.Dimensions,
		})
		if err != nil {
			logger.Fatal("Failed to create redis vector store", zap.Error(err))
		}
		readiness := time.Duration(cfg.Vector.Redis.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		index = store
		cacheStore = store
	case "qdrant":
		store, err := qdrantvec.NewStore(ctx, qdrantvec.Config{
			Host:       cfg.Vector.Qdrant.Host,
			Port:       cfg.Vector.Qdrant.Port,
			Collection: cfg.Vector.Qdrant.Collection,
			APIKey:     cfg.Vector.Qdrant.APIKey,
			UseTLS:     cfg.Vector.Qdrant.UseTLS,
			Dimensions: cfg.Vector.Dimensions,
		})
		if err != nil {
			logger.Fatal("Failed to create qdrant vector store", zap.Error(err))
		}
		index = store
	case "memory":
		index = memvec.New()
	default:
		logger.Fatal("Unknown vector driver", zap.String("driver", cfg.Vector.Driver))
	}
	defer index.Close()
	logger.Info("Vector index ready", zap.String("driver", cfg.Vector.Driver))

	// Embedder chain: OpenAI -> cache decorator (redis driver only)
	baseEmbedder := openaiLLM.NewEmbedder(openaiLLM.EmbedderConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
	})
	var queryEmbedder domain.Embedder = baseEmbedder
	var ingestEmbedder ingestuc.BatchEmbedder = baseEmbedder
	if cacheStore != nil {
		cached := embcache.New(baseEmbedder, cacheStore, metrics.EmbeddingCacheTotal, logger)
		queryEmbedder = cached
		ingestEmbedder = cached
	}

	generator := openaiLLM.NewGenerator(openaiLLM.GeneratorConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})

	kakaoClient := kakao.New(kakao.Config{
		ClientID:     cfg.Kakao.ClientID,
		ClientSecret: cfg.Kakao.ClientSecret,
		RedirectURI:  cfg.Kakao.RedirectURI,
	})

	tokens, err := token.NewManager(cfg.Session.Secret, time.Duration(cfg.Session.TTLSec)*time.Second)
	if err != nil {
		logger.Fatal("Failed to create token manager", zap.Error(err))
	}

	// Repositories
	bakeries := bakeryrepo.New(db)
	history := chathistoryrepo.New(db)
	users := userrepo.New(db)
	wishlists := wishlistrepo.New(db)
	visits := visitrepo.New(db)

	// Use case services
	ingestSvc := ingestuc.New(ingestEmbedder, index, bakeries)
	ragSvc := raguc.New(queryEmbedder, index, bakeries, generator, history)
	catalogSvc := cataloguc.New(bakeries, ingestSvc)
	authSvc := authuc.New(kakaoClient, users, tokens)
	accountSvc := accountuc.New(wishlists, visits, bakeries)

	server := chiTransport.NewServer(ragSvc, catalogSvc, ingestSvc, authSvc, accountSvc,
		tokens, chiTransport.SessionConfig{
			CookieName:  cfg.Session.CookieName,
			Secure:      cfg.Session.Secure,
			FrontendURL: cfg.Kakao.FrontendURL,
		}, logger)

	limiter, stopLimiter := chiTransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer stopLimiter()

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", server.Routes(limiter.Middleware))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates
// X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
