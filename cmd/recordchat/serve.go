package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeefy/recordchat/internal/cache"
	"github.com/jeefy/recordchat/internal/config"
	"github.com/jeefy/recordchat/internal/llm"
	"github.com/jeefy/recordchat/internal/nlp"
	"github.com/jeefy/recordchat/internal/server"
	"github.com/jeefy/recordchat/internal/store"
	"github.com/jeefy/recordchat/web"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and web UI",
		Long: `Start the HTTP server. Configuration comes from the environment,
an optional .env file and the --config file.

Examples:
  recordchat serve
  PORT=8080 STORE_BACKEND=sqlite recordchat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	if cfg.SeedSamples {
		seeded, err := store.EnsureSamples(ctx, st)
		if err != nil {
			return fmt.Errorf("insert sample records: %w", err)
		}
		if seeded {
			log.Info("inserted sample records into empty store")
		}
	}

	chatCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer chatCache.Close()

	ollama := llm.NewOllama(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTimeout)
	if cfg.LLMPullModel {
		// A missing model only disables the fallback, so startup continues.
		pullCtx, cancel := context.WithTimeout(ctx, cfg.LLMPullTimeout)
		if err := ollama.EnsureModel(pullCtx); err != nil {
			log.Warn("could not ensure language model",
				zap.String("model", cfg.LLMModel),
				zap.Duration("timeout", cfg.LLMPullTimeout),
				zap.Error(err))
		}
		cancel()
	}
	asst := llm.NewAssistant(ollama, llm.Config{
		Cache:     chatCache,
		CacheTTL:  cfg.CacheTTL,
		KeyPrefix: ollama.Model(),
		Logger:    log.Named("llm"),
	})

	srv, err := server.New(st, nlp.NewProcessor(), asst, server.Options{
		Development: cfg.IsDevelopment(),
		Backend:     cfg.StoreBackend,
		Logger:      log.Named("http"),
		Static:      web.Static(),
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// chat requests wait on the model
		WriteTimeout: cfg.LLMTimeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting recordchat",
			zap.String("addr", httpSrv.Addr),
			zap.String("env", cfg.Env),
			zap.String("backend", cfg.StoreBackend),
			zap.String("llm_backend", ollama.BackendName()),
			zap.String("model", ollama.Model()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openCache prefers Redis when REDIS_ADDR is set and falls back to the
// in-process cache otherwise.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory chat cache")
		return cache.NewMemory(cfg.CachePurgeInterval), nil
	}
	rc, err := cache.NewRedis(ctx, cache.RedisOptions{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("using redis chat cache", zap.String("addr", cfg.RedisAddr))
	return rc, nil
}
