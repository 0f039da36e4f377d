package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/config"
	"github.com/digi-assistant/digi/backend/internal/handler"
	"github.com/digi-assistant/digi/backend/internal/logging"
	"github.com/digi-assistant/digi/backend/internal/model/persona"
	"github.com/digi-assistant/digi/backend/internal/service/ai"
	"github.com/digi-assistant/digi/backend/internal/service/chat"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
	"github.com/digi-assistant/digi/backend/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment only", zap.Error(envErr))
	}

	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		logger.Fatal("failed to load persona", zap.String("file", cfg.PersonaFile), zap.Error(err))
	}

	provider, err := ai.New(ctx, cfg.AI)
	if err != nil {
		logger.Warn("ai provider unavailable, chat requests will fail until credentials are configured",
			zap.String("provider", cfg.AI.Provider),
			zap.Bool("credentials", cfg.AI.HasCredentials()),
			zap.Error(err),
		)
	} else {
		logger.Info("ai provider initialized",
			zap.String("provider", provider.Name()),
			zap.Int("max_tokens", cfg.AI.MaxTokens),
		)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	uploads := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if removed := upload.NewCleaner(cfg.Upload.Dir, logger.Sugar()).Clean(cfg.Upload.StaleAfter); removed > 0 {
		logger.Info("removed stale uploads", zap.Int("count", removed))
	}

	chatSvc := chat.NewService(provider, ai.NewPromptBuilder(p), logger)

	router := handler.NewRouter(handler.Deps{
		Web:     cfg.Web,
		UI:      web.FS(),
		Persona: p,
		Chat:    chatSvc,
		Uploads: uploads,
		Logger:  logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Digi Assistant backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
