package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"altid/internal/ai/gemini"
	"altid/internal/ai/stub"
	"altid/internal/document"
	"altid/internal/platform/config"
	"altid/internal/platform/httpserver"
	"altid/internal/platform/logger"
	"altid/internal/platform/metrics"
	"altid/internal/platform/redis"
	"altid/internal/token"
	"altid/internal/verification"
	verificationHandler "altid/internal/verification/handler"
	verificationMetrics "altid/internal/verification/metrics"
	"altid/internal/verification/ports"
	"altid/internal/verification/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("altid exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var sessions verification.Store
	if redisClient != nil {
		defer redisClient.Close()
		sessions = store.NewRedis(redisClient.Client, cfg.Session.TTL)
		log.Info("using redis session store", "ttl", cfg.Session.TTL)
	} else {
		sessions = store.NewInMemory(cfg.Session.TTL)
		log.Info("using in-memory session store", "ttl", cfg.Session.TTL)
	}

	extractor, faces, err := buildProviders(cfg.AI, log)
	if err != nil {
		return err
	}

	issuer := token.NewIssuer(token.Config{
		Audience:    cfg.Token.Audience,
		RedirectURL: cfg.Token.RedirectURL,
	})
	svc := verification.NewService(
		sessions,
		document.NewRenderer(),
		extractor,
		faces,
		issuer,
		verification.Config{
			SignatureDelay: cfg.Verification.SignatureDelay,
			RedirectDelay:  cfg.Verification.RedirectDelay,
		},
		log,
		verification.WithMetrics(verificationMetrics.New()),
	)

	h := verificationHandler.New(svc, log, cfg.Verification.RedirectURL, cfg.Server.MaxUploadBytes)
	router := newRouter(h, log, metrics.New(), cfg.Server.RequestTimeout, healthCheck(redisClient))
	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting altid", "addr", cfg.Server.Addr, "ai_provider", cfg.AI.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// let in-flight pipeline runs record their results
	return svc.Wait()
}

func buildProviders(cfg config.AIConfig, log *slog.Logger) (ports.IdentityExtractor, ports.FaceComparator, error) {
	if cfg.Provider != config.ProviderGemini {
		log.Warn("using stub AI provider; results are canned")
		return stub.NewExtractor(log), stub.NewComparator(log), nil
	}
	client, err := gemini.New(gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

func healthCheck(client *redis.Client) func(context.Context) error {
	if client == nil {
		return func(context.Context) error { return nil }
	}
	return client.Health
}
