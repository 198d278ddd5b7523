package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propflow/mailtriage/internal/credential"
	"github.com/propflow/mailtriage/internal/rate"
	"github.com/propflow/mailtriage/internal/runtime"
	"github.com/propflow/mailtriage/internal/server"
	"github.com/propflow/mailtriage/internal/triage"
)

type serverConfig struct {
	addr     string
	tokenURL string
	rps      int
	fanOut   int

	secret       string
	clientID     string
	clientSecret string
}

func main() {
	cfg, err := parseServerFlags()
	if err != nil {
		runtime.DefaultLogger().Error("mailtriage-server failed", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailtriage-server failed", "error", err)
		os.Exit(1)
	}
}

func parseServerFlags() (serverConfig, error) {
	addr := flag.String("addr", ":8080", "listen address")
	tokenURL := flag.String("token-url", "", "override the OAuth token endpoint (testing)")
	rps := flag.Int("rps", 8, "max Gmail requests per second")
	fanOut := flag.Int("fan-out", 5, "concurrent per-message detail fetches")
	flag.Parse()

	cfg := serverConfig{
		addr:         *addr,
		tokenURL:     *tokenURL,
		rps:          *rps,
		fanOut:       *fanOut,
		secret:       os.Getenv("MAILTRIAGE_JWT_SECRET"),
		clientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		clientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}
	if cfg.secret == "" {
		return serverConfig{}, errors.New("MAILTRIAGE_JWT_SECRET must be set")
	}
	if cfg.clientID == "" || cfg.clientSecret == "" {
		return serverConfig{}, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return cfg, nil
}

func run(cfg serverConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	var limiter rate.Limiter = rate.None{}
	if cfg.rps > 0 {
		bucket := rate.NewTokenBucket(cfg.rps)
		defer bucket.Stop()
		limiter = bucket
	}

	refresher := credential.NewRefresher(cfg.clientID, cfg.clientSecret, cfg.tokenURL, logger)
	codec := credential.NewCodec([]byte(cfg.secret), 0)

	svc := triage.NewService(refresher, runtime.NewTokenClient, limiter, logger)
	if cfg.fanOut > 0 {
		svc.FanOut = cfg.fanOut
	}

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           server.New(svc, codec, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", cfg.addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
