// Command unihookd runs the webhook fan-out router: it opens the embedded
// store, syncs trigger descriptors from the host once synchronously, then
// serves inbound provider events and the provider-API mock surface while a
// background refresher keeps descriptors current.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/unihook/unihook/internal/api"
	"github.com/unihook/unihook/internal/config"
	"github.com/unihook/unihook/internal/fanout"
	"github.com/unihook/unihook/internal/hostapi"
	"github.com/unihook/unihook/internal/mock"
	"github.com/unihook/unihook/internal/storage"
	"github.com/unihook/unihook/internal/sync"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	store, err := storage.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()

	host := hostapi.New(cfg.N8NAPIURL, cfg.N8NAPIKey)
	dispatcher := fanout.New(cfg.N8NAPIURL, cfg.EndpointWebhook, log)

	refresher := &sync.Refresher{Host: host, Store: store, Interval: cfg.RefreshInterval, Log: log}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := refresher.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("initial sync pass failed, starting with the descriptors already in the store")
	}
	go refresher.Loop(ctx)

	var githubSecret []byte
	if cfg.GitHubWebhookSecret != "" {
		githubSecret = []byte(cfg.GitHubWebhookSecret)
	}

	inbound := &api.Inbound{Store: store, Fanout: dispatcher, GitHubSecret: githubSecret, Log: log}
	health := &api.Health{Store: store}
	githubMock := &mock.GitHub{Store: store, Log: log}
	jiraMock := &mock.Jira{BaseURL: routerBaseURL(cfg.ListenAddr), Log: log}

	handler := api.NewRouter(inbound, health, githubMock, jiraMock, log)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("unihookd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("http server failed")
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// routerBaseURL derives a base URL for the router from its listen address,
// for the Jira mock's "self" link field; a wildcard bind address such as
// 0.0.0.0 is kept as is. It is informational only; the host
// does not dereference it during the test-registration lifecycle.
func routerBaseURL(listenAddr string) string {
	if len(listenAddr) > 0 && listenAddr[0] == ':' {
		return "http://localhost" + listenAddr
	}
	return "http://" + listenAddr
}
