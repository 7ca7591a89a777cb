package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"authgate/internal/audit"
	auditkafka "authgate/internal/audit/store/kafka"
	auditmemory "authgate/internal/audit/store/memory"
	"authgate/internal/cookies"
	"authgate/internal/flow"
	"authgate/internal/flow/store"
	"authgate/internal/idp"
	"authgate/internal/platform/config"
	"authgate/internal/platform/httpserver"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	platformredis "authgate/internal/platform/redis"
	httptransport "authgate/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	pendingStore, closeStore, err := newPendingStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	idpClient := idp.New(cfg.IdP)

	flowSvc := flow.New(pendingStore, idpClient, cfg.IdP, cfg.PublicURL+"/callback", cfg.AllowedRedirectURIs)

	issuer, err := cookies.New(true)
	if err != nil {
		return err
	}

	m := metrics.New()

	publisher, closeAudit := newAuditPublisher(cfg, log)
	defer closeAudit()

	handler := httptransport.New(flowSvc, idpClient, issuer, log, m, publisher, cfg.IdP, cfg.PublicURL, flow.Providers())
	router := httptransport.NewRouter(handler, originsFromURIs(cfg.AllowedRedirectURIs))

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting authgate", "addr", cfg.Addr, "idp_domain", cfg.IdP.Domain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newPendingStore prefers Redis and falls back to the in-memory store when no
// Redis URL is configured. The fallback is single-instance only.
func newPendingStore(cfg config.Server, log *slog.Logger) (store.Store, func(), error) {
	if cfg.Redis.URL == "" {
		log.Warn("REDIS_URL not set, using in-memory pending-login store")
		return store.NewMemory(), func() {}, nil
	}

	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to redis")
	return store.NewRedis(client.Client), func() { _ = client.Close() }, nil
}

func newAuditPublisher(cfg config.Server, log *slog.Logger) (*audit.Publisher, func()) {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		log.Warn("AUDIT_KAFKA_BROKERS not set, keeping audit events in memory")
		publisher := audit.NewPublisher(auditmemory.NewInMemoryStore(), log, audit.WithAsyncBuffer(256))
		return publisher, publisher.Close
	}

	kafkaStore, err := auditkafka.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
	if err != nil {
		log.Error("kafka audit store unavailable, falling back to memory", "error", err)
		publisher := audit.NewPublisher(auditmemory.NewInMemoryStore(), log, audit.WithAsyncBuffer(256))
		return publisher, publisher.Close
	}

	log.Info("audit events publishing to kafka", "topic", cfg.Audit.KafkaTopic)
	publisher := audit.NewPublisher(kafkaStore, log, audit.WithAsyncBuffer(256))
	return publisher, func() {
		publisher.Close()
		kafkaStore.Close()
	}
}

// originsFromURIs reduces the redirect allow-list to scheme://host origins
// for CORS. Malformed entries are skipped.
func originsFromURIs(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	origins := make([]string, 0, len(uris))
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
