package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fairdraw/internal/ingest"
	"fairdraw/internal/integrity"
	"fairdraw/internal/integrity/keys"
	"fairdraw/internal/platform/config"
	"fairdraw/internal/platform/httpserver"
	"fairdraw/internal/platform/kafka"
	"fairdraw/internal/platform/logger"
	"fairdraw/internal/platform/metrics"
	"fairdraw/internal/platform/postgres"
	"fairdraw/internal/platform/redis"
	"fairdraw/internal/randomness"
	rndmetrics "fairdraw/internal/randomness/metrics"
	"fairdraw/internal/randomness/providers"
	rndstore "fairdraw/internal/randomness/store"
	replayhandler "fairdraw/internal/replay/handler"
	replaymetrics "fairdraw/internal/replay/metrics"
	"fairdraw/internal/run"
	runhandler "fairdraw/internal/run/handler"
	runmetrics "fairdraw/internal/run/metrics"
	runstore "fairdraw/internal/run/store"
	platformaudit "fairdraw/pkg/platform/audit"
	"fairdraw/pkg/platform/audit/publishers/compliance"
	"fairdraw/pkg/platform/audit/publishers/stream"
	auditmemory "fairdraw/pkg/platform/audit/store/memory"
	auditpostgres "fairdraw/pkg/platform/audit/store/postgres"
	"fairdraw/pkg/platform/circuit"
	"fairdraw/pkg/platform/httputil"
	"fairdraw/pkg/platform/middleware/metadata"
	"fairdraw/pkg/platform/middleware/requesttime"
)

// main wires configuration, storage, randomness providers and the HTTP
// surface. Domain logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		log.Info("using postgres storage")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("using redis randomness snapshots")
	}

	aggregator, err := newAggregator(cfg.Randomness, cfg.AppVersion, log)
	if err != nil {
		return err
	}

	var (
		runs      run.Store           = runstore.NewInMemory()
		audits    platformaudit.Store = auditmemory.NewInMemoryStore()
		snapshots run.SnapshotStore   = rndstore.NewInMemory()
	)
	opts := []run.Option{
		run.WithLogger(log),
		run.WithMetrics(runmetrics.New()),
		run.WithAppVersion(cfg.AppVersion),
	}
	if db != nil {
		runs = runstore.NewPostgres(db)
		audits = auditpostgres.New(db)
		opts = append(opts, run.WithTx(newPublishPostgresTx(db)))
	}
	if redisClient != nil {
		snapshots = rndstore.NewRedis(redisClient.Client, cfg.Redis.SnapshotTTL)
	}
	opts = append(opts,
		run.WithAuditRecorder(compliance.New(audits,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics()),
		)),
		run.WithAuditReader(audits),
	)

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			return err
		}
		publisher := newStreamPublisher(producer, cfg.Kafka, log)
		publisher.Start(ctx)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := publisher.Close(closeCtx); err != nil {
				log.Warn("audit stream did not drain", "error", err)
			}
		}()
		opts = append(opts, run.WithAuditStream(publisher))
	}

	var keyProvider integrity.KeyProvider = keys.NewMemory()
	if cfg.Signing.KeyFile != "" {
		keyProvider = keys.NewFile(cfg.Signing.KeyFile)
	} else {
		log.Warn("no signing key file configured; using an ephemeral key")
	}

	service, err := run.New(aggregator, snapshots, runs, integrity.NewSigner(keyProvider), opts...)
	if err != nil {
		return err
	}

	zips, err := loadZipMapping(cfg.Server.ZipMappingFile)
	if err != nil {
		return err
	}
	if cfg.Server.AdminToken == "" {
		log.Warn("FAIRDRAW_ADMIN_TOKEN is empty; run creation is disabled")
	}

	httpMetrics := metrics.New()
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Use(maxBody(cfg.Server.MaxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(db, redisClient))
	r.Handle("/metrics", metrics.Handler())

	replayhandler.New(log, replaymetrics.New()).Register(r)
	runhandler.New(service, cfg.Server.AdminToken, log, runhandler.WithZipMap(zips)).Register(r)

	srv := httpserver.New(cfg.Server.Addr, r)
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}

func newAggregator(cfg config.RandomnessConfig, appVersion string, log *slog.Logger) (*randomness.Aggregator, error) {
	fetcher := providers.NewHTTPFetcher(
		providers.WithProxyBase(cfg.ProxyBase),
		providers.WithAttemptTimeout(cfg.AttemptTimeout),
		providers.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithCooldown(cfg.BreakerCooldown),
		),
		providers.WithUserAgent("fairdraw/"+appVersion),
		providers.WithFetcherLogger(log),
	)
	plans := []randomness.Plan{
		{
			Metric:  randomness.MetricBTC,
			Sources: providers.DefaultBTC(),
			Policy:  randomness.MedianQuorum{Min: cfg.MinQuorum, TolerancePercent: cfg.TolerancePercent},
		},
		{
			Metric:  randomness.MetricNIST,
			Sources: providers.DefaultNIST(),
			Policy:  randomness.FirstSuccess{},
		},
	}
	return randomness.New(fetcher, plans,
		randomness.WithLogger(log),
		randomness.WithMetrics(rndmetrics.New()),
	)
}

func newStreamPublisher(producer *kafka.Producer, cfg config.KafkaConfig, log *slog.Logger) *stream.Publisher {
	log.Info("streaming audit entries", "topic", cfg.AuditTopic)
	return stream.New(producer,
		stream.WithLogger(log),
		stream.WithMetrics(stream.NewMetrics()),
		stream.WithBufferSize(cfg.BufferSize),
		stream.WithFlushInterval(cfg.FlushInterval),
	)
}

func loadZipMapping(path string) (ingest.ZipMap, error) {
	if path == "" {
		return ingest.ZipMap{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ingest.ParseZipMapping(string(data)), nil
}

func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func readiness(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var errs []error
		if db != nil {
			errs = append(errs, db.PingContext(ctx))
		}
		if redisClient != nil {
			errs = append(errs, redisClient.Health(ctx))
		}
		if err := errors.Join(errs...); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
