package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/md-rashed-zaman/callboard/libs/auth"
	"github.com/md-rashed-zaman/callboard/libs/config"
	"github.com/md-rashed-zaman/callboard/libs/db"
	"github.com/md-rashed-zaman/callboard/libs/httpx"
	"github.com/md-rashed-zaman/callboard/libs/kafkax"
	otelx "github.com/md-rashed-zaman/callboard/libs/otel"
	"github.com/md-rashed-zaman/callboard/libs/runtime"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/jobs"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/settings"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("service failed", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8086")
	if err != nil {
		return err
	}
	sched, err := settings.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(service)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		docs     storage.Collections = storage.NewMemory()
		sink     outbox.Sink
		recorder inbox.Recorder
		rdb      *redis.Client
		pool     *db.Pool
		checks   []runtime.ReadyCheck
		workers  sync.WaitGroup
	)

	if url := config.String("REDIS_URL", ""); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		docs = storage.NewRedis(rdb, "callboard")
		recorder = inbox.NewRedis(rdb, 0)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if url := config.String("DATABASE_URL", ""); url != "" {
		pool, err = db.Open(ctx, url, db.Options{})
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Migrate(ctx, storage.DocumentsSchema, outbox.Schema, inbox.Schema); err != nil {
			return err
		}
		docs = storage.NewPostgres(pool)
		if rdb != nil {
			ttl, err := config.Duration("CACHE_TTL", 5*time.Minute)
			if err != nil {
				return err
			}
			docs = storage.NewCached(docs, rdb, ttl)
		}
		outboxRepo := outbox.NewRepository(pool)
		sink = outboxRepo
		recorder = inbox.NewRepository(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers: kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")),
		})
		workers.Add(1)
		go func() {
			defer workers.Done()
			publisher.Run(ctx)
		}()
	} else {
		logger.Warn("DATABASE_URL not set, outbox disabled")
	}

	svc := availability.NewService(docs, sink, sched, logger)

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		if recorder == nil {
			logger.Warn("calendar consumer disabled (no inbox store configured)")
		} else {
			c := consumer.New(logger, recorder, consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   config.String("KAFKA_BUSY_TOPIC", consumer.TopicBusyImported),
			}, consumer.BusyImportedHandler(svc, logger))
			workers.Add(1)
			go func() {
				defer workers.Done()
				c.Run(ctx)
			}()
		}
	}

	interval, err := config.Duration("RESOLVE_INTERVAL", time.Hour)
	if err != nil {
		return err
	}
	var lease jobs.Lease
	if rdb != nil {
		host, _ := os.Hostname()
		lease = jobs.NewRedisLease(rdb, "callboard:lease:re-resolve", host)
	}
	worker := jobs.NewWorker(svc, lease, logger, jobs.WorkerConfig{Interval: interval})
	workers.Add(1)
	go func() {
		defer workers.Done()
		worker.Run(ctx)
	}()

	mux := runtime.NewBaseMuxWithReady(checks...)
	var api http.Handler = apiMux(svc, logger)
	verifier := auth.Verifier{Secret: config.String("JWT_SECRET", "")}
	if url := config.String("JWKS_URL", ""); url != "" {
		verifier.JWKS = auth.NewJWKSClient(url, 5*time.Minute)
	}
	if verifier.Enabled() {
		api = verifier.Middleware(api)
	} else {
		logger.Warn("JWT_SECRET and JWKS_URL not set, API is unauthenticated")
	}

	var limiter httpx.Limiter
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 600)
	if err != nil {
		return err
	}
	if rdb != nil {
		limiter = httpx.NewRedisLimiter(rdb, limit, time.Minute, "callboard:rl")
	} else {
		limiter = httpx.NewMemoryLimiter(limit, time.Minute)
	}
	mux.Handle("/api/", httpx.Chain(api,
		httpx.RateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
		httpx.WithBodyLimit(1<<20),
	))

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", auth.ProductionHeader, httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr,
			"days", sched.Days, "start_hour", sched.StartHour, "end_hour", sched.EndHour,
			"window_days", sched.WindowDays, "timezone", sched.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	workers.Wait()
	logger.Info("http server stopped")
	return nil
}

func apiMux(svc *availability.Service, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	handlers.New(svc, logger).Register(mux)
	return mux
}
