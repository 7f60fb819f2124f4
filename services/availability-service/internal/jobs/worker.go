// Package jobs re-resolves every actor on a schedule so verdicts follow the rolling
// window as days pass.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Resolver is the part of the availability service the worker drives.
type Resolver interface {
	ListActors(ctx context.Context) ([]storage.ActorRef, error)
	Resolve(ctx context.Context, production, actorID string) (storage.Report, error)
}

// Lease lets one replica own a run.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
}

type Worker struct {
	resolver Resolver
	lease    Lease
	logger   *slog.Logger
	interval time.Duration
}

type WorkerConfig struct {
	Interval time.Duration
}

func NewWorker(resolver Resolver, lease Lease, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Worker{
		resolver: resolver,
		lease:    lease,
		logger:   logger,
		interval: cfg.Interval,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("re-resolution failed", "err", err)
			}
		}
	}
}

// RunOnce resolves every stored actor and returns how many succeeded. A failing actor
// is logged and skipped.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	if w.lease != nil {
		ok, err := w.lease.Acquire(ctx, w.interval/2)
		if err != nil {
			return 0, err
		}
		if !ok {
			w.logger.Debug("re-resolution skipped, another replica holds the lease")
			return 0, nil
		}
	}

	refs, err := w.resolver.ListActors(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := w.resolver.Resolve(ctx, ref.ProductionID, ref.ActorID); err != nil {
			w.logger.Warn("actor re-resolution failed", "production_id", ref.ProductionID, "actor_id", ref.ActorID, "err", err)
			continue
		}
		done++
	}
	w.logger.Info("re-resolution finished", "actors", len(refs), "resolved", done)
	return done, nil
}

// RedisLease is a SET NX lease that expires on its own.
type RedisLease struct {
	rdb redis.Cmdable
	key string
	id  string
}

func NewRedisLease(rdb redis.Cmdable, key, holder string) *RedisLease {
	return &RedisLease{rdb: rdb, key: key, id: holder}
}

func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.rdb.SetNX(ctx, l.key, l.id, ttl).Result()
}
