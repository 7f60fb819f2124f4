// Package inbox remembers consumed event ids so redelivered messages are applied once.
package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/callboard/libs/db"
	"github.com/redis/go-redis/v9"
)

const Schema = `
CREATE TABLE IF NOT EXISTS inbox_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Recorder remembers applied event ids. Seen is checked before applying an event and
// Record is called only once it has been applied, so a failed event is retried.
// Record reports whether the id was new.
type Recorder interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inbox_events WHERE event_id = $1)`, eventID).Scan(&seen)
	return seen, err
}

func (r *Repository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

// Redis dedupes with SET NX and forgets ids after ttl. It serves deployments that run
// without Postgres.
type Redis struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, redisKey(eventID)).Result()
	return n > 0, err
}

func (r *Redis) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	return r.rdb.SetNX(ctx, redisKey(eventID), eventType, r.ttl).Result()
}

func redisKey(eventID string) string { return "callboard:inbox:" + eventID }
