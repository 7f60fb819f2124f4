// Package consumer applies calendar imports from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/callboard/libs/kafkax"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TopicBusyImported = "calendar.busy.imported.v1"

// DefaultProduction scopes imports that do not name a production.
const DefaultProduction = "default"

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the part of *kafka.Reader the consumer uses. Offsets are committed
// explicitly once a message is applied or given up on.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// errPermanent marks handler errors that a retry cannot fix.
var errPermanent = errors.New("permanent")

func permanent(err error) error { return fmt.Errorf("%w: %w", errPermanent, err) }

type Consumer struct {
	reader   Reader
	logger   *slog.Logger
	inbox    inbox.Recorder
	handler  Handler
	backoff  time.Duration
	attempts int
}

type Config struct {
	Brokers []string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, recorder inbox.Recorder, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, recorder, reader, handler)
}

func NewWithReader(logger *slog.Logger, recorder inbox.Recorder, reader Reader, handler Handler) *Consumer {
	return &Consumer{
		reader:   reader,
		logger:   logger,
		inbox:    recorder,
		handler:  handler,
		backoff:  time.Second,
		attempts: 5,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			err := c.process(ctx, msg)
			if err == nil {
				break
			}
			if errors.Is(err, errPermanent) || attempt >= c.attempts {
				c.logger.Error("event dropped", "err", err, "topic", msg.Topic, "offset", msg.Offset, "attempts", attempt)
				break
			}
			if !c.wait(ctx) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

// process applies msg unless its id is already in the inbox. The id is recorded only
// after the handler succeeds.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctx, span := otel.Tracer("kafka").Start(kafkax.ExtractTraceContext(ctx, msg), "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	seen, err := c.inbox.Seen(ctx, meta.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inbox")
		return fmt.Errorf("inbox lookup %s: %w", meta.EventID, err)
	}
	if seen {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	if err := c.handler(ctx, msg); err != nil {
		c.logger.Warn("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		return err
	}
	if _, err := c.inbox.Record(ctx, meta.EventID, meta.EventType); err != nil {
		// Applied already; a redelivery would be applied again, which imports tolerate.
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
	}
	return nil
}

// BusyImported is the payload of calendar.busy.imported.v1.
type BusyImported struct {
	ProductionID string            `json:"production_id"`
	ActorID      string            `json:"actor_id"`
	Events       []conflicts.Event `json:"events"`
}

// Applier is what the busy import handler needs from the availability service.
type Applier interface {
	ImportBusy(ctx context.Context, production, actorID string, events []conflicts.Event) ([]conflicts.BusyInterval, error)
	Resolve(ctx context.Context, production, actorID string) (storage.Report, error)
}

// BusyImportedHandler stores the imported busy intervals and re-resolves the actor.
func BusyImportedHandler(app Applier, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt BusyImported
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return permanent(fmt.Errorf("decode %s: %w", TopicBusyImported, err))
		}
		if evt.ActorID == "" {
			return permanent(fmt.Errorf("%s without actor_id", TopicBusyImported))
		}
		if evt.ProductionID == "" {
			evt.ProductionID = DefaultProduction
		}
		busy, err := app.ImportBusy(ctx, evt.ProductionID, evt.ActorID, evt.Events)
		if err != nil {
			return err
		}
		rep, err := app.Resolve(ctx, evt.ProductionID, evt.ActorID)
		if err != nil {
			return err
		}
		logger.Info("busy calendar applied",
			"production_id", evt.ProductionID,
			"actor_id", evt.ActorID,
			"busy_intervals", len(busy),
			"conflicts", len(rep.Result.Unavailable),
		)
		return nil
	}
}
