// Package availability ties the grid, rosters and conflict resolution to storage and
// the outbox. HTTP handlers, the Kafka consumer and the re-resolution worker all go
// through Service.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/roster"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/segments"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/settings"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidActor = errors.New("invalid actor")
	ErrOutsideGrid  = errors.New("segment outside the configured week")
)

type Service struct {
	actors   *storage.Actors
	busy     *storage.Busy
	reports  *storage.Reports
	events   outbox.Sink
	settings settings.Settings
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(docs storage.Collections, events outbox.Sink, s settings.Settings, logger *slog.Logger) *Service {
	return &Service{
		actors:   storage.NewActors(docs),
		busy:     storage.NewBusy(docs),
		reports:  storage.NewReports(docs),
		events:   events,
		settings: s,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock that anchors the conflict window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Week() segments.Week { return s.settings.Week() }

func (s *Service) Actors(ctx context.Context, production string) ([]roster.Actor, error) {
	return s.actors.List(ctx, production)
}

func (s *Service) ListActors(ctx context.Context) ([]storage.ActorRef, error) {
	return s.actors.ListAll(ctx)
}

// SaveActor upserts the profile fields. An existing selection is kept.
func (s *Service) SaveActor(ctx context.Context, production string, a roster.Actor) (roster.Actor, error) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" || strings.Contains(a.ID, "/") {
		return roster.Actor{}, fmt.Errorf("%w: id is required and must not contain '/'", ErrInvalidActor)
	}
	existing, err := s.actors.Get(ctx, production, a.ID)
	switch {
	case err == nil:
		a.SelectedSegmentIDs = existing.SelectedSegmentIDs
	case errors.Is(err, storage.ErrNotFound):
		a.SelectedSegmentIDs = []string{}
	default:
		return roster.Actor{}, err
	}
	if err := s.actors.Put(ctx, production, a); err != nil {
		return roster.Actor{}, err
	}
	return s.actors.Get(ctx, production, a.ID)
}

type actorUpdated struct {
	ProductionID       string                   `json:"production_id"`
	ActorID            string                   `json:"actor_id"`
	SelectedSegmentIDs []string                 `json:"selected_segment_ids"`
	Ranges             []segments.TimeslotRange `json:"ranges"`
}

// SetSelection replaces the actor's selected segments and returns them compacted.
// Duplicate references collapse to one selection.
func (s *Service) SetSelection(ctx context.Context, production, actorID string, refs []segments.Ref) ([]segments.TimeslotRange, error) {
	a, err := s.actors.Get(ctx, production, actorID)
	if err != nil {
		return nil, err
	}
	segs, err := segments.Resolve(refs)
	if err != nil {
		return nil, err
	}
	week := s.Week()
	for i, seg := range segs {
		if !week.Contains(seg) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideGrid, seg.ID)
		}
		day, _ := week.Validate(seg.Day)
		segs[i] = segments.NewSegment(day, seg.StartMinute)
	}

	ranges := segments.Compact(segs)
	a.SelectedSegmentIDs = segments.IDs(segments.ExpandAll(ranges))
	if err := s.actors.Put(ctx, production, a); err != nil {
		return nil, err
	}
	s.emit(ctx, outbox.EventActorUpdated, actorID, actorUpdated{
		ProductionID:       production,
		ActorID:            actorID,
		SelectedSegmentIDs: a.SelectedSegmentIDs,
		Ranges:             ranges,
	})
	return ranges, nil
}

func (s *Service) Selection(ctx context.Context, production, actorID string) ([]segments.TimeslotRange, error) {
	a, err := s.actors.Get(ctx, production, actorID)
	if err != nil {
		return nil, err
	}
	return segments.Compact(a.Selection()), nil
}

// ImportBusy reduces calendar events to busy intervals within the import horizon
// starting today and replaces what was stored for the actor.
func (s *Service) ImportBusy(ctx context.Context, production, actorID string, events []conflicts.Event) ([]conflicts.BusyInterval, error) {
	if _, err := s.actors.Get(ctx, production, actorID); err != nil {
		return nil, err
	}
	now := s.now()
	busy := conflicts.BusyFromEvents(events, s.settings.Location(), now, s.settings.Horizon())
	if err := s.busy.Replace(ctx, production, actorID, busy, now); err != nil {
		return nil, err
	}
	return busy, nil
}

// Resolve checks the actor's selection against stored busy intervals, stores the
// report and announces it.
func (s *Service) Resolve(ctx context.Context, production, actorID string) (storage.Report, error) {
	ctx, span := otel.Tracer("availability").Start(ctx, "availability.resolve",
		trace.WithAttributes(
			attribute.String("production.id", production),
			attribute.String("actor.id", actorID),
		),
	)
	defer span.End()

	a, err := s.actors.Get(ctx, production, actorID)
	if err != nil {
		return storage.Report{}, err
	}
	busy, err := s.busy.Get(ctx, production, actorID)
	if err != nil {
		span.RecordError(err)
		return storage.Report{}, err
	}

	now := s.now()
	resolver := s.settings.Resolver()
	window := resolver.Window(now)
	result := resolver.Resolve(now, a.Selection(), busy)
	span.SetAttributes(
		attribute.Int("segments.available", len(result.Available)),
		attribute.Int("segments.conflicted", len(result.Unavailable)),
	)

	rep := storage.Report{
		ProductionID: production,
		ActorID:      actorID,
		ResolvedAt:   now.UTC(),
		WindowStart:  window[0],
		WindowDays:   resolver.WindowDays,
		Result:       result,
	}
	if err := s.reports.Put(ctx, rep); err != nil {
		span.RecordError(err)
		return storage.Report{}, err
	}
	s.emit(ctx, outbox.EventConflictsResolved, actorID, rep)
	return rep, nil
}

func (s *Service) Report(ctx context.Context, production, actorID string) (storage.Report, error) {
	return s.reports.Get(ctx, production, actorID)
}

// emit queues an event. Failures are logged; the write they describe has already happened.
func (s *Service) emit(ctx context.Context, eventType, actorID string, payload any) {
	if s.events == nil {
		return
	}
	evt, err := outbox.NewEvent(eventType, actorID, payload)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Error("outbox enqueue failed", "event_type", eventType, "actor_id", actorID, "err", err)
	}
}
