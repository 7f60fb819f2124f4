package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/roster"
)

const (
	ActorsCollection  = "actors"
	BusyCollection    = "busy_intervals"
	ReportsCollection = "conflict_reports"
)

// Documents are keyed "<production>/<id>" so one store can serve every production.
func scopedKey(production, id string) string { return production + "/" + id }

func splitKey(key string) (production, id string, ok bool) {
	return strings.Cut(key, "/")
}

type Actors struct {
	docs Collections
}

func NewActors(docs Collections) *Actors { return &Actors{docs: docs} }

func (r *Actors) Get(ctx context.Context, production, id string) (roster.Actor, error) {
	var a roster.Actor
	err := r.docs.Get(ctx, ActorsCollection, scopedKey(production, id), &a)
	return a, err
}

func (r *Actors) Put(ctx context.Context, production string, a roster.Actor) error {
	if a.SelectedSegmentIDs == nil {
		a.SelectedSegmentIDs = []string{}
	}
	if a.Scenes == nil {
		a.Scenes = []string{}
	}
	return r.docs.Put(ctx, ActorsCollection, scopedKey(production, a.ID), a)
}

// List returns the production's actors ordered by id.
func (r *Actors) List(ctx context.Context, production string) ([]roster.Actor, error) {
	out := []roster.Actor{}
	prefix := production + "/"
	err := r.docs.List(ctx, ActorsCollection, func(key string, raw []byte) error {
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		var a roster.Actor
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// ActorRef names one actor across productions.
type ActorRef struct {
	ProductionID string
	ActorID      string
}

func (r *Actors) ListAll(ctx context.Context) ([]ActorRef, error) {
	var out []ActorRef
	err := r.docs.List(ctx, ActorsCollection, func(key string, _ []byte) error {
		if p, id, ok := splitKey(key); ok {
			out = append(out, ActorRef{ProductionID: p, ActorID: id})
		}
		return nil
	})
	return out, err
}

type busyDoc struct {
	Intervals  []conflicts.BusyInterval `json:"intervals"`
	ImportedAt time.Time                `json:"imported_at"`
}

type Busy struct {
	docs Collections
}

func NewBusy(docs Collections) *Busy { return &Busy{docs: docs} }

// Get returns the actor's imported busy intervals; an actor never imported has none.
func (r *Busy) Get(ctx context.Context, production, actorID string) ([]conflicts.BusyInterval, error) {
	var doc busyDoc
	err := r.docs.Get(ctx, BusyCollection, scopedKey(production, actorID), &doc)
	if errors.Is(err, ErrNotFound) {
		return []conflicts.BusyInterval{}, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Intervals == nil {
		doc.Intervals = []conflicts.BusyInterval{}
	}
	return doc.Intervals, nil
}

// Replace overwrites the actor's busy intervals with a fresh import.
func (r *Busy) Replace(ctx context.Context, production, actorID string, intervals []conflicts.BusyInterval, at time.Time) error {
	if intervals == nil {
		intervals = []conflicts.BusyInterval{}
	}
	return r.docs.Put(ctx, BusyCollection, scopedKey(production, actorID), busyDoc{Intervals: intervals, ImportedAt: at.UTC()})
}

// Report is the stored outcome of resolving one actor's selection.
type Report struct {
	ProductionID string           `json:"production_id"`
	ActorID      string           `json:"actor_id"`
	ResolvedAt   time.Time        `json:"resolved_at"`
	WindowStart  string           `json:"window_start"`
	WindowDays   int              `json:"window_days"`
	Result       conflicts.Result `json:"result"`
}

type Reports struct {
	docs Collections
}

func NewReports(docs Collections) *Reports { return &Reports{docs: docs} }

func (r *Reports) Get(ctx context.Context, production, actorID string) (Report, error) {
	var rep Report
	err := r.docs.Get(ctx, ReportsCollection, scopedKey(production, actorID), &rep)
	return rep, err
}

func (r *Reports) Put(ctx context.Context, rep Report) error {
	return r.docs.Put(ctx, ReportsCollection, scopedKey(rep.ProductionID, rep.ActorID), rep)
}
