package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/callboard/libs/auth"
	"github.com/md-rashed-zaman/callboard/libs/httpx"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/roster"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/segments"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

// DefaultProduction is used when requests are not authenticated and name no production.
const DefaultProduction = "default"

type Handler struct {
	svc    *availability.Service
	logger *slog.Logger
}

func New(svc *availability.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the API under /api/v1.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/segments", h.Segments)
	mux.HandleFunc("/api/v1/ranges/expand", h.ExpandRange)
	mux.HandleFunc("/api/v1/segments/compact", h.CompactSegments)
	mux.HandleFunc("/api/v1/actors", h.Actors)
	mux.HandleFunc("/api/v1/actors/availability", h.Availability)
	mux.HandleFunc("/api/v1/actors/busy", h.Busy)
	mux.HandleFunc("/api/v1/actors/conflicts", h.Conflicts)
}

func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	week := h.svc.Week()
	segs := week.Segments()
	if day := strings.TrimSpace(r.URL.Query().Get("day")); day != "" {
		var err error
		if segs, err = week.DaySegments(segments.Day(day)); err != nil {
			h.fail(w, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"segments": segs})
}

func (h *Handler) ExpandRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in segments.RangeInput
	if !decode(w, r, &in) {
		return
	}
	day, err := h.svc.Week().Validate(in.Day)
	if err != nil {
		h.fail(w, err)
		return
	}
	in.Day = day
	rng, err := in.Range()
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"range":    rng,
		"segments": segments.Expand(rng),
	})
}

type segmentsRequest struct {
	Segments segments.RefList `json:"segments"`
}

func (h *Handler) CompactSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req segmentsRequest
	if !decode(w, r, &req) {
		return
	}
	segs, err := segments.Resolve(req.Segments)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ranges": segments.Compact(segs)})
}

type actorRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Scenes []string `json:"scenes"`
}

func (h *Handler) Actors(w http.ResponseWriter, r *http.Request) {
	production := productionID(r)
	switch r.Method {
	case http.MethodGet:
		actors, err := h.svc.Actors(r.Context(), production)
		if err != nil {
			h.fail(w, err)
			return
		}
		q := r.URL.Query()
		if scene := strings.TrimSpace(q.Get("scene_id")); scene != "" {
			actors = roster.InScene(actors, scene)
		}
		if id := strings.TrimSpace(q.Get("segment_id")); id != "" {
			actors = roster.AvailableFor(actors, id)
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"actors": actors})
	case http.MethodPut:
		var req actorRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := h.svc.SaveActor(r.Context(), production, roster.Actor{
			ID:     req.ID,
			Name:   strings.TrimSpace(req.Name),
			Scenes: req.Scenes,
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, a)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	production := productionID(r)
	switch r.Method {
	case http.MethodGet:
		ranges, err := h.svc.Selection(r.Context(), production, actorID)
		if err != nil {
			h.fail(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"actor_id": actorID, "ranges": ranges})
	case http.MethodPut:
		var req segmentsRequest
		if !decode(w, r, &req) {
			return
		}
		ranges, err := h.svc.SetSelection(r.Context(), production, actorID, req.Segments)
		if err != nil {
			h.fail(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"actor_id": actorID, "ranges": ranges})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type busyRequest struct {
	Events []conflicts.Event `json:"events"`
}

func (h *Handler) Busy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req busyRequest
	if !decode(w, r, &req) {
		return
	}
	for _, ev := range req.Events {
		if !ev.AllDay && !ev.End.After(ev.Start) {
			http.Error(w, "event end must be after start", http.StatusBadRequest)
			return
		}
	}
	busy, err := h.svc.ImportBusy(r.Context(), productionID(r), actorID, req.Events)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"actor_id": actorID, "busy": busy})
}

type conflictsResponse struct {
	storage.Report
	AvailableRanges   []segments.TimeslotRange `json:"available_ranges"`
	UnavailableRanges []segments.TimeslotRange `json:"unavailable_ranges"`
}

// Conflicts resolves on POST and returns the last stored report on GET.
func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var (
		rep storage.Report
		err error
	)
	switch r.Method {
	case http.MethodPost:
		rep, err = h.svc.Resolve(r.Context(), productionID(r), actorID)
	case http.MethodGet:
		rep, err = h.svc.Report(r.Context(), productionID(r), actorID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, conflictsResponse{
		Report:            rep,
		AvailableRanges:   rep.Result.AvailableRanges(),
		UnavailableRanges: rep.Result.UnavailableRanges(),
	})
}

// productionID prefers the verified token claim, then the header.
func productionID(r *http.Request) string {
	if c, ok := auth.ClaimsFromContext(r.Context()); ok && c.ProductionID != "" {
		return c.ProductionID
	}
	if p := strings.TrimSpace(r.Header.Get(auth.ProductionHeader)); p != "" && !strings.Contains(p, "/") {
		return p
	}
	return DefaultProduction
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("actor_id"))
	if id == "" {
		http.Error(w, "actor_id is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, segments.ErrInvalidID),
		errors.Is(err, segments.ErrInvalidRange),
		errors.Is(err, segments.ErrUnknownDay),
		errors.Is(err, timeofday.ErrInvalidFormat),
		errors.Is(err, availability.ErrOutsideGrid),
		errors.Is(err, availability.ErrInvalidActor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
