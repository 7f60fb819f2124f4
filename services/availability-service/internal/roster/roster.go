// Package roster answers membership questions over actors. Every function is a pure,
// order-preserving filter; an id nobody matches yields an empty slice.
package roster

import (
	"slices"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/segments"
)

type Actor struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	SelectedSegmentIDs []string `json:"selected_segment_ids"`
	Scenes             []string `json:"scenes"`
}

func (a Actor) HasSegment(id string) bool {
	return slices.Contains(a.SelectedSegmentIDs, id)
}

func (a Actor) InScene(sceneID string) bool {
	return slices.Contains(a.Scenes, sceneID)
}

// Selection resolves the actor's selected ids. Ids that no longer parse are skipped.
func (a Actor) Selection() []segments.Segment {
	out := make([]segments.Segment, 0, len(a.SelectedSegmentIDs))
	for _, id := range a.SelectedSegmentIDs {
		s, err := segments.ParseSegmentID(id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AvailableFor returns actors that selected the given segment id. A range id matches
// actors who selected every segment in that range.
func AvailableFor(actors []Actor, id string) []Actor {
	out := []Actor{}
	if len(actors) == 0 {
		return out
	}
	var required []string
	if r, err := segments.ParseRangeID(id); err == nil {
		required = segments.IDs(segments.Expand(r))
	}
	for _, a := range actors {
		if a.HasSegment(id) || coversAll(a, required) {
			out = append(out, a)
		}
	}
	return out
}

func coversAll(a Actor, ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !a.HasSegment(id) {
			return false
		}
	}
	return true
}

// InScene returns actors cast in the scene.
func InScene(actors []Actor, sceneID string) []Actor {
	out := []Actor{}
	for _, a := range actors {
		if a.InScene(sceneID) {
			out = append(out, a)
		}
	}
	return out
}

// AvailableInScene narrows a scene's cast to those free for the segment or range id.
func AvailableInScene(actors []Actor, sceneID, id string) []Actor {
	return AvailableFor(InScene(actors, sceneID), id)
}
