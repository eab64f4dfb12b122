package fleet

import (
	"sort"

	"highseas/internal/combat"
	"highseas/internal/world"
)

// Registry holds every ship the client knows about.
type Registry struct {
	ships   map[string]*Ship
	localID string
}

func NewRegistry(localID string) *Registry {
	return &Registry{ships: make(map[string]*Ship), localID: localID}
}

func (r *Registry) LocalPlayerID() string { return r.localID }

func (r *Registry) Get(id string) (combat.Ship, bool) {
	s, ok := r.ships[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Ship returns the concrete record.
func (r *Registry) Ship(id string) (*Ship, bool) {
	s, ok := r.ships[id]
	return s, ok
}

// All returns ships ordered by id.
func (r *Registry) All() []combat.Ship {
	ids := make([]string, 0, len(r.ships))
	for id := range r.ships {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]combat.Ship, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.ships[id])
	}
	return out
}

// Add inserts or replaces a ship.
func (r *Registry) Add(s *Ship) {
	r.ships[s.id] = s
}

// Spawn creates a ship from a server record.
func (r *Registry) Spawn(state world.ShipState) combat.Ship {
	s := FromState(state)
	r.ships[s.id] = s
	return s
}

func (r *Registry) Remove(id string) {
	delete(r.ships, id)
}

func (r *Registry) Len() int { return len(r.ships) }

// SetTargeted implements combat.TargetIndicator by flagging the ship record.
func (r *Registry) SetTargeted(shipID string, targeted bool) {
	if s, ok := r.ships[shipID]; ok {
		s.targeted = targeted
	}
}

// Nearest returns the closest live ship other than from, or nil.
func (r *Registry) Nearest(from *Ship) *Ship {
	var best *Ship
	bestDist := 0.0
	for _, s := range r.ships {
		if s == from || s.destroyed {
			continue
		}
		d := s.position.DistanceXZ(from.position)
		if best == nil || d < bestDist || (d == bestDist && s.id < best.id) {
			best, bestDist = s, d
		}
	}
	return best
}
