package combat

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"highseas/internal/world"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeShip struct {
	id        string
	pos       world.Vec3
	hp, maxHP int
	rng       float64
	cooldown  time.Duration
	minDmg    int
	maxDmg    int
	destroyed bool
}

func newFakeShip(id string, x float64) *fakeShip {
	return &fakeShip{
		id:       id,
		pos:      world.Vec3{X: x},
		hp:       100,
		maxHP:    100,
		rng:      100,
		cooldown: 2 * time.Second,
		minDmg:   8,
		maxDmg:   12,
	}
}

func (s *fakeShip) ID() string                    { return s.id }
func (s *fakeShip) Position() world.Vec3          { return s.pos }
func (s *fakeShip) Forward() world.Vec3           { return world.Vec3{Z: 1} }
func (s *fakeShip) Health() int                   { return s.hp }
func (s *fakeShip) MaxHealth() int                { return s.maxHP }
func (s *fakeShip) SetHealth(hp int)              { s.hp = hp }
func (s *fakeShip) SetPosition(p world.Vec3)      { s.pos = p }
func (s *fakeShip) CannonRange() float64          { return s.rng }
func (s *fakeShip) CannonCooldown() time.Duration { return s.cooldown }
func (s *fakeShip) DamageRange() (int, int)       { return s.minDmg, s.maxDmg }
func (s *fakeShip) Destroy()                      { s.destroyed = true }
func (s *fakeShip) IsDestroyed() bool             { return s.destroyed }
func (s *fakeShip) Refloat()                      { s.destroyed = false }

func (s *fakeShip) TakeDamage(amount int) {
	s.hp -= amount
	if s.hp < 0 {
		s.hp = 0
	}
}

type fakeRegistry struct {
	ships   map[string]*fakeShip
	localID string
}

func newFakeRegistry(localID string, ships ...*fakeShip) *fakeRegistry {
	r := &fakeRegistry{ships: make(map[string]*fakeShip), localID: localID}
	for _, s := range ships {
		r.ships[s.id] = s
	}
	return r
}

func (r *fakeRegistry) Get(id string) (Ship, bool) {
	s, ok := r.ships[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (r *fakeRegistry) All() []Ship {
	ids := make([]string, 0, len(r.ships))
	for id := range r.ships {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Ship, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.ships[id])
	}
	return out
}

func (r *fakeRegistry) Spawn(st ShipState) Ship {
	s := &fakeShip{id: st.ID, pos: st.Position, hp: st.Health, maxHP: st.MaxHealth, destroyed: st.IsSunk}
	r.ships[st.ID] = s
	return s
}

func (r *fakeRegistry) Remove(id string)      { delete(r.ships, id) }
func (r *fakeRegistry) LocalPlayerID() string { return r.localID }

type noZones struct{}

func (noZones) IsInSafeZone(x, z float64) bool { return false }

type recordingIndicator struct {
	calls []string
}

func (r *recordingIndicator) SetTargeted(id string, on bool) {
	if on {
		r.calls = append(r.calls, "+"+id)
	} else {
		r.calls = append(r.calls, "-"+id)
	}
}

// fakeValidator records requests and answers with a scripted function.
type fakeValidator struct {
	mu       sync.Mutex
	requests []ValidationRequest
	respond  func(ValidationRequest) (ValidationResponse, error)
	state    AuthoritativeState
	stateErr error
	syncs    int
}

func (v *fakeValidator) ProcessCombatAction(ctx context.Context, req ValidationRequest) (ValidationResponse, error) {
	v.mu.Lock()
	v.requests = append(v.requests, req)
	respond := v.respond
	v.mu.Unlock()
	if respond == nil {
		return ValidationResponse{Success: true, ActionID: req.ActionID, Damage: intPtr(req.Damage)}, nil
	}
	return respond(req)
}

func (v *fakeValidator) GetAuthoritativeState(ctx context.Context) (AuthoritativeState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.syncs++
	return v.state, v.stateErr
}

func intPtr(v int) *int { return &v }

func durPtr(d time.Duration) *time.Duration { return &d }

func fixedSeed(seed int64) func() int64 {
	return func() int64 { return seed }
}
