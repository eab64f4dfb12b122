// Package fleet holds ship records and the client's registry of them. A
// record is owned by whichever loop created it: the client tick loop or a
// server room.
package fleet

import (
	"time"

	"highseas/internal/world"
)

// Ship is a mutable ship record.
type Ship struct {
	id        string
	class     world.ShipClass
	position  world.Vec3
	forward   world.Vec3
	health    int
	destroyed bool
	targeted  bool
}

func NewShip(id string, class world.ShipClass, pos world.Vec3) *Ship {
	return &Ship{
		id:       id,
		class:    class,
		position: pos,
		forward:  world.Vec3{Z: 1},
		health:   class.MaxHealth,
	}
}

// FromState rebuilds a ship from a stored or server record.
func FromState(state world.ShipState) *Ship {
	s := NewShip(state.ID, world.LookupClass(state.Type), state.Position)
	if state.MaxHealth > 0 {
		s.class.MaxHealth = state.MaxHealth
	}
	s.SetHealth(state.Health)
	if state.IsSunk {
		s.Destroy()
	}
	return s
}

func (s *Ship) ID() string                    { return s.id }
func (s *Ship) Class() world.ShipClass        { return s.class }
func (s *Ship) Position() world.Vec3          { return s.position }
func (s *Ship) Forward() world.Vec3           { return s.forward }
func (s *Ship) Health() int                   { return s.health }
func (s *Ship) MaxHealth() int                { return s.class.MaxHealth }
func (s *Ship) CannonRange() float64          { return s.class.CannonRange }
func (s *Ship) CannonCooldown() time.Duration { return s.class.CannonCooldown }
func (s *Ship) IsDestroyed() bool             { return s.destroyed }
func (s *Ship) Targeted() bool                { return s.targeted }

func (s *Ship) DamageRange() (int, int) {
	return s.class.MinDamage, s.class.MaxDamage
}

func (s *Ship) SetPosition(p world.Vec3) { s.position = p }

// SetForward sets the heading; zero vectors are ignored.
func (s *Ship) SetForward(f world.Vec3) {
	if n := f.Normalize(); n != (world.Vec3{}) {
		s.forward = n
	}
}

// SetHealth overwrites health, clamped to [0, MaxHealth].
func (s *Ship) SetHealth(hp int) {
	switch {
	case hp < 0:
		hp = 0
	case hp > s.class.MaxHealth:
		hp = s.class.MaxHealth
	}
	s.health = hp
}

// TakeDamage lowers health and sinks the ship at zero.
func (s *Ship) TakeDamage(amount int) {
	if s.destroyed || amount <= 0 {
		return
	}
	s.SetHealth(s.health - amount)
	if s.health == 0 {
		s.destroyed = true
	}
}

func (s *Ship) Destroy() {
	s.destroyed = true
}

func (s *Ship) Refloat() {
	s.destroyed = false
}

// Sail moves the ship along its heading.
func (s *Ship) Sail(dt time.Duration) {
	if s.destroyed {
		return
	}
	s.position = s.position.Add(s.forward.Scale(s.class.Speed * dt.Seconds()))
}
