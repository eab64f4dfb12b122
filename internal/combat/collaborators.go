package combat

import (
	"context"
	"time"

	"highseas/internal/world"
)

// Ship is the mutable ship record the combat core reads and writes.
type Ship interface {
	ID() string
	Position() world.Vec3
	Forward() world.Vec3
	Health() int
	MaxHealth() int
	SetHealth(hp int)
	SetPosition(p world.Vec3)
	CannonRange() float64
	CannonCooldown() time.Duration
	DamageRange() (min, max int)
	TakeDamage(amount int)
	Destroy()
	IsDestroyed() bool
	// Refloat clears the destroyed flag after a sinking is rolled back.
	Refloat()
}

// ShipRegistry resolves ships by id and lets full-state reconciliation
// spawn and remove them.
type ShipRegistry interface {
	Get(id string) (Ship, bool)
	All() []Ship
	Spawn(state ShipState) Ship
	Remove(id string)
	LocalPlayerID() string
}

// ZoneOracle answers whether a point on the sea plane is protected.
type ZoneOracle interface {
	IsInSafeZone(x, z float64) bool
}

// TargetIndicator draws or clears the "targeted" marker on a ship.
type TargetIndicator interface {
	SetTargeted(shipID string, targeted bool)
}

// Notifier surfaces short messages to the player.
type Notifier interface {
	Notify(message string)
}

// ShotBroadcaster fans a fired shot out to observers. Fire and forget.
type ShotBroadcaster interface {
	BroadcastShot(ctx context.Context, shot Shot) error
}

// Shot is what observers learn about a fired cannonball.
type Shot struct {
	ActionID int64
	SourceID string
	TargetID string
	Hit      bool
	FiredAt  time.Time
}

// RemoteValidator is the authoritative backend.
type RemoteValidator interface {
	ProcessCombatAction(ctx context.Context, req ValidationRequest) (ValidationResponse, error)
	GetAuthoritativeState(ctx context.Context) (AuthoritativeState, error)
}

// ValidationRequest is sent once per fire command.
type ValidationRequest struct {
	ActionID   int64
	SourceID   string
	TargetID   string
	Damage     int
	Seed       int64
	MissChance float64
	Timestamp  time.Time
}

// Rejection reasons reported by the validator.
const (
	ReasonCooldown      = "cooldown"
	ReasonOutOfRange    = "out_of_range"
	ReasonSafeZone      = "safe_zone"
	ReasonInvalidTarget = "invalid_target"
	ReasonInvalidSource = "invalid_source"
)

// ValidationResponse mirrors the validator reply. Optional fields are
// pointers; ActionID is zero when the validator did not echo it.
type ValidationResponse struct {
	Success           bool
	ActionID          int64
	Damage            *int
	NewHealth         *int
	IsSunk            bool
	Error             string
	CooldownRemaining *time.Duration
}

// ShipState is one ship as the validator sees it.
type ShipState = world.ShipState

// AuthoritativeState is a full snapshot from the validator.
type AuthoritativeState struct {
	Ships []ShipState
}
