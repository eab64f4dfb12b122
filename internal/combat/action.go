package combat

import "time"

// ActionStatus is the lifecycle state of a CombatAction.
type ActionStatus int

const (
	StatusPending ActionStatus = iota
	StatusConfirmed
	StatusRejected
	StatusExpired
)

func (s ActionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s ActionStatus) Terminal() bool {
	return s != StatusPending
}

// CombatAction is one attempted attack, tracked from optimistic execution
// until the validator confirms or rejects it or it expires.
//
// The identity fields are fixed at construction. Status, server damage and
// the effect flag only change through the Ledger.
type CombatAction struct {
	id           int64
	createdAt    time.Time
	sourceID     string
	targetID     string
	clientDamage int
	seed         int64
	missChance   float64

	status              ActionStatus
	serverDamage        int
	hasServerDamage     bool
	visualEffectApplied bool
	sankTarget          bool
	rejectReason        string
	resolvedAt          time.Time
}

// NewCombatAction builds a pending action.
func NewCombatAction(id int64, createdAt time.Time, sourceID, targetID string, clientDamage int, seed int64, missChance float64) *CombatAction {
	return &CombatAction{
		id:           id,
		createdAt:    createdAt,
		sourceID:     sourceID,
		targetID:     targetID,
		clientDamage: clientDamage,
		seed:         seed,
		missChance:   missChance,
		status:       StatusPending,
	}
}

func (a *CombatAction) ID() int64            { return a.id }
func (a *CombatAction) CreatedAt() time.Time { return a.createdAt }
func (a *CombatAction) SourceID() string     { return a.sourceID }
func (a *CombatAction) TargetID() string     { return a.targetID }
func (a *CombatAction) ClientDamage() int    { return a.clientDamage }
func (a *CombatAction) Seed() int64          { return a.seed }
func (a *CombatAction) MissChance() float64  { return a.missChance }
func (a *CombatAction) Status() ActionStatus { return a.status }
func (a *CombatAction) RejectReason() string { return a.rejectReason }
func (a *CombatAction) ResolvedAt() time.Time {
	return a.resolvedAt
}

// ServerDamage returns the validator's damage and whether it is known.
func (a *CombatAction) ServerDamage() (int, bool) {
	return a.serverDamage, a.hasServerDamage
}

// VisualEffectApplied reports whether the projectile already landed.
func (a *CombatAction) VisualEffectApplied() bool {
	return a.visualEffectApplied
}

// SankTarget reports whether the landing of this action sank its target.
func (a *CombatAction) SankTarget() bool {
	return a.sankTarget
}
