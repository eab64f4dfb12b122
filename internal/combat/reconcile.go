package combat

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSnapThreshold is the position error beyond which a ship is snapped
// to the server position instead of being left to converge.
const DefaultSnapThreshold = 5.0

// Reconciler corrects local ship state against validator outcomes. It has a
// fast per-action path and a slow full-state path.
type Reconciler struct {
	ledger        *Ledger
	registry      ShipRegistry
	snapThreshold float64
	log           *logrus.Entry
}

func NewReconciler(ledger *Ledger, registry ShipRegistry, snapThreshold float64, log *logrus.Entry) *Reconciler {
	if snapThreshold <= 0 {
		snapThreshold = DefaultSnapThreshold
	}
	return &Reconciler{
		ledger:        ledger,
		registry:      registry,
		snapThreshold: snapThreshold,
		log:           log,
	}
}

// ApplyConfirmation confirms the action and, if its projectile already
// landed with a different damage, moves the target's health to the server
// result. If the projectile is still in flight, landing applies the server
// damage instead. A sinking the correction leaves with health is undone.
func (r *Reconciler) ApplyConfirmation(a *CombatAction, serverDamage int, now time.Time) error {
	if _, err := r.ledger.MarkConfirmed(a.id, serverDamage, now); err != nil {
		return err
	}
	if !a.visualEffectApplied || a.clientDamage == serverDamage {
		return nil
	}
	ship, ok := r.registry.Get(a.targetID)
	if !ok {
		return nil
	}

	delta := a.clientDamage - serverDamage
	before := ship.Health()
	after := clampHealth(before+delta, ship.MaxHealth())
	ship.SetHealth(after)
	if after == 0 && !ship.IsDestroyed() {
		ship.Destroy()
	}
	if after > 0 && a.sankTarget && ship.IsDestroyed() {
		ship.Refloat()
	}

	r.log.WithFields(logrus.Fields{
		"action_id":     a.id,
		"target_id":     a.targetID,
		"client_damage": a.clientDamage,
		"server_damage": serverDamage,
		"hp_before":     before,
		"hp_after":      after,
	}).Info("Damage corrected to server result.")
	return nil
}

// ApplyRejection rejects the action and undoes its landed damage, capped at
// full health, refloating the target if that landing sank it.
func (r *Reconciler) ApplyRejection(a *CombatAction, reason string, now time.Time) error {
	if _, err := r.ledger.MarkRejected(a.id, reason, now); err != nil {
		return err
	}
	if !a.visualEffectApplied || a.clientDamage == 0 {
		return nil
	}
	ship, ok := r.registry.Get(a.targetID)
	if !ok {
		return nil
	}

	before := ship.Health()
	after := clampHealth(before+a.clientDamage, ship.MaxHealth())
	ship.SetHealth(after)
	if after > 0 && a.sankTarget && ship.IsDestroyed() {
		ship.Refloat()
	}

	r.log.WithFields(logrus.Fields{
		"action_id": a.id,
		"target_id": a.targetID,
		"reason":    reason,
		"hp_before": before,
		"hp_after":  after,
	}).Info("Optimistic hit rolled back.")
	return nil
}

// ResolveLanding returns the damage a landing projectile must apply given
// what is known about its action right now.
func (r *Reconciler) ResolveLanding(a *CombatAction) int {
	switch a.status {
	case StatusConfirmed:
		return a.serverDamage
	case StatusRejected:
		return 0
	default:
		return a.clientDamage
	}
}

// SyncReport counts what a full-state pass changed.
type SyncReport struct {
	HealthFixed int
	Destroyed   int
	Snapped     int
	Spawned     int
	Respawned   int
	Removed     int
}

// Changed reports whether the pass touched anything.
func (s SyncReport) Changed() bool {
	return s != SyncReport{}
}

// ApplyAuthoritativeState overwrites local ships with the server snapshot.
// Ships missing locally are spawned; local ships the server does not know
// are removed, except the local player's own.
func (r *Reconciler) ApplyAuthoritativeState(state AuthoritativeState) SyncReport {
	var report SyncReport
	seen := make(map[string]struct{}, len(state.Ships))

	for _, s := range state.Ships {
		seen[s.ID] = struct{}{}

		ship, ok := r.registry.Get(s.ID)
		if !ok {
			if s.IsSunk {
				continue
			}
			r.registry.Spawn(s)
			report.Spawned++
			continue
		}

		if ship.IsDestroyed() && !s.IsSunk {
			r.registry.Remove(s.ID)
			r.registry.Spawn(s)
			report.Respawned++
			continue
		}

		if ship.Health() != s.Health {
			ship.SetHealth(s.Health)
			report.HealthFixed++
		}
		if s.IsSunk && !ship.IsDestroyed() {
			ship.Destroy()
			report.Destroyed++
		}
		if ship.Position().Distance(s.Position) > r.snapThreshold {
			ship.SetPosition(s.Position)
			report.Snapped++
		}
	}

	local := r.registry.LocalPlayerID()
	for _, ship := range r.registry.All() {
		id := ship.ID()
		if _, ok := seen[id]; ok || id == local {
			continue
		}
		r.registry.Remove(id)
		report.Removed++
	}

	if report.Changed() {
		r.log.WithFields(logrus.Fields{
			"health_fixed": report.HealthFixed,
			"destroyed":    report.Destroyed,
			"snapped":      report.Snapped,
			"spawned":      report.Spawned,
			"respawned":    report.Respawned,
			"removed":      report.Removed,
		}).Info("Full-state reconciliation applied.")
	}
	return report
}

func clampHealth(hp, max int) int {
	if hp < 0 {
		return 0
	}
	if hp > max {
		return max
	}
	return hp
}
