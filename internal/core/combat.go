package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"highseas/internal/combat"
	"highseas/internal/fleet"
	"highseas/internal/mq"
	"highseas/internal/world"
	"highseas/pkg/seededrand"
	pb "highseas/proto"
)

// ProcessCombatAction validates and resolves one shot on the room goroutine.
func (r *Room) ProcessCombatAction(ctx context.Context, req combat.ValidationRequest) (combat.ValidationResponse, error) {
	var resp combat.ValidationResponse
	err := r.do(ctx, func() { resp = r.resolveCombatAction(req) })
	return resp, err
}

// AuthoritativeState returns every ship in the room.
func (r *Room) AuthoritativeState(ctx context.Context) (combat.AuthoritativeState, error) {
	var st combat.AuthoritativeState
	err := r.do(ctx, func() { st.Ships = r.snapshot() })
	return st, err
}

func reject(req combat.ValidationRequest, reason string) combat.ValidationResponse {
	return combat.ValidationResponse{ActionID: req.ActionID, Error: reason}
}

// resolveCombatAction must run on the room goroutine.
func (r *Room) resolveCombatAction(req combat.ValidationRequest) combat.ValidationResponse {
	now := r.now()
	log := r.log.WithFields(logrus.Fields{
		"action_id": req.ActionID,
		"source":    req.SourceID,
		"target":    req.TargetID,
	})

	src, ok := r.Players[req.SourceID]
	if !ok || src.Ship.IsDestroyed() {
		log.Debug("Rejected: invalid source")
		return reject(req, combat.ReasonInvalidSource)
	}
	tgt, ok := r.Players[req.TargetID]
	if !ok || tgt.Ship.IsDestroyed() || req.TargetID == req.SourceID {
		log.Debug("Rejected: invalid target")
		return reject(req, combat.ReasonInvalidTarget)
	}

	srcPos, tgtPos := src.Ship.Position(), tgt.Ship.Position()
	if r.rules.Zones.IsInSafeZone(srcPos.X, srcPos.Z) || r.rules.Zones.IsInSafeZone(tgtPos.X, tgtPos.Z) {
		log.Debug("Rejected: safe zone")
		return reject(req, combat.ReasonSafeZone)
	}

	maxRange := src.Ship.CannonRange() * (1 + r.rules.RangeTolerance)
	if dist := srcPos.DistanceXZ(tgtPos); dist > maxRange {
		log.WithField("distance", dist).Debug("Rejected: out of range")
		return reject(req, combat.ReasonOutOfRange)
	}

	if remaining := src.CooldownRemaining(now); remaining > r.rules.CooldownTolerance {
		log.WithField("remaining", remaining).Debug("Rejected: cooldown")
		resp := reject(req, combat.ReasonCooldown)
		resp.CooldownRemaining = &remaining
		return resp
	}

	src.LastFired = now
	src.HasFired = true

	miss := max(req.MissChance, r.rules.MissChance)
	lo, hi := src.Ship.DamageRange()
	out := seededrand.Roll(req.Seed, miss, lo, hi)
	if out.Hit {
		tgt.Ship.TakeDamage(out.Damage)
	}

	damage, health := out.Damage, tgt.Ship.Health()
	sunk := tgt.Ship.IsDestroyed()
	log.WithFields(logrus.Fields{"damage": damage, "health": health, "sunk": sunk}).Info("Shot confirmed")

	if out.Hit {
		r.persist(tgt)
		r.BroadcastEvent(pb.EventHit, tgt.ShipID, fmt.Sprintf("%s hit for %d", src.ShipID, damage))
		if sunk {
			r.BroadcastEvent(pb.EventShipSunk, tgt.ShipID, src.ShipID)
		}
		r.recordHit(mq.CombatRecord{
			RoomID:    r.ID,
			ActionID:  req.ActionID,
			SourceID:  src.ShipID,
			TargetID:  tgt.ShipID,
			Damage:    damage,
			NewHealth: health,
			Sunk:      sunk,
			Timestamp: now.UnixMilli(),
		})
	}

	return combat.ValidationResponse{
		Success:   true,
		ActionID:  req.ActionID,
		Damage:    &damage,
		NewHealth: &health,
		IsSunk:    sunk,
	}
}

func (r *Room) recordHit(rec mq.CombatRecord) {
	if r.publisher == nil {
		return
	}
	go func() {
		if err := r.publisher.PublishCombatRecord(rec); err != nil {
			r.log.WithError(err).Warn("Failed to publish combat record")
		}
	}()
}

func shipState(s *fleet.Ship) world.ShipState {
	return world.ShipState{
		ID:        s.ID(),
		Type:      s.Class().Name,
		Position:  s.Position(),
		Health:    s.Health(),
		MaxHealth: s.MaxHealth(),
		IsSunk:    s.IsDestroyed(),
	}
}
