package combat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"highseas/pkg/seededrand"
)

// Options tunes the orchestrator. Zero durations fall back to the defaults,
// except SyncInterval where zero disables periodic full-state sync.
type Options struct {
	LocalShipID       string
	MissChance        float64
	ProjectileSpeed   float64
	SafetyBuffer      time.Duration
	ActionTimeout     time.Duration
	PruneGrace        time.Duration
	SyncInterval      time.Duration
	SnapThreshold     float64
	StrictCorrelation bool
}

func DefaultOptions() Options {
	return Options{
		MissChance:      0.1,
		ProjectileSpeed: 60,
		SafetyBuffer:    DefaultSafetyBuffer,
		ActionTimeout:   DefaultActionTimeout,
		PruneGrace:      DefaultPruneGrace,
		SyncInterval:    10 * time.Second,
		SnapThreshold:   DefaultSnapThreshold,
	}
}

// Deps are the orchestrator's collaborators. Validator, Registry and Zones
// are required; the rest may be nil.
type Deps struct {
	Validator   RemoteValidator
	Registry    ShipRegistry
	Zones       ZoneOracle
	Broadcaster ShotBroadcaster
	Notifier    Notifier
	Indicator   TargetIndicator
	Seeds       func() int64
	Log         *logrus.Entry
}

// Orchestrator turns fire commands into optimistic shots, tracks them in the
// ledger and folds validator responses back in.
//
// Only Tick, Fire and the target methods touch game state, and they must be
// called from one goroutine. Validator calls run on their own goroutines and
// hand their results back through the mailbox, which Tick drains.
type Orchestrator struct {
	opts Options

	validator   RemoteValidator
	registry    ShipRegistry
	zones       ZoneOracle
	broadcaster ShotBroadcaster
	notifier    Notifier
	seeds       func() int64
	log         *logrus.Entry

	ledger     *Ledger
	reconciler *Reconciler
	targets    *TargetManager
	cooldowns  map[string]*CooldownClock
	flight     flight

	mailbox      mailbox
	lastSync     time.Time
	syncInFlight bool
	wg           sync.WaitGroup
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.SafetyBuffer == 0 {
		opts.SafetyBuffer = def.SafetyBuffer
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = def.ActionTimeout
	}
	if opts.PruneGrace == 0 {
		opts.PruneGrace = def.PruneGrace
	}
	if opts.SnapThreshold == 0 {
		opts.SnapThreshold = def.SnapThreshold
	}
	if deps.Seeds == nil {
		deps.Seeds = seededrand.NewSeed
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	log := deps.Log.WithField("component", "combat_orchestrator")

	ledger := NewLedger()
	return &Orchestrator{
		opts:        opts,
		validator:   deps.Validator,
		registry:    deps.Registry,
		zones:       deps.Zones,
		broadcaster: deps.Broadcaster,
		notifier:    deps.Notifier,
		seeds:       deps.Seeds,
		log:         log,
		ledger:      ledger,
		reconciler:  NewReconciler(ledger, deps.Registry, opts.SnapThreshold, deps.Log.WithField("component", "reconciler")),
		targets:     NewTargetManager(deps.Indicator),
		cooldowns:   make(map[string]*CooldownClock),
	}
}

func (o *Orchestrator) Ledger() *Ledger         { return o.ledger }
func (o *Orchestrator) Targets() *TargetManager { return o.targets }
func (o *Orchestrator) LocalShipID() string     { return o.opts.LocalShipID }

// Projectiles returns the cannonballs currently in the air.
func (o *Orchestrator) Projectiles(now time.Time) []ProjectileView {
	return o.flight.views(now)
}

// Cooldown returns the clock for a ship, creating it on first use.
func (o *Orchestrator) Cooldown(ship Ship) *CooldownClock {
	c, ok := o.cooldowns[ship.ID()]
	if !ok {
		c = NewCooldownClock(ship.CannonCooldown(), o.opts.SafetyBuffer)
		o.cooldowns[ship.ID()] = c
	}
	return c
}

// SelectTarget targets the ship with the given id; "" clears the target.
func (o *Orchestrator) SelectTarget(id string) error {
	if id == "" {
		o.targets.ClearTarget()
		return nil
	}
	ship, ok := o.registry.Get(id)
	if !ok || ship.IsDestroyed() || id == o.opts.LocalShipID {
		return fmt.Errorf("select target %s: %w", id, ErrNoTarget)
	}
	o.targets.SetTarget(ship)
	return nil
}

// OnIncomingFire auto-targets an attacker that shot at the local ship.
func (o *Orchestrator) OnIncomingFire(attackerID string) bool {
	if attackerID == o.opts.LocalShipID {
		return false
	}
	attacker, ok := o.registry.Get(attackerID)
	if !ok {
		return false
	}
	return o.targets.AutoTarget(attacker)
}

// Fire runs one fire command: checks preconditions, rolls the shot,
// launches the projectile, records the action and dispatches validation.
// On a precondition failure it returns the matching error and records nothing.
func (o *Orchestrator) Fire(ctx context.Context, now time.Time) (*CombatAction, error) {
	source, ok := o.registry.Get(o.opts.LocalShipID)
	if !ok || source.IsDestroyed() {
		return nil, ErrNoSourceShip
	}
	target := o.targets.Current()
	if target == nil || target.IsDestroyed() || target.ID() == source.ID() {
		return nil, ErrNoTarget
	}

	sp, tp := source.Position(), target.Position()
	if o.zones.IsInSafeZone(sp.X, sp.Z) || o.zones.IsInSafeZone(tp.X, tp.Z) {
		o.notify("Cannons are not allowed in a safe harbour")
		return nil, ErrSafeZone
	}
	distance := sp.DistanceXZ(tp)
	if distance > source.CannonRange() {
		o.notify("Target is out of range")
		return nil, ErrOutOfRange
	}
	clock := o.Cooldown(source)
	if !clock.CanFire(now) {
		o.notify(fmt.Sprintf("Reloading: %.1fs", clock.Remaining(now).Seconds()))
		return nil, ErrOnCooldown
	}

	seed := o.seeds()
	minDmg, maxDmg := source.DamageRange()
	outcome := seededrand.Roll(seed, o.opts.MissChance, minDmg, maxDmg)

	action := NewCombatAction(o.ledger.NextID(), now, source.ID(), target.ID(), outcome.Damage, seed, o.opts.MissChance)
	if err := o.ledger.Record(action); err != nil {
		return nil, err
	}
	clock.RecordLocalFire(now)

	o.flight.launch(&projectile{
		actionID:   action.id,
		sourceID:   source.ID(),
		targetID:   target.ID(),
		origin:     sp,
		aim:        tp,
		launchedAt: now,
		landsAt:    now.Add(flightTime(distance, o.opts.ProjectileSpeed)),
	})

	o.log.WithFields(logrus.Fields{
		"action_id": action.id,
		"source_id": action.sourceID,
		"target_id": action.targetID,
		"seed":      seed,
		"hit":       outcome.Hit,
		"damage":    outcome.Damage,
		"distance":  distance,
	}).Debug("Cannon fired.")

	o.broadcast(ctx, Shot{
		ActionID: action.id,
		SourceID: action.sourceID,
		TargetID: action.targetID,
		Hit:      outcome.Hit,
		FiredAt:  now,
	})
	o.dispatch(ctx, ValidationRequest{
		ActionID:   action.id,
		SourceID:   action.sourceID,
		TargetID:   action.targetID,
		Damage:     action.clientDamage,
		Seed:       seed,
		MissChance: o.opts.MissChance,
		Timestamp:  now,
	})
	return action, nil
}

// Tick advances the combat state to now. It never returns an error: every
// failure is logged and left for the next full-state sync to correct.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	for _, msg := range o.mailbox.drain() {
		switch m := msg.(type) {
		case validationResult:
			o.handleValidation(m, now)
		case syncResult:
			o.handleSync(m)
		}
	}

	for _, p := range o.flight.landed(now) {
		o.land(p)
	}

	o.targets.Update()

	for _, a := range o.ledger.SweepExpired(now, o.opts.ActionTimeout) {
		o.log.WithFields(logrus.Fields{
			"action_id": a.id,
			"target_id": a.targetID,
			"age":       now.Sub(a.createdAt).String(),
		}).Warn("Action expired without a validator response; keeping optimistic result.")
	}
	if n := o.ledger.Prune(now.Add(-o.opts.PruneGrace)); n > 0 {
		o.log.WithField("pruned", n).Debug("Pruned resolved actions.")
	}

	if o.opts.SyncInterval > 0 && !o.syncInFlight &&
		(o.lastSync.IsZero() || now.Sub(o.lastSync) >= o.opts.SyncInterval) {
		o.requestSync(ctx, now)
	}
}

// SyncNow schedules a full-state sync regardless of the interval. The result
// is applied on a later Tick.
func (o *Orchestrator) SyncNow(ctx context.Context, now time.Time) {
	if !o.syncInFlight {
		o.requestSync(ctx, now)
	}
}

// Wait blocks until every outstanding validator call has posted its result.
// The results are applied by the next Tick.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close waits for outstanding validator calls.
func (o *Orchestrator) Close() {
	o.Wait()
}

func (o *Orchestrator) land(p *projectile) {
	a, ok := o.ledger.Get(p.actionID)
	if !ok {
		return
	}
	ship, ok := o.registry.Get(p.targetID)
	if !ok || ship.IsDestroyed() {
		return
	}

	damage := o.reconciler.ResolveLanding(a)
	if damage > 0 {
		ship.TakeDamage(damage)
		if ship.Health() == 0 && !ship.IsDestroyed() {
			ship.Destroy()
		}
	}
	_ = o.ledger.MarkEffectApplied(a.id, ship.IsDestroyed())

	o.log.WithFields(logrus.Fields{
		"action_id": a.id,
		"target_id": a.targetID,
		"status":    a.status.String(),
		"damage":    damage,
		"hp_after":  ship.Health(),
	}).Debug("Projectile landed.")
}

func (o *Orchestrator) handleValidation(res validationResult, now time.Time) {
	entry := o.log.WithFields(logrus.Fields{
		"request_action_id": res.req.ActionID,
		"target_id":         res.req.TargetID,
	})
	if res.err != nil {
		entry.WithError(res.err).Warn("Validator unreachable; optimistic result stands.")
		return
	}
	resp := res.resp

	// A cooldown rejection improves timing even if it cannot be correlated.
	if source, ok := o.registry.Get(res.req.SourceID); ok && !resp.Success &&
		resp.Error == ReasonCooldown && resp.CooldownRemaining != nil {
		o.Cooldown(source).ReconcileFromRejection(now, *resp.CooldownRemaining)
	}

	action := o.correlate(res)
	if action == nil {
		entry.WithFields(logrus.Fields{
			"response_action_id": resp.ActionID,
			"success":            resp.Success,
		}).Warn("Validator response matched no pending action; discarded.")
		return
	}
	entry = entry.WithField("action_id", action.id)
	defer o.retarget(action)

	if resp.Success {
		serverDamage := action.clientDamage
		if resp.Damage != nil {
			serverDamage = *resp.Damage
		}
		if err := o.reconciler.ApplyConfirmation(action, serverDamage, now); err != nil {
			entry.WithError(err).Warn("Confirmation not applied.")
			return
		}
		if source, ok := o.registry.Get(action.sourceID); ok {
			o.Cooldown(source).ReconcileFromConfirmation(action.createdAt)
		}
		if resp.IsSunk && action.visualEffectApplied {
			if ship, ok := o.registry.Get(action.targetID); ok && !ship.IsDestroyed() {
				ship.SetHealth(0)
				ship.Destroy()
			}
		}
		return
	}

	if err := o.reconciler.ApplyRejection(action, resp.Error, now); err != nil {
		entry.WithError(err).Warn("Rejection not applied.")
		return
	}
	entry.WithField("reason", resp.Error).Info("Shot rejected by validator.")
}

// retarget reselects a ship the local player sank optimistically once a
// correction has put it back afloat, so the player can keep firing at it.
func (o *Orchestrator) retarget(a *CombatAction) {
	if !a.sankTarget || a.sourceID != o.opts.LocalShipID {
		return
	}
	ship, ok := o.registry.Get(a.targetID)
	if !ok || ship.IsDestroyed() {
		return
	}
	o.targets.AutoTarget(ship)
}

// correlate finds the pending action a response belongs to: by echoed id,
// else by the request's target, preferring a damage match and then the most
// recent shot. The fallback can misattribute under heavy simultaneous fire.
func (o *Orchestrator) correlate(res validationResult) *CombatAction {
	if id := res.resp.ActionID; id != 0 {
		if a, ok := o.ledger.Get(id); ok {
			if a.status.Terminal() {
				return nil
			}
			return a
		}
	}
	if o.opts.StrictCorrelation {
		return nil
	}

	candidates := o.ledger.FindPendingByTarget(res.req.TargetID)
	if len(candidates) == 0 {
		return nil
	}
	if res.resp.Damage != nil {
		for _, c := range candidates {
			if c.clientDamage == *res.resp.Damage {
				return c
			}
		}
	}
	return candidates[0]
}

func (o *Orchestrator) handleSync(res syncResult) {
	o.syncInFlight = false
	if res.err != nil {
		o.log.WithError(res.err).Warn("Full-state sync failed; retrying next interval.")
		return
	}
	o.reconciler.ApplyAuthoritativeState(res.state)
}

func (o *Orchestrator) requestSync(ctx context.Context, now time.Time) {
	o.lastSync = now
	o.syncInFlight = true
	o.goSafe(func() {
		state, err := o.validator.GetAuthoritativeState(ctx)
		o.mailbox.post(syncResult{state: state, err: err})
	}, func(err error) {
		o.mailbox.post(syncResult{err: err})
	})
}

func (o *Orchestrator) dispatch(ctx context.Context, req ValidationRequest) {
	o.goSafe(func() {
		resp, err := o.validator.ProcessCombatAction(ctx, req)
		o.mailbox.post(validationResult{req: req, resp: resp, err: err})
	}, func(err error) {
		o.mailbox.post(validationResult{req: req, err: err})
	})
}

func (o *Orchestrator) broadcast(ctx context.Context, shot Shot) {
	if o.broadcaster == nil {
		return
	}
	o.goSafe(func() {
		if err := o.broadcaster.BroadcastShot(ctx, shot); err != nil {
			o.log.WithError(err).WithField("action_id", shot.ActionID).Debug("Shot broadcast failed.")
		}
	}, func(error) {})
}

// goSafe runs fn on its own goroutine and converts a panic into onPanic.
func (o *Orchestrator) goSafe(fn func(), onPanic func(error)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				onPanic(fmt.Errorf("recovered: %v", r))
			}
		}()
		fn()
	}()
}

func (o *Orchestrator) notify(msg string) {
	if o.notifier != nil {
		o.notifier.Notify(msg)
	}
}
