package combat

import (
	"fmt"
	"sort"
	"time"
)

const (
	DefaultActionTimeout = 10 * time.Second
	DefaultPruneGrace    = 60 * time.Second
)

// Ledger records every in-flight CombatAction and indexes the pending ones
// by target. All mutation goes through its methods so the index never holds
// an id whose action is absent or no longer pending.
//
// Ledger is not safe for concurrent use; the orchestrator's tick loop owns it.
type Ledger struct {
	actions         map[int64]*CombatAction
	pendingByTarget map[string]map[int64]struct{}
	lastID          int64
}

func NewLedger() *Ledger {
	return &Ledger{
		actions:         make(map[int64]*CombatAction),
		pendingByTarget: make(map[string]map[int64]struct{}),
	}
}

// NextID returns a fresh, monotonically increasing action id.
func (l *Ledger) NextID() int64 {
	l.lastID++
	return l.lastID
}

// Record inserts a pending action and indexes it under its target.
func (l *Ledger) Record(a *CombatAction) error {
	if _, ok := l.actions[a.id]; ok {
		return fmt.Errorf("record action %d: %w", a.id, ErrDuplicateAction)
	}
	if a.id > l.lastID {
		l.lastID = a.id
	}
	l.actions[a.id] = a
	if a.status == StatusPending {
		l.index(a)
	}
	return nil
}

func (l *Ledger) Get(id int64) (*CombatAction, bool) {
	a, ok := l.actions[id]
	return a, ok
}

func (l *Ledger) Len() int { return len(l.actions) }

func (l *Ledger) PendingCount() int {
	n := 0
	for _, ids := range l.pendingByTarget {
		n += len(ids)
	}
	return n
}

// FindPendingByTarget returns the target's pending actions, most recent first.
func (l *Ledger) FindPendingByTarget(targetID string) []*CombatAction {
	ids := l.pendingByTarget[targetID]
	out := make([]*CombatAction, 0, len(ids))
	for id := range ids {
		out = append(out, l.actions[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].id > out[j].id
	})
	return out
}

// MarkConfirmed moves a pending action to confirmed with the server's damage.
func (l *Ledger) MarkConfirmed(id int64, serverDamage int, now time.Time) (*CombatAction, error) {
	a, err := l.pending(id)
	if err != nil {
		return nil, fmt.Errorf("confirm action %d: %w", id, err)
	}
	a.serverDamage = serverDamage
	a.hasServerDamage = true
	l.resolve(a, StatusConfirmed, now)
	return a, nil
}

// MarkRejected moves a pending action to rejected.
func (l *Ledger) MarkRejected(id int64, reason string, now time.Time) (*CombatAction, error) {
	a, err := l.pending(id)
	if err != nil {
		return nil, fmt.Errorf("reject action %d: %w", id, err)
	}
	a.rejectReason = reason
	l.resolve(a, StatusRejected, now)
	return a, nil
}

// MarkEffectApplied flags that the action's projectile has landed, and
// whether that landing sank the target.
// Allowed in any status: a projectile can land after the action resolved.
func (l *Ledger) MarkEffectApplied(id int64, sank bool) error {
	a, ok := l.actions[id]
	if !ok {
		return fmt.Errorf("mark effect %d: %w", id, ErrActionNotFound)
	}
	a.visualEffectApplied = true
	a.sankTarget = sank
	return nil
}

// SweepExpired expires pending actions older than timeout. Their optimistic
// effect is left in place: silence counts as acceptance.
func (l *Ledger) SweepExpired(now time.Time, timeout time.Duration) []*CombatAction {
	var expired []*CombatAction
	for _, ids := range l.pendingByTarget {
		for id := range ids {
			a := l.actions[id]
			if now.Sub(a.createdAt) > timeout {
				expired = append(expired, a)
			}
		}
	}
	for _, a := range expired {
		l.resolve(a, StatusExpired, now)
	}
	return expired
}

// Prune deletes terminal actions resolved before cutoff. Pending actions are
// never pruned; only SweepExpired retires them.
func (l *Ledger) Prune(cutoff time.Time) int {
	removed := 0
	for id, a := range l.actions {
		if !a.status.Terminal() {
			continue
		}
		ts := a.resolvedAt
		if ts.IsZero() {
			ts = a.createdAt
		}
		if ts.Before(cutoff) {
			delete(l.actions, id)
			removed++
		}
	}
	return removed
}

func (l *Ledger) pending(id int64) (*CombatAction, error) {
	a, ok := l.actions[id]
	if !ok {
		return nil, ErrActionNotFound
	}
	if a.status.Terminal() {
		return nil, fmt.Errorf("%w (status %s)", ErrActionNotPending, a.status)
	}
	return a, nil
}

func (l *Ledger) resolve(a *CombatAction, status ActionStatus, now time.Time) {
	a.status = status
	a.resolvedAt = now
	l.unindex(a)
}

func (l *Ledger) index(a *CombatAction) {
	ids, ok := l.pendingByTarget[a.targetID]
	if !ok {
		ids = make(map[int64]struct{})
		l.pendingByTarget[a.targetID] = ids
	}
	ids[a.id] = struct{}{}
}

func (l *Ledger) unindex(a *CombatAction) {
	ids, ok := l.pendingByTarget[a.targetID]
	if !ok {
		return
	}
	delete(ids, a.id)
	if len(ids) == 0 {
		delete(l.pendingByTarget, a.targetID)
	}
}
