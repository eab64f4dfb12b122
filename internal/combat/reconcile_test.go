package combat

import (
	"testing"

	"highseas/internal/world"
)

func newReconcileFixture(ships ...*fakeShip) (*Ledger, *fakeRegistry, *Reconciler) {
	l := NewLedger()
	reg := newFakeRegistry("me", ships...)
	return l, reg, NewReconciler(l, reg, 0, quietLog())
}

// landed records an action and applies its optimistic damage the way a
// landing projectile would.
func landed(t *testing.T, l *Ledger, target *fakeShip, damage int) *CombatAction {
	t.Helper()
	a := record(t, l, target.id, t0, damage)
	target.TakeDamage(damage)
	sank := target.hp == 0
	if sank {
		target.Destroy()
	}
	if err := l.MarkEffectApplied(a.ID(), sank); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestConfirmationWithMatchingDamageIsNoop(t *testing.T) {
	b := newFakeShip("b", 0)
	l, _, r := newReconcileFixture(b)
	a := landed(t, l, b, 12)

	if err := r.ApplyConfirmation(a, 12, t0); err != nil {
		t.Fatal(err)
	}
	if b.hp != 88 {
		t.Errorf("Expected health unchanged at 88, got %d", b.hp)
	}
}

func TestConfirmationCorrectsToServerDamage(t *testing.T) {
	tests := []struct {
		name                  string
		start, client, server int
		wantHP                int
		wantDestroyed         bool
	}{
		{"server dealt less", 100, 12, 8, 92, false},
		{"server dealt more", 100, 8, 12, 88, false},
		{"correction sinks ship", 10, 5, 15, 0, true},
		{"smaller kill shot refloats", 5, 12, 9, 3, false},
		{"correction capped at max", 100, 30, 0, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeShip("b", 0)
			b.hp = tt.start
			l, _, r := newReconcileFixture(b)
			a := landed(t, l, b, tt.client)

			if err := r.ApplyConfirmation(a, tt.server, t0); err != nil {
				t.Fatal(err)
			}
			if b.hp != tt.wantHP {
				t.Errorf("Expected %d hp, got %d", tt.wantHP, b.hp)
			}
			if b.destroyed != tt.wantDestroyed {
				t.Errorf("Expected destroyed=%v, got %v", tt.wantDestroyed, b.destroyed)
			}
			if a.Status() != StatusConfirmed {
				t.Errorf("Expected confirmed, got %s", a.Status())
			}
		})
	}
}

func TestRejectionRollsBackLandedHit(t *testing.T) {
	for _, start := range []int{100, 95, 40} {
		b := newFakeShip("b", 0)
		b.hp = start
		l, _, r := newReconcileFixture(b)
		a := landed(t, l, b, 12)

		if err := r.ApplyRejection(a, ReasonCooldown, t0); err != nil {
			t.Fatal(err)
		}
		if b.hp != start {
			t.Errorf("start %d: expected rollback to %d, got %d", start, start, b.hp)
		}
	}
}

func TestRejectionRefloatsSunkTarget(t *testing.T) {
	b := newFakeShip("b", 0)
	b.hp = 5
	l, _, r := newReconcileFixture(b)
	a := landed(t, l, b, 12)
	if !b.destroyed || !a.SankTarget() {
		t.Fatal("Expected the landing to sink b")
	}

	if err := r.ApplyRejection(a, ReasonInvalidTarget, t0); err != nil {
		t.Fatal(err)
	}
	if b.hp != 12 || b.destroyed {
		t.Errorf("Expected b afloat at 12 hp, got %d hp destroyed=%v", b.hp, b.destroyed)
	}
}

func TestRejectionNeverExceedsMaxHealth(t *testing.T) {
	b := newFakeShip("b", 0)
	l, _, r := newReconcileFixture(b)
	a := landed(t, l, b, 12)
	b.hp = 95 // a repair landed in between

	r.ApplyRejection(a, ReasonOutOfRange, t0)
	if b.hp != 100 {
		t.Errorf("Expected rollback clamped to 100, got %d", b.hp)
	}
}

func TestOutcomeBeforeLandingDoesNotTouchHealth(t *testing.T) {
	b := newFakeShip("b", 0)
	l, _, r := newReconcileFixture(b)

	confirmed := record(t, l, "b", t0, 12)
	rejected := record(t, l, "b", t0, 12)
	pending := record(t, l, "b", t0, 12)

	r.ApplyConfirmation(confirmed, 9, t0)
	r.ApplyRejection(rejected, ReasonCooldown, t0)
	if b.hp != 100 {
		t.Fatalf("Expected no mutation before landing, got %d", b.hp)
	}

	if got := r.ResolveLanding(confirmed); got != 9 {
		t.Errorf("Expected confirmed landing to use server damage 9, got %d", got)
	}
	if got := r.ResolveLanding(rejected); got != 0 {
		t.Errorf("Expected rejected landing to deal 0, got %d", got)
	}
	if got := r.ResolveLanding(pending); got != 12 {
		t.Errorf("Expected pending landing to use client damage 12, got %d", got)
	}
}

func TestFullStateOverwritesHealthExactly(t *testing.T) {
	c := newFakeShip("c", 0)
	c.hp = 70
	_, _, r := newReconcileFixture(c)

	report := r.ApplyAuthoritativeState(AuthoritativeState{Ships: []ShipState{
		{ID: "c", Type: "brig", Position: c.pos, Health: 40, MaxHealth: 100},
	}})
	if c.hp != 40 {
		t.Errorf("Expected health 40, got %d", c.hp)
	}
	if report.HealthFixed != 1 || report.Snapped != 0 {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestFullStateDestroySnapSpawnRemove(t *testing.T) {
	me := newFakeShip("me", 0)
	sunk := newFakeShip("sunk", 10)
	drift := newFakeShip("drift", 20)
	near := newFakeShip("near", 30)
	ghost := newFakeShip("ghost", 40)
	_, reg, r := newReconcileFixture(me, sunk, drift, near, ghost)

	report := r.ApplyAuthoritativeState(AuthoritativeState{Ships: []ShipState{
		{ID: "sunk", Position: sunk.pos, Health: 0, MaxHealth: 100, IsSunk: true},
		{ID: "drift", Position: world.Vec3{X: 30}, Health: 100, MaxHealth: 100},
		{ID: "near", Position: world.Vec3{X: 33}, Health: 100, MaxHealth: 100},
		{ID: "newcomer", Type: "sloop", Position: world.Vec3{X: 50}, Health: 80, MaxHealth: 80},
		{ID: "lost", Health: 0, MaxHealth: 100, IsSunk: true},
	}})

	if !sunk.destroyed || sunk.hp != 0 {
		t.Errorf("Expected sunk ship destroyed at 0 hp, got destroyed=%v hp=%d", sunk.destroyed, sunk.hp)
	}
	if drift.pos.X != 30 {
		t.Errorf("Expected drift snapped to x=30, got %v", drift.pos.X)
	}
	if near.pos.X != 30 {
		t.Errorf("Expected small drift left alone at x=30, got %v", near.pos.X)
	}
	if _, ok := reg.ships["newcomer"]; !ok {
		t.Error("Expected newcomer spawned")
	}
	if _, ok := reg.ships["lost"]; ok {
		t.Error("Expected already-sunk unknown ship not to be spawned")
	}
	if _, ok := reg.ships["ghost"]; ok {
		t.Error("Expected ghost removed")
	}
	if _, ok := reg.ships["me"]; !ok {
		t.Error("Expected local player kept even though the server omitted it")
	}

	want := SyncReport{HealthFixed: 1, Destroyed: 1, Snapped: 1, Spawned: 1, Removed: 1}
	if report != want {
		t.Errorf("Expected report %+v, got %+v", want, report)
	}
}

func TestFullStateRespawnsWronglyDestroyedShip(t *testing.T) {
	b := newFakeShip("b", 0)
	b.hp = 0
	b.destroyed = true
	_, reg, r := newReconcileFixture(b)

	report := r.ApplyAuthoritativeState(AuthoritativeState{Ships: []ShipState{
		{ID: "b", Position: b.pos, Health: 60, MaxHealth: 100},
	}})
	got := reg.ships["b"]
	if got.destroyed || got.hp != 60 {
		t.Errorf("Expected ship respawned with 60 hp, got destroyed=%v hp=%d", got.destroyed, got.hp)
	}
	if report.Respawned != 1 {
		t.Errorf("Expected one respawn, got %+v", report)
	}
}

func TestSyncReportChanged(t *testing.T) {
	if (SyncReport{}).Changed() {
		t.Error("Expected empty report to be unchanged")
	}
	if !(SyncReport{Removed: 1}).Changed() {
		t.Error("Expected removal to count as a change")
	}
}

