package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"highseas/internal/combat"
	"highseas/internal/fleet"
	"highseas/internal/mq"
	"highseas/internal/world"
	"highseas/pkg/seededrand"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	records []mq.CombatRecord
	results []mq.GameResult
}

func (p *recordingPublisher) PublishCombatRecord(rec mq.CombatRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) PublishGameResult(res mq.GameResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	return nil
}

func (p *recordingPublisher) recordCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (p *recordingPublisher) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

func testRules() Rules {
	return Rules{
		TickRate:          64,
		MapSize:           2000,
		SnapshotEvery:     4,
		MissChance:        0.1,
		RangeTolerance:    0.1,
		CooldownTolerance: 100 * time.Millisecond,
		Zones:             world.SafeZones{{Name: "port", X: -500, Z: -500, Radius: 50}},
	}
}

// newTestRoom builds a room with two brigs 60 units apart. The room is not
// running; tests call the resolver directly or start Run themselves.
func newTestRoom(t *testing.T) (*Room, *time.Time) {
	t.Helper()
	r := NewRoom("r1", testRules(), nil, nil)
	now := t0
	r.now = func() time.Time { return now }
	brig := world.LookupClass("brig")
	r.addPlayer(NewPlayer(fleet.NewShip("a", brig, world.Vec3{}), "a", nil))
	r.addPlayer(NewPlayer(fleet.NewShip("b", brig, world.Vec3{X: 60}), "b", nil))
	return r, &now
}

func request(id int64, src, tgt string, seed int64) combat.ValidationRequest {
	return combat.ValidationRequest{ActionID: id, SourceID: src, TargetID: tgt, Seed: seed, MissChance: 0.1, Timestamp: t0}
}

func TestResolveConfirmsWithSeededRoll(t *testing.T) {
	r, _ := newTestRoom(t)

	resp := r.resolveCombatAction(request(1, "a", "b", 42))
	want := seededrand.Roll(42, 0.1, 8, 12)

	if !resp.Success || resp.ActionID != 1 {
		t.Fatalf("Expected confirmed action 1, got %+v", resp)
	}
	if resp.Damage == nil || *resp.Damage != want.Damage {
		t.Errorf("Expected damage %d, got %v", want.Damage, resp.Damage)
	}
	if hp := r.Players["b"].Ship.Health(); hp != 100-want.Damage {
		t.Errorf("Expected target health %d, got %d", 100-want.Damage, hp)
	}
	if resp.NewHealth == nil || *resp.NewHealth != 100-want.Damage {
		t.Errorf("Expected new health echoed, got %v", resp.NewHealth)
	}
}

func TestResolveUsesHigherMissChance(t *testing.T) {
	r, _ := newTestRoom(t)
	r.rules.MissChance = 1 // every draw is below 1

	req := request(1, "a", "b", 42)
	req.MissChance = 0
	resp := r.resolveCombatAction(req)

	if !resp.Success || resp.Damage == nil || *resp.Damage != 0 {
		t.Errorf("Expected confirmed miss, got %+v", resp)
	}
	if hp := r.Players["b"].Ship.Health(); hp != 100 {
		t.Errorf("Expected untouched target, got %d", hp)
	}
}

func TestResolveRejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *Room)
		req    combat.ValidationRequest
		reason string
	}{
		{"unknown source", nil, request(1, "ghost", "b", 1), combat.ReasonInvalidSource},
		{"sunk source", func(r *Room) { r.Players["a"].Ship.Destroy() }, request(1, "a", "b", 1), combat.ReasonInvalidSource},
		{"unknown target", nil, request(1, "a", "ghost", 1), combat.ReasonInvalidTarget},
		{"self target", nil, request(1, "a", "a", 1), combat.ReasonInvalidTarget},
		{"sunk target", func(r *Room) { r.Players["b"].Ship.Destroy() }, request(1, "a", "b", 1), combat.ReasonInvalidTarget},
		{"target in harbour", func(r *Room) {
			r.Players["b"].Ship.SetPosition(world.Vec3{X: -500, Z: -500})
			r.Players["a"].Ship.SetPosition(world.Vec3{X: -500, Z: -440})
		}, request(1, "a", "b", 1), combat.ReasonSafeZone},
		{"out of range", func(r *Room) { r.Players["b"].Ship.SetPosition(world.Vec3{X: 111}) }, request(1, "a", "b", 1), combat.ReasonOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRoom(t)
			if tt.setup != nil {
				tt.setup(r)
			}
			resp := r.resolveCombatAction(tt.req)
			if resp.Success || resp.Error != tt.reason {
				t.Errorf("Expected rejection %q, got %+v", tt.reason, resp)
			}
			if resp.ActionID != tt.req.ActionID {
				t.Errorf("Expected action id echoed, got %d", resp.ActionID)
			}
		})
	}
}

func TestResolveRangeTolerance(t *testing.T) {
	r, _ := newTestRoom(t)
	r.Players["b"].Ship.SetPosition(world.Vec3{X: 109})

	if resp := r.resolveCombatAction(request(1, "a", "b", 42)); !resp.Success {
		t.Errorf("Expected shot within tolerance to be confirmed, got %+v", resp)
	}
}

func TestResolveCooldown(t *testing.T) {
	r, now := newTestRoom(t)

	if resp := r.resolveCombatAction(request(1, "a", "b", 42)); !resp.Success {
		t.Fatalf("Expected first shot confirmed, got %+v", resp)
	}

	*now = t0.Add(500 * time.Millisecond)
	resp := r.resolveCombatAction(request(2, "a", "b", 43))
	if resp.Success || resp.Error != combat.ReasonCooldown {
		t.Fatalf("Expected cooldown rejection, got %+v", resp)
	}
	if resp.CooldownRemaining == nil || *resp.CooldownRemaining != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s remaining, got %v", resp.CooldownRemaining)
	}

	// inside the jitter tolerance
	*now = t0.Add(1950 * time.Millisecond)
	if resp := r.resolveCombatAction(request(3, "a", "b", 44)); !resp.Success {
		t.Errorf("Expected shot within tolerance to be confirmed, got %+v", resp)
	}
}

func TestResolveSinksAndRecords(t *testing.T) {
	r, now := newTestRoom(t)
	pub := &recordingPublisher{}
	r.publisher = pub
	r.Players["b"].Ship.SetHealth(5)

	resp := r.resolveCombatAction(request(1, "a", "b", 42))
	if !resp.IsSunk || *resp.NewHealth != 0 {
		t.Fatalf("Expected sinking shot, got %+v", resp)
	}

	*now = t0.Add(5 * time.Second)
	if resp := r.resolveCombatAction(request(2, "a", "b", 43)); resp.Error != combat.ReasonInvalidTarget {
		t.Errorf("Expected sunk target to be invalid, got %+v", resp)
	}

	deadline := time.Now().Add(time.Second)
	for pub.recordCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.recordCount() != 1 {
		t.Fatalf("Expected one combat record, got %d", pub.recordCount())
	}
	if rec := pub.records[0]; !rec.Sunk || rec.ActionID != 1 || rec.TargetID != "b" {
		t.Errorf("Expected sinking record for action 1, got %+v", rec)
	}
}

func TestCheckWinCondition(t *testing.T) {
	r, _ := newTestRoom(t)
	pub := &recordingPublisher{}
	r.publisher = pub
	r.IsRunning = true

	r.CheckWinCondition()
	if !r.IsRunning {
		t.Fatal("Expected match to continue with two ships afloat")
	}

	r.Players["b"].Ship.Destroy()
	r.CheckWinCondition()
	if r.IsRunning {
		t.Fatal("Expected match to end")
	}

	deadline := time.Now().Add(time.Second)
	for pub.resultCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.resultCount() != 1 {
		t.Fatalf("Expected one game result, got %d", pub.resultCount())
	}
	if pub.results[0].Winner != "a" {
		t.Errorf("Expected winner a, got %s", pub.results[0].Winner)
	}
	r.Stop()
}

func TestRoomLoopProcessesCommands(t *testing.T) {
	r := NewRoom("loop", testRules(), nil, nil)
	go r.Run()
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	brig := world.LookupClass("brig")
	if err := r.Join(ctx, NewPlayer(fleet.NewShip("a", brig, world.Vec3{}), "a", nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Join(ctx, NewPlayer(fleet.NewShip("b", brig, world.Vec3{X: 30}), "b", nil)); err != nil {
		t.Fatal(err)
	}

	resp, err := r.ProcessCombatAction(ctx, request(7, "a", "b", 42))
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ActionID != 7 {
		t.Errorf("Expected confirmed action 7, got %+v", resp)
	}

	st, err := r.AuthoritativeState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Ships) != 2 || st.Ships[0].ID != "a" || st.Ships[1].ID != "b" {
		t.Fatalf("Expected ships a and b in order, got %+v", st.Ships)
	}
	if st.Ships[1].Health != *resp.NewHealth {
		t.Errorf("Expected snapshot health %d, got %d", *resp.NewHealth, st.Ships[1].Health)
	}
}

type memoryStore struct {
	mu     sync.Mutex
	stored []world.ShipState
	saved  []string
}

func (s *memoryStore) SaveShipState(_ context.Context, _ string, st world.ShipState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, st.ID)
	return nil
}

func (s *memoryStore) RemoveShipState(context.Context, string, string) error { return nil }

func (s *memoryStore) LoadShipState(context.Context, string) ([]world.ShipState, error) {
	return s.stored, nil
}

func TestRoomRestoresStoredShips(t *testing.T) {
	store := &memoryStore{stored: []world.ShipState{
		{ID: "a", Type: "brig", Health: 40, MaxHealth: 100},
		{ID: "b", Type: "brig", Position: world.Vec3{X: 30}, Health: 70, MaxHealth: 100},
	}}
	r := NewRoom("restored", testRules(), nil, store)
	go r.Run()
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := r.AuthoritativeState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Ships) != 2 {
		t.Fatalf("Expected two restored ships, got %+v", st.Ships)
	}
	if st.Ships[0].Health != 40 || st.Ships[1].Health != 70 || st.Ships[1].Position.X != 30 {
		t.Errorf("Expected stored health and position kept, got %+v", st.Ships)
	}

	if err := r.Join(ctx, NewPlayer(fleet.NewShip("a", world.LookupClass("brig"), world.Vec3{}), "a", nil)); err != nil {
		t.Fatal(err)
	}
	st, err = r.AuthoritativeState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Ships) != 2 || st.Ships[0].Health != 40 {
		t.Errorf("Expected rejoin to take over the restored ship, got %+v", st.Ships)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.saved) != 0 {
		t.Errorf("Expected restore and reconnect to write nothing back, got %v", store.saved)
	}
}

func TestStoppedRoomRejectsWork(t *testing.T) {
	r := NewRoom("stopped", testRules(), nil, nil)
	go r.Run()
	r.Stop()
	r.Stop()
	<-r.Done()

	_, err := r.ProcessCombatAction(context.Background(), request(1, "a", "b", 1))
	if !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
	r.Leave("a")
}

func TestLastShipLeavingStopsRoom(t *testing.T) {
	room := CreateRoom("lonely")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := room.Join(ctx, NewPlayer(fleet.NewShip("a", world.LookupClass("sloop"), world.Vec3{}), "a", nil)); err != nil {
		t.Fatal(err)
	}
	room.Leave("a")

	select {
	case <-room.Done():
	case <-ctx.Done():
		t.Fatal("Expected room to stop after the last ship left")
	}

	deadline := time.Now().Add(time.Second)
	for GetRoom("lonely") != nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if GetRoom("lonely") != nil {
		t.Error("Expected room to be removed from the manager")
	}
}

func TestCleanupEmptyRooms(t *testing.T) {
	room := CreateRoom("idle")
	room.Mutex.Lock()
	room.LastActiveTime = time.Now().Add(-2 * idleRoomTTL).Unix()
	room.Mutex.Unlock()

	if n := CleanupEmptyRooms(time.Now()); n < 1 {
		t.Fatalf("Expected idle room to be cleaned, removed %d", n)
	}
	if GetRoom("idle") != nil {
		t.Error("Expected idle room to be gone")
	}
	<-room.Done()
}
