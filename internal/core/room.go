package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"highseas/internal/fleet"
	"highseas/internal/mq"
	"highseas/internal/world"
	"highseas/pkg/config"
	"highseas/pkg/logger"
	pb "highseas/proto"
)

// ErrRoomClosed is returned for work submitted to a stopped room.
var ErrRoomClosed = errors.New("room closed")

const (
	defaultTickRate = 64
	gameOverLinger  = 5 * time.Second
	persistTimeout  = 2 * time.Second
)

// Rules are the server-side combat and world settings of a room.
type Rules struct {
	TickRate          int
	MapSize           float64
	SnapshotEvery     int
	MissChance        float64
	RangeTolerance    float64
	CooldownTolerance time.Duration
	Zones             world.SafeZones
}

func RulesFromConfig(cfg *config.Config) Rules {
	zones := make(world.SafeZones, 0, len(cfg.Game.SafeZones))
	for _, z := range cfg.Game.SafeZones {
		zones = append(zones, world.SafeZone{Name: z.Name, X: z.X, Z: z.Z, Radius: z.Radius})
	}
	return Rules{
		TickRate:          cfg.Server.TickRate,
		MapSize:           cfg.Game.MapSize,
		SnapshotEvery:     cfg.Game.SnapshotEvery,
		MissChance:        cfg.Combat.MissChance,
		RangeTolerance:    cfg.Combat.RangeTolerance,
		CooldownTolerance: cfg.Combat.CooldownTolerance,
		Zones:             zones,
	}
}

// Publisher carries combat records and match results off the room.
type Publisher interface {
	PublishCombatRecord(rec mq.CombatRecord) error
	PublishGameResult(res mq.GameResult) error
}

// StateStore mirrors ship state into the shared store. A room loads it
// back when it starts, so a restarted server keeps its fleets.
type StateStore interface {
	SaveShipState(ctx context.Context, roomID string, st world.ShipState) error
	RemoveShipState(ctx context.Context, roomID, shipID string) error
	LoadShipState(ctx context.Context, roomID string) ([]world.ShipState, error)
}

type Room struct {
	ID         string
	Players    map[string]*Player
	Register   chan *Player
	Unregister chan string
	Commands   chan func()

	// Mutex guards the fields below for readers outside the room goroutine.
	// Only the room goroutine writes.
	Mutex          sync.RWMutex
	IsRunning      bool
	CurrentTick    int64
	LastActiveTime int64
	CreatedAt      int64

	rules     Rules
	publisher Publisher
	store     StateStore
	now       func() time.Time
	log       *logrus.Entry
	onEmpty   func(*Room)

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewRoom(id string, rules Rules, publisher Publisher, store StateStore) *Room {
	if rules.TickRate <= 0 {
		rules.TickRate = defaultTickRate
	}
	if rules.SnapshotEvery <= 0 {
		rules.SnapshotEvery = 1
	}
	now := time.Now().Unix()
	return &Room{
		ID:             id,
		Players:        make(map[string]*Player),
		Register:       make(chan *Player),
		Unregister:     make(chan string),
		Commands:       make(chan func()),
		LastActiveTime: now,
		CreatedAt:      now,
		rules:          rules,
		publisher:      publisher,
		store:          store,
		now:            time.Now,
		log:            logger.Component("room").WithField("room_id", id),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (r *Room) tickDuration() time.Duration {
	return time.Second / time.Duration(r.rules.TickRate)
}

// Stop ends Run. Safe to call more than once and from any goroutine.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Done is closed once Run has returned.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Run() {
	defer close(r.done)

	r.Mutex.Lock()
	r.IsRunning = true
	r.CurrentTick = 0
	r.restore()
	r.Mutex.Unlock()

	ticker := time.NewTicker(r.tickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			r.Mutex.Lock()
			r.IsRunning = false
			r.Mutex.Unlock()
			return

		case p := <-r.Register:
			r.Mutex.Lock()
			r.addPlayer(p)
			r.Mutex.Unlock()

		case id := <-r.Unregister:
			r.Mutex.Lock()
			empty := r.removePlayer(id)
			r.Mutex.Unlock()
			if empty {
				r.Stop()
				if r.onEmpty != nil {
					go r.onEmpty(r)
				}
			}

		case cmd := <-r.Commands:
			r.Mutex.Lock()
			cmd()
			r.Mutex.Unlock()

		case <-ticker.C:
			r.GameLoop()
		}
	}
}

// Join hands a player to the room goroutine.
func (r *Room) Join(ctx context.Context, p *Player) error {
	select {
	case r.Register <- p:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave removes a ship. It never blocks on a stopped room.
func (r *Room) Leave(shipID string) {
	select {
	case r.Unregister <- shipID:
	case <-r.done:
	}
}

// do runs fn on the room goroutine and waits for it. Commands is
// unbuffered, so once the send succeeds fn is already executing.
func (r *Room) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case r.Commands <- func() { fn(); close(finished) }:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (r *Room) addPlayer(p *Player) {
	r.LastActiveTime = r.now().Unix()
	if existing, ok := r.Players[p.ShipID]; ok {
		// reconnect: keep the ship, take the new socket
		existing.Conn = p.Conn
		r.log.WithField("ship_id", p.ShipID).Info("Ship reconnected")
		return
	}
	p.Ship.SetPosition(r.clampToMap(p.Ship.Position()))
	r.Players[p.ShipID] = p
	r.log.WithFields(logrus.Fields{"ship_id": p.ShipID, "class": p.Ship.Class().Name}).Info("Ship joined")
	r.persist(p)
	r.BroadcastEvent(pb.EventShipJoined, p.ShipID, p.Name)
}

// restore seeds the room with ships stored by an earlier run. They wait
// without a socket until their owners reconnect.
func (r *Room) restore() {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	states, err := r.store.LoadShipState(ctx, r.ID)
	if err != nil {
		r.log.WithError(err).Warn("Failed to load stored ships")
		return
	}
	for _, st := range states {
		if _, ok := r.Players[st.ID]; ok {
			continue
		}
		r.Players[st.ID] = NewPlayer(fleet.FromState(st), st.ID, nil)
	}
	if len(states) > 0 {
		r.log.WithField("ships", len(states)).Info("Restored stored ships")
	}
}

// removePlayer reports whether the room is now empty.
func (r *Room) removePlayer(shipID string) bool {
	if _, ok := r.Players[shipID]; !ok {
		return len(r.Players) == 0
	}
	delete(r.Players, shipID)
	r.LastActiveTime = r.now().Unix()
	r.log.WithField("ship_id", shipID).Info("Ship left")
	if r.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := r.store.RemoveShipState(ctx, r.ID, shipID); err != nil {
				r.log.WithError(err).Warn("Failed to remove ship state")
			}
		}()
	}
	r.BroadcastEvent(pb.EventShipLeft, shipID, "")
	return len(r.Players) == 0
}

func (r *Room) clampToMap(p world.Vec3) world.Vec3 {
	if r.rules.MapSize <= 0 {
		return p
	}
	half := r.rules.MapSize / 2
	clamp := func(v float64) float64 {
		if v < -half {
			return -half
		}
		if v > half {
			return half
		}
		return v
	}
	return world.Vec3{X: clamp(p.X), Y: p.Y, Z: clamp(p.Z)}
}

// --- tick ---

func (r *Room) GameLoop() {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	r.CurrentTick++

	r.CheckWinCondition()

	if r.CurrentTick%int64(r.rules.SnapshotEvery) == 0 {
		r.BroadcastSnapshot()
	}
}

// UpdatePosition applies a client position report.
func (r *Room) UpdatePosition(ctx context.Context, shipID string, pos, fwd world.Vec3) error {
	return r.do(ctx, func() {
		p, ok := r.Players[shipID]
		if !ok || p.Ship.IsDestroyed() {
			return
		}
		p.Ship.SetPosition(r.clampToMap(pos))
		p.Ship.SetForward(fwd)
		r.LastActiveTime = r.now().Unix()
	})
}

func (r *Room) CheckWinCondition() {
	if !r.IsRunning || len(r.Players) < 2 {
		return
	}
	alive := 0
	var survivor *Player
	for _, p := range r.Players {
		if !p.Ship.IsDestroyed() {
			alive++
			survivor = p
		}
	}
	if alive > 1 {
		return
	}

	winner := ""
	if survivor != nil {
		winner = survivor.ShipID
	}
	r.BroadcastEvent(pb.EventGameOver, winner, "Game Over")
	r.IsRunning = false
	r.log.WithField("winner", winner).Info("Match finished")

	if r.publisher != nil {
		res := mq.GameResult{MatchID: r.ID, Winner: winner, Ships: len(r.Players), Timestamp: r.now().Unix()}
		go func() {
			if err := r.publisher.PublishGameResult(res); err != nil {
				r.log.WithError(err).Warn("Failed to publish game result")
			}
		}()
	}

	go func() {
		select {
		case <-time.After(gameOverLinger):
			r.Stop()
		case <-r.done:
		}
	}()
}

// snapshot lists ships ordered by id.
func (r *Room) snapshot() []world.ShipState {
	out := make([]world.ShipState, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, shipState(p.Ship))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Room) BroadcastSnapshot() {
	ships := r.snapshot()
	pkt := (&pb.Snapshot{
		Tick:         r.CurrentTick,
		ServerTimeMs: r.now().UnixMilli(),
		Ships:        pb.FromWorld(ships),
	}).Packet()
	r.broadcast(pkt)
}

func (r *Room) BroadcastEvent(kind, shipID, msg string) {
	r.broadcast((&pb.Event{Kind: kind, ShipId: shipID, Message: msg}).Packet())
}

// TODO: filter by area of interest once rooms get large.
func (r *Room) broadcast(pkt *pb.Packet) {
	for _, p := range r.Players {
		if err := p.Conn.Send(pkt); err != nil {
			r.log.WithField("ship_id", p.ShipID).Debugf("Send failed: %v", err)
		}
	}
}

func (r *Room) persist(p *Player) {
	if r.store == nil {
		return
	}
	st := shipState(p.Ship)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.store.SaveShipState(ctx, r.ID, st); err != nil {
			r.log.WithError(err).WithField("ship_id", st.ID).Warn("Failed to save ship state")
		}
	}()
}
