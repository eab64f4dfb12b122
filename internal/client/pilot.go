// Package client is the headless predicted client: it keeps the local fleet,
// steers one ship, fires at the nearest enemy and runs the combat
// orchestrator on a single tick loop.
package client

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"highseas/internal/combat"
	"highseas/internal/fleet"
	"highseas/internal/world"
	pb "highseas/proto"
)

const (
	defaultTickRate = 60
	turnRate        = 0.2 // rad/s
	readLimit       = 1 << 20
)

type Config struct {
	ServerURL     string // ws://host:port/ws
	RoomID        string
	Token         string
	ShipID        string
	ShipClass     string
	Spawn         world.Vec3
	TickRate      int
	PositionEvery int
	AutoFire      bool
}

// Pilot owns the local fleet. Everything except the websocket reader runs on
// the Run goroutine.
type Pilot struct {
	cfg      Config
	registry *fleet.Registry
	ship     *fleet.Ship
	orch     *combat.Orchestrator
	log      *logrus.Entry

	conn      *websocket.Conn
	snapshots chan *pb.Snapshot
	events    chan *pb.Event
	readErr   chan error

	heading  float64
	tick     int64
	lastStep time.Time
}

func NewPilot(cfg Config, validator combat.RemoteValidator, broadcaster combat.ShotBroadcaster, zones combat.ZoneOracle, opts combat.Options, log *logrus.Entry) *Pilot {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.PositionEvery <= 0 {
		cfg.PositionEvery = cfg.TickRate / 10
		if cfg.PositionEvery == 0 {
			cfg.PositionEvery = 1
		}
	}

	p := &Pilot{
		cfg:       cfg,
		registry:  fleet.NewRegistry(cfg.ShipID),
		ship:      fleet.NewShip(cfg.ShipID, world.LookupClass(cfg.ShipClass), cfg.Spawn),
		log:       log.WithField("ship_id", cfg.ShipID),
		snapshots: make(chan *pb.Snapshot, 8),
		events:    make(chan *pb.Event, 32),
		readErr:   make(chan error, 1),
	}
	p.registry.Add(p.ship)

	opts.LocalShipID = cfg.ShipID
	p.orch = combat.NewOrchestrator(combat.Deps{
		Validator:   validator,
		Registry:    p.registry,
		Zones:       zones,
		Broadcaster: broadcaster,
		Notifier:    p,
		Indicator:   p.registry,
		Log:         log.WithField("component", "combat"),
	}, opts)
	return p
}

func (p *Pilot) Orchestrator() *combat.Orchestrator { return p.orch }
func (p *Pilot) Registry() *fleet.Registry          { return p.registry }

// Notify implements combat.Notifier.
func (p *Pilot) Notify(message string) {
	p.log.Info(message)
}

// Connect opens the room socket and announces the ship.
func (p *Pilot) Connect(ctx context.Context) error {
	u, err := url.Parse(p.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("room_id", p.cfg.RoomID)
	q.Set("token", p.cfg.Token)
	q.Set("ship_id", p.cfg.ShipID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.ServerURL, err)
	}
	conn.SetReadLimit(readLimit)
	p.conn = conn

	pos := p.ship.Position()
	if err := p.send((&pb.Join{ShipId: p.cfg.ShipID, Class: p.ship.Class().Name, X: pos.X, Z: pos.Z}).Packet()); err != nil {
		conn.Close()
		return fmt.Errorf("send join: %w", err)
	}
	go p.readLoop()
	return nil
}

func (p *Pilot) send(pkt *pb.Packet) error {
	if p.conn == nil {
		return nil
	}
	data, err := pkt.Marshal()
	if err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (p *Pilot) readLoop() {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.readErr <- err
			return
		}
		pkt, err := pb.UnmarshalPacket(data)
		if err != nil {
			continue
		}
		switch pkt.Type {
		case pb.PacketSnapshot:
			p.offerSnapshot(pb.SnapshotFromPacket(pkt))
		case pb.PacketEvent:
			select {
			case p.events <- pb.EventFromPacket(pkt):
			default:
			}
		}
	}
}

// offerSnapshot queues snap, evicting the oldest queued snapshot when the
// buffer is full. readLoop is the only sender.
func (p *Pilot) offerSnapshot(snap *pb.Snapshot) {
	for {
		select {
		case p.snapshots <- snap:
			return
		default:
		}
		select {
		case <-p.snapshots:
		default:
		}
	}
}

// Run drives the tick loop until ctx is done or the socket drops.
func (p *Pilot) Run(ctx context.Context, shots <-chan combat.Shot) error {
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.TickRate))
	defer ticker.Stop()
	defer p.orch.Close()
	if p.conn != nil {
		defer p.conn.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-p.readErr:
			return fmt.Errorf("server connection lost: %w", err)
		case snap := <-p.snapshots:
			p.applySnapshot(snap)
		case evt := <-p.events:
			p.onEvent(ctx, evt, time.Now())
		case shot, ok := <-shots:
			if !ok {
				shots = nil
				continue
			}
			p.onShot(shot)
		case now := <-ticker.C:
			p.Step(ctx, now)
		}
	}
}

// applySnapshot learns about new ships and follows the others' movement.
// Health stays with the reconciler.
func (p *Pilot) applySnapshot(snap *pb.Snapshot) {
	for _, st := range pb.ToWorld(snap.Ships) {
		if st.ID == p.cfg.ShipID {
			continue
		}
		ship, ok := p.registry.Ship(st.ID)
		if !ok {
			if !st.IsSunk {
				p.registry.Spawn(st)
				p.log.WithField("other", st.ID).Debug("Ship sighted")
			}
			continue
		}
		ship.SetPosition(st.Position)
	}
}

// onEvent logs room events. A sinking also triggers an early full-state
// sync so local wrecks match the server without waiting for the interval.
func (p *Pilot) onEvent(ctx context.Context, evt *pb.Event, now time.Time) {
	fields := logrus.Fields{"kind": evt.Kind, "about": evt.ShipId}
	switch evt.Kind {
	case pb.EventShipSunk:
		p.log.WithFields(fields).Info(evt.Message)
		p.orch.SyncNow(ctx, now)
	case pb.EventGameOver:
		p.log.WithFields(fields).Info(evt.Message)
	default:
		p.log.WithFields(fields).Debug(evt.Message)
	}
}

func (p *Pilot) onShot(shot combat.Shot) {
	if shot.TargetID != p.cfg.ShipID {
		return
	}
	if p.orch.OnIncomingFire(shot.SourceID) {
		p.log.WithField("attacker", shot.SourceID).Info("Returning fire")
	}
}

// Step advances the local simulation by one tick.
func (p *Pilot) Step(ctx context.Context, now time.Time) {
	p.tick++
	if !p.lastStep.IsZero() {
		dt := now.Sub(p.lastStep)
		p.heading += turnRate * dt.Seconds()
		p.ship.SetForward(world.Vec3{X: math.Sin(p.heading), Z: math.Cos(p.heading)})
		p.ship.Sail(dt)
	}
	p.lastStep = now

	if p.tick%int64(p.cfg.PositionEvery) == 0 {
		pos, fwd := p.ship.Position(), p.ship.Forward()
		if err := p.send((&pb.Position{X: pos.X, Y: pos.Y, Z: pos.Z, FwdX: fwd.X, FwdZ: fwd.Z}).Packet()); err != nil {
			p.log.WithError(err).Debug("Position report failed")
		}
	}

	if p.cfg.AutoFire {
		p.autoFire(ctx, now)
	}

	p.orch.Tick(ctx, now)
}

func (p *Pilot) autoFire(ctx context.Context, now time.Time) {
	if p.ship.IsDestroyed() || !p.orch.Cooldown(p.ship).CanFire(now) {
		return
	}
	if p.orch.Targets().Current() == nil {
		enemy := p.registry.Nearest(p.ship)
		if enemy == nil {
			return
		}
		if err := p.orch.SelectTarget(enemy.ID()); err != nil {
			return
		}
	}
	target := p.orch.Targets().Current()
	if target.Position().DistanceXZ(p.ship.Position()) > p.ship.CannonRange() {
		return
	}

	action, err := p.orch.Fire(ctx, now)
	switch {
	case err == nil:
		p.log.WithFields(logrus.Fields{"action_id": action.ID(), "target": action.TargetID()}).Debug("Fired")
	case combat.IsPrecondition(err):
	default:
		p.log.WithError(err).Warn("Fire failed")
	}
}
