package core

import (
	"time"

	"highseas/internal/fleet"
)

// Player is one ship in a room plus the connection that steers it.
type Player struct {
	ShipID string
	Name   string
	Conn   *WebSocketConn // nil for ships without a live socket
	Ship   *fleet.Ship

	// cooldown as the server sees it
	LastFired time.Time
	HasFired  bool
}

func NewPlayer(ship *fleet.Ship, name string, conn *WebSocketConn) *Player {
	return &Player{
		ShipID: ship.ID(),
		Name:   name,
		Conn:   conn,
		Ship:   ship,
	}
}

// CooldownRemaining reports how long until the ship may fire again.
func (p *Player) CooldownRemaining(now time.Time) time.Duration {
	if !p.HasFired {
		return 0
	}
	left := p.Ship.CannonCooldown() - now.Sub(p.LastFired)
	if left < 0 {
		return 0
	}
	return left
}
