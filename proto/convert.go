package pb

import "highseas/internal/world"

func FromWorld(ships []world.ShipState) []*ShipState {
	out := make([]*ShipState, 0, len(ships))
	for _, s := range ships {
		out = append(out, &ShipState{
			Id:        s.ID,
			Type:      s.Type,
			X:         s.Position.X,
			Y:         s.Position.Y,
			Z:         s.Position.Z,
			Health:    int32(s.Health),
			MaxHealth: int32(s.MaxHealth),
			IsSunk:    s.IsSunk,
		})
	}
	return out
}

func ToWorld(ships []*ShipState) []world.ShipState {
	out := make([]world.ShipState, 0, len(ships))
	for _, s := range ships {
		out = append(out, world.ShipState{
			ID:        s.Id,
			Type:      s.Type,
			Position:  world.Vec3{X: s.X, Y: s.Y, Z: s.Z},
			Health:    int(s.Health),
			MaxHealth: int(s.MaxHealth),
			IsSunk:    s.IsSunk,
		})
	}
	return out
}
