package world

// SafeZone is a circular harbour where cannons may not fire.
type SafeZone struct {
	Name   string
	X, Z   float64
	Radius float64
}

// SafeZones is a set of harbours.
type SafeZones []SafeZone

func (zs SafeZones) IsInSafeZone(x, z float64) bool {
	for _, zone := range zs {
		dx, dz := x-zone.X, z-zone.Z
		if dx*dx+dz*dz <= zone.Radius*zone.Radius {
			return true
		}
	}
	return false
}
