package world

import "time"

// ShipClass holds the fixed stats of a hull type.
type ShipClass struct {
	Name           string
	MaxHealth      int
	CannonRange    float64
	CannonCooldown time.Duration
	MinDamage      int
	MaxDamage      int
	Speed          float64
}

var classes = map[string]ShipClass{
	"sloop": {
		Name:           "sloop",
		MaxHealth:      80,
		CannonRange:    80,
		CannonCooldown: 1500 * time.Millisecond,
		MinDamage:      6,
		MaxDamage:      10,
		Speed:          14,
	},
	"brig": {
		Name:           "brig",
		MaxHealth:      100,
		CannonRange:    100,
		CannonCooldown: 2 * time.Second,
		MinDamage:      8,
		MaxDamage:      12,
		Speed:          11,
	},
	"frigate": {
		Name:           "frigate",
		MaxHealth:      160,
		CannonRange:    120,
		CannonCooldown: 3 * time.Second,
		MinDamage:      12,
		MaxDamage:      18,
		Speed:          8,
	},
}

// DefaultClass is used for unknown class names.
const DefaultClass = "brig"

// LookupClass returns the named class, falling back to DefaultClass.
func LookupClass(name string) ShipClass {
	if c, ok := classes[name]; ok {
		return c
	}
	return classes[DefaultClass]
}

// ShipState is a ship as the authoritative server reports it.
type ShipState struct {
	ID        string
	Type      string
	Position  Vec3
	Health    int
	MaxHealth int
	IsSunk    bool
}
