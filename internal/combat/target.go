package combat

// TargetManager holds the single enemy a ship is aiming at.
type TargetManager struct {
	current   Ship
	indicator TargetIndicator
}

func NewTargetManager(indicator TargetIndicator) *TargetManager {
	return &TargetManager{indicator: indicator}
}

// Current returns the selected ship or nil.
func (m *TargetManager) Current() Ship {
	return m.current
}

// CurrentID returns the selected ship id, or "" when nothing is selected.
func (m *TargetManager) CurrentID() string {
	if m.current == nil {
		return ""
	}
	return m.current.ID()
}

// SetTarget replaces the selection. Passing nil clears it. Re-selecting the
// same ship refreshes its indicator.
func (m *TargetManager) SetTarget(ship Ship) {
	if m.current != nil && m.indicator != nil {
		m.indicator.SetTargeted(m.current.ID(), false)
	}
	m.current = ship
	if ship != nil && m.indicator != nil {
		m.indicator.SetTargeted(ship.ID(), true)
	}
}

func (m *TargetManager) ClearTarget() {
	m.SetTarget(nil)
}

// AutoTarget selects attacker only when nothing is selected and the attacker
// is still afloat. It never overrides a deliberate choice.
func (m *TargetManager) AutoTarget(attacker Ship) bool {
	if m.current != nil || attacker == nil || attacker.IsDestroyed() {
		return false
	}
	m.SetTarget(attacker)
	return true
}

// Update clears a target that has been destroyed. Called every tick.
func (m *TargetManager) Update() {
	if m.current != nil && m.current.IsDestroyed() {
		m.ClearTarget()
	}
}
