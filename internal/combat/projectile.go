package combat

import (
	"sort"
	"time"

	"highseas/internal/world"
)

// projectile is a cannonball in flight. Its action's damage lands when the
// flight time has elapsed.
type projectile struct {
	actionID   int64
	sourceID   string
	targetID   string
	origin     world.Vec3
	aim        world.Vec3
	launchedAt time.Time
	landsAt    time.Time
}

// ProjectileView is a read-only projectile position for renderers.
type ProjectileView struct {
	ActionID int64
	TargetID string
	Position world.Vec3
	Progress float64
}

type flight struct {
	inAir []*projectile
}

// flightTime is distance over speed; a non-positive speed lands instantly.
func flightTime(distance, speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	return time.Duration(distance / speed * float64(time.Second))
}

func (f *flight) launch(p *projectile) {
	f.inAir = append(f.inAir, p)
}

// landed removes and returns every projectile due at now, earliest first.
func (f *flight) landed(now time.Time) []*projectile {
	var due []*projectile
	kept := f.inAir[:0]
	for _, p := range f.inAir {
		if !now.Before(p.landsAt) {
			due = append(due, p)
		} else {
			kept = append(kept, p)
		}
	}
	f.inAir = kept
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].landsAt.Before(due[j].landsAt)
	})
	return due
}

func (f *flight) views(now time.Time) []ProjectileView {
	out := make([]ProjectileView, 0, len(f.inAir))
	for _, p := range f.inAir {
		total := p.landsAt.Sub(p.launchedAt)
		progress := 1.0
		if total > 0 {
			progress = float64(now.Sub(p.launchedAt)) / float64(total)
		}
		if progress < 0 {
			progress = 0
		} else if progress > 1 {
			progress = 1
		}
		out = append(out, ProjectileView{
			ActionID: p.actionID,
			TargetID: p.targetID,
			Position: p.origin.Add(p.aim.Sub(p.origin).Scale(progress)),
			Progress: progress,
		})
	}
	return out
}
