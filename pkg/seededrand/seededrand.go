// Package seededrand is the shared deterministic generator that lets the
// client and the validator compute the same combat roll from one seed.
package seededrand

import "math/rand"

const (
	multiplier = 9301
	increment  = 49297
	modulus    = 233280
)

// Rand is a linear congruential generator. Not safe for concurrent use.
type Rand struct {
	seed int64
}

func New(seed int64) *Rand {
	seed %= modulus
	if seed < 0 {
		seed += modulus
	}
	return &Rand{seed: seed}
}

// Next advances the generator and returns a value in [0,1).
func (r *Rand) Next() float64 {
	r.seed = (r.seed*multiplier + increment) % modulus
	return float64(r.seed) / modulus
}

// NewSeed returns a fresh seed inside the generator's period.
func NewSeed() int64 {
	return rand.Int63n(modulus)
}

// Outcome is the result of one cannon roll.
type Outcome struct {
	Hit    bool
	Damage int
}

// Roll draws hit/miss and then, for hits only, a damage value in
// [minDamage, maxDamage]. Both sides must call it with identical arguments.
func Roll(seed int64, missChance float64, minDamage, maxDamage int) Outcome {
	r := New(seed)
	if r.Next() < missChance {
		return Outcome{}
	}
	if maxDamage < minDamage {
		maxDamage = minDamage
	}
	span := maxDamage - minDamage + 1
	damage := minDamage + int(r.Next()*float64(span))
	if damage > maxDamage {
		damage = maxDamage
	}
	return Outcome{Hit: true, Damage: damage}
}
