package combat

import "errors"

// Precondition failures. Fire returns one of these and creates no action.
var (
	ErrNoSourceShip = errors.New("combat: no live source ship")
	ErrNoTarget     = errors.New("combat: no target selected")
	ErrSafeZone     = errors.New("combat: ship is in a safe zone")
	ErrOutOfRange   = errors.New("combat: target out of range")
	ErrOnCooldown   = errors.New("combat: cannons are reloading")
)

// Ledger errors.
var (
	ErrDuplicateAction  = errors.New("combat: duplicate action id")
	ErrActionNotFound   = errors.New("combat: action not found")
	ErrActionNotPending = errors.New("combat: action is not pending")
)

// IsPrecondition reports whether err is a local precondition failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoSourceShip) ||
		errors.Is(err, ErrNoTarget) ||
		errors.Is(err, ErrSafeZone) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrOnCooldown)
}
