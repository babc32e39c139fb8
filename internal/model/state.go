package model

// EnemyState represents the behavior state of an enemy.
type EnemyState int32

const (
	// StateIdle - enemy has no target and is standing still
	StateIdle EnemyState = iota
	// StateChasing - enemy is moving toward its current target
	StateChasing
	// StateAttacking - enemy is in attack range and swinging on cooldown
	StateAttacking
	// StateKnockback - enemy is displaced and its combat logic is suspended
	StateKnockback
	// StateStunned - enemy is stunned and its combat logic is suspended
	StateStunned
	// StateDying - health reached zero, death animation window running
	StateDying
	// StateRemoved - terminal; awaiting batched removal and disposal
	StateRemoved
)

// String returns human-readable state name.
func (s EnemyState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChasing:
		return "CHASING"
	case StateAttacking:
		return "ATTACKING"
	case StateKnockback:
		return "KNOCKBACK"
	case StateStunned:
		return "STUNNED"
	case StateDying:
		return "DYING"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state is Dying or Removed.
func (s EnemyState) IsTerminal() bool {
	return s == StateDying || s == StateRemoved
}

// Ownership says which process decides outcomes for an enemy.
type Ownership int32

const (
	// OwnershipAuthoritative - this process runs AI, combat and spawning for the enemy
	OwnershipAuthoritative Ownership = iota
	// OwnershipMirrored - the enemy is a local shadow of a remote authority
	OwnershipMirrored
)

// String returns human-readable ownership name.
func (o Ownership) String() string {
	if o == OwnershipMirrored {
		return "MIRRORED"
	}
	return "AUTHORITATIVE"
}
