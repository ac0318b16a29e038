// Package domain defines the core domain models for the mentor service.
package domain

// Role identifies who authored a turn.
type Role string

const (
	// RoleDirector marks guidance addressed to the model only. Director
	// turns never leave the server through history views.
	RoleDirector  Role = "director"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDirector, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ProgressLabel is the coarse progress bucket derived from user turns.
type ProgressLabel string

const (
	ProgressInitial      ProgressLabel = "initial"
	ProgressBeginning    ProgressLabel = "beginning"
	ProgressIntermediate ProgressLabel = "intermediate"
	ProgressAdvanced     ProgressLabel = "advanced"
)

// ProgressFor maps a user-turn count onto its label.
func ProgressFor(userTurns int) ProgressLabel {
	switch {
	case userTurns > 10:
		return ProgressAdvanced
	case userTurns > 5:
		return ProgressIntermediate
	case userTurns > 2:
		return ProgressBeginning
	default:
		return ProgressInitial
	}
}
