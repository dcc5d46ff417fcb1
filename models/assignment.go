package models

import "time"

// AssignmentRole — роль арбитра на турнире, соответствует ENUM в БД.
type AssignmentRole string

const (
	RoleArbitro     AssignmentRole = "Arbitro"
	RoleDirettore   AssignmentRole = "Direttore di Torneo"
	RoleOsservatore AssignmentRole = "Osservatore"
)

// IsValid reports whether the role is one of the known enum values.
func (r AssignmentRole) IsValid() bool {
	switch r {
	case RoleArbitro, RoleDirettore, RoleOsservatore:
		return true
	}
	return false
}

// AssignmentStatus — состояние назначения.
type AssignmentStatus string

const (
	AssignmentProposed  AssignmentStatus = "proposed"
	AssignmentConfirmed AssignmentStatus = "confirmed"
)

// Assignment — назначение арбитра на турнир в конкретной роли.
// Пара (user_id, tournament_id) уникальна.
type Assignment struct {
	ID           int              `json:"id"`
	UserID       int              `json:"user_id"`
	TournamentID int              `json:"tournament_id"`
	Role         AssignmentRole   `json:"role"`
	Status       AssignmentStatus `json:"status"`
	IsConfirmed  bool             `json:"is_confirmed"`
	Notes        *string          `json:"notes,omitempty"`
	AssignedBy   int              `json:"assigned_by"`
	AssignedAt   time.Time        `json:"assigned_at"`
	DocumentKey  *string          `json:"-"`
	DocumentURL  *string          `json:"document_url,omitempty"`

	User       *User       `json:"user,omitempty"`
	Tournament *Tournament `json:"tournament,omitempty"`
}
