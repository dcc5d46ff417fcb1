package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
// Жизненный цикл линейный: draft → open → closed → assigned → completed;
// cancelled — терминальный статус, планировщиком не продвигается.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusOpen      TournamentStatus = "open"
	StatusClosed    TournamentStatus = "closed"
	StatusAssigned  TournamentStatus = "assigned"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

// AcceptsAssignments reports whether referees may still be assigned.
func (s TournamentStatus) AcceptsAssignments() bool {
	return s == StatusOpen || s == StatusClosed
}

// AcceptsAvailability reports whether referees may still declare availability.
func (s TournamentStatus) AcceptsAvailability() bool {
	return s == StatusOpen
}

// Tournament представляет турнир.
type Tournament struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	Description          *string          `json:"description,omitempty"`
	ClubID               int              `json:"club_id"`
	TypeID               int              `json:"type_id"`
	ZoneID               *int             `json:"zone_id,omitempty"` // nil only for national types
	Status               TournamentStatus `json:"status"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	AvailabilityDeadline time.Time        `json:"availability_deadline"`
	CreatedBy            int              `json:"created_by"`
	CreatedAt            time.Time        `json:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Club        *Club           `json:"club,omitempty"`
	Type        *TournamentType `json:"type,omitempty"`
	Zone        *Zone           `json:"zone,omitempty"`
	Assignments []Assignment    `json:"assignments,omitempty"`
}

// IsNational reports whether the tournament spans all zones. Requires Type
// to be loaded; a tournament without a loaded type is treated as zonal.
func (t *Tournament) IsNational() bool {
	return t.Type != nil && t.Type.IsNational
}

// DatesOverlap reports whether two tournaments share at least one day.
func (t *Tournament) DatesOverlap(other *Tournament) bool {
	return !t.StartDate.After(other.EndDate) && !other.StartDate.After(t.EndDate)
}
