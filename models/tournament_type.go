package models

import "time"

// TournamentType описывает категорию турнира: национальная или зональная,
// требуемый уровень арбитров и границы состава судейской бригады.
type TournamentType struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	IsNational    bool         `json:"is_national"`
	RequiredLevel RefereeLevel `json:"required_level"`
	MinReferees   int          `json:"min_referees"`
	MaxReferees   int          `json:"max_referees"`
	CreatedAt     time.Time    `json:"created_at"`
}
