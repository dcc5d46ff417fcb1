package models

import "time"

// Availability — заявленная арбитром готовность судить турнир.
// Пара (user_id, tournament_id) уникальна.
type Availability struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	TournamentID int       `json:"tournament_id"`
	Notes        *string   `json:"notes,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`

	User       *User       `json:"user,omitempty"`
	Tournament *Tournament `json:"tournament,omitempty"`
}
