package models

import "time"

// Club — гольф-клуб, принадлежит ровно одной зоне.
type Club struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ZoneID    int       `json:"zone_id"`
	Email     *string   `json:"email,omitempty"`
	City      *string   `json:"city,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`

	Zone *Zone `json:"zone,omitempty"`
}
