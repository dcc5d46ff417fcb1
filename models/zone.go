package models

import "time"

// Zone — географическая зона федерации. Админы и большинство арбитров
// привязаны ровно к одной зоне.
type Zone struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
