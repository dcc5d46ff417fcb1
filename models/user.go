package models

import "time"

// UserType определяет роль пользователя в системе, соответствует ENUM в БД.
type UserType string

const (
	TypeSuperAdmin    UserType = "super_admin"
	TypeNationalAdmin UserType = "national_admin"
	TypeZoneAdmin     UserType = "admin"
	TypeReferee       UserType = "referee"
)

// IsAdmin reports whether the user type carries any administrative authority.
func (t UserType) IsAdmin() bool {
	return t == TypeZoneAdmin || t == TypeNationalAdmin || t == TypeSuperAdmin
}

// RefereeLevel — уровень арбитра, соответствует ENUM в БД.
// Порядок уровней фиксирован: сравнение идёт по Ordinal().
type RefereeLevel string

const (
	LevelAspirante      RefereeLevel = "aspirante"
	LevelPrimoLivello   RefereeLevel = "primo_livello"
	LevelRegionale      RefereeLevel = "regionale"
	LevelNazionale      RefereeLevel = "nazionale"
	LevelInternazionale RefereeLevel = "internazionale"
)

var levelOrdinals = map[RefereeLevel]int{
	LevelAspirante:      0,
	LevelPrimoLivello:   1,
	LevelRegionale:      2,
	LevelNazionale:      3,
	LevelInternazionale: 4,
}

// Ordinal returns the rank of the level, or -1 for an unknown level.
func (l RefereeLevel) Ordinal() int {
	ord, ok := levelOrdinals[l]
	if !ok {
		return -1
	}
	return ord
}

// IsValid reports whether the level is one of the known enum values.
func (l RefereeLevel) IsValid() bool {
	_, ok := levelOrdinals[l]
	return ok
}

// AtLeast reports whether the level satisfies the given minimum level.
func (l RefereeLevel) AtLeast(min RefereeLevel) bool {
	return l.Ordinal() >= 0 && min.Ordinal() >= 0 && l.Ordinal() >= min.Ordinal()
}

type User struct {
	ID           int           `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	UserType     UserType      `json:"user_type"`
	ZoneID       *int          `json:"zone_id,omitempty"` // nil for national-scope roles
	Level        *RefereeLevel `json:"level,omitempty"`   // set for referees only
	IsActive     bool          `json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Zone *Zone `json:"zone,omitempty"`
}

// IsNationalReferee reports whether the referee may officiate national
// tournaments outside their own zone.
func (u *User) IsNationalReferee() bool {
	if u.UserType != TypeReferee || u.Level == nil {
		return false
	}
	return *u.Level == LevelNazionale || *u.Level == LevelInternazionale
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
