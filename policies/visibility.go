// Package policies contains the pure decision rules of the referee system:
// zone/role based visibility, assignment eligibility and notification
// recipient routing. No I/O happens here; callers load the data and persist
// the results.
//
// Правила видимости:
//   - super_admin: видит всё
//   - national_admin: только турниры с TournamentType.is_national = true
//   - admin (зональный): только сущности своей зоны
//   - referee nazionale/internazionale: своя зона + национальные турниры
//   - referee primo_livello/regionale: только своя зона
package policies

import "github.com/golf-arbitri/referee-system/models"

// TournamentFilter is a declarative visibility predicate over tournaments.
// The same value backs collection filtering (repositories translate it into
// WHERE clauses) and single-record authorization via Matches, so list and
// show endpoints cannot drift apart.
type TournamentFilter struct {
	// Unrestricted disables all filtering (super_admin, or the fallback for
	// users without a zone).
	Unrestricted bool
	// NationalOnly limits the set to tournaments whose type is national.
	NationalOnly bool
	// ZoneID, when set, limits the set to tournaments of that zone.
	ZoneID *int
	// IncludeNational widens a ZoneID restriction with national-type
	// tournaments (national-level referees).
	IncludeNational bool
}

// VisibleTournaments computes the tournament visibility filter for a user.
func VisibleTournaments(user *models.User) TournamentFilter {
	switch user.UserType {
	case models.TypeSuperAdmin:
		return TournamentFilter{Unrestricted: true}
	case models.TypeNationalAdmin:
		return TournamentFilter{NationalOnly: true}
	case models.TypeZoneAdmin:
		if user.ZoneID == nil {
			// Зональный админ без зоны — нарушение инварианта данных,
			// валидируется при создании пользователя, не здесь.
			return TournamentFilter{Unrestricted: true}
		}
		return TournamentFilter{ZoneID: user.ZoneID}
	case models.TypeReferee:
		if user.ZoneID == nil {
			return TournamentFilter{Unrestricted: true}
		}
		if user.IsNationalReferee() {
			return TournamentFilter{ZoneID: user.ZoneID, IncludeNational: true}
		}
		return TournamentFilter{ZoneID: user.ZoneID}
	}
	if user.ZoneID != nil {
		return TournamentFilter{ZoneID: user.ZoneID}
	}
	return TournamentFilter{Unrestricted: true}
}

// Matches reports whether a single tournament is visible under the filter.
// The tournament's Type must be loaded for national checks to apply; a
// tournament without a loaded type is treated as zonal.
func (f TournamentFilter) Matches(t *models.Tournament) bool {
	if f.Unrestricted {
		return true
	}
	if f.NationalOnly {
		return t.IsNational()
	}
	if f.ZoneID != nil {
		if t.ZoneID != nil && *t.ZoneID == *f.ZoneID {
			return true
		}
		return f.IncludeNational && t.IsNational()
	}
	return true
}

// CanAccessTournament is the single-record form of VisibleTournaments. It is
// used for authorization on direct reads: a false result must surface as an
// access error, not as silent filtering.
func CanAccessTournament(user *models.User, t *models.Tournament) bool {
	return VisibleTournaments(user).Matches(t)
}

// UserFilter restricts the referee roster visible to an administrator.
type UserFilter struct {
	Unrestricted bool
	ZoneID       *int
}

// VisibleUsers computes roster visibility: super_admin and national_admin see
// everyone, zone admins see their own zone. Other user types fall back to
// their zone when present.
func VisibleUsers(user *models.User) UserFilter {
	switch user.UserType {
	case models.TypeSuperAdmin, models.TypeNationalAdmin:
		return UserFilter{Unrestricted: true}
	case models.TypeZoneAdmin:
		if user.ZoneID != nil {
			return UserFilter{ZoneID: user.ZoneID}
		}
		return UserFilter{Unrestricted: true}
	}
	if user.ZoneID != nil {
		return UserFilter{ZoneID: user.ZoneID}
	}
	return UserFilter{Unrestricted: true}
}

// Matches reports whether a single user is visible under the filter.
func (f UserFilter) Matches(u *models.User) bool {
	if f.Unrestricted || f.ZoneID == nil {
		return true
	}
	return u.ZoneID != nil && *u.ZoneID == *f.ZoneID
}

// ClubFilter restricts club visibility.
type ClubFilter struct {
	Unrestricted bool
	ZoneID       *int
}

// VisibleClubs computes club visibility: national scope sees everything,
// everyone else is limited to their own zone.
func VisibleClubs(user *models.User) ClubFilter {
	if user.UserType == models.TypeSuperAdmin || user.UserType == models.TypeNationalAdmin {
		return ClubFilter{Unrestricted: true}
	}
	if user.ZoneID != nil {
		return ClubFilter{ZoneID: user.ZoneID}
	}
	return ClubFilter{Unrestricted: true}
}

// Matches reports whether a single club is visible under the filter.
func (f ClubFilter) Matches(c *models.Club) bool {
	if f.Unrestricted || f.ZoneID == nil {
		return true
	}
	return c.ZoneID == *f.ZoneID
}
