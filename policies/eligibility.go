package policies

import (
	"errors"
	"fmt"

	"github.com/golf-arbitri/referee-system/models"
)

// Причины отказа в назначении. Первая непройденная проверка прерывает
// остальные (fail-fast); успешная валидация не имеет побочных эффектов.
var (
	ErrForbidden               = errors.New("actor is not allowed to assign referees to this tournament")
	ErrNotAcceptingAssignments = errors.New("tournament is not in a state that accepts assignments")
	ErrCapacityExceeded        = errors.New("tournament already has the maximum number of referees")
	ErrInvalidReferee          = errors.New("selected user is not a referee")
	ErrInactiveReferee         = errors.New("selected referee is not active")
	ErrAlreadyAssigned         = errors.New("referee is already assigned to this tournament")
	ErrLevelTooLow             = errors.New("referee does not have the level required by this tournament")
	ErrZoneMismatch            = errors.New("referee belongs to a different zone")
	ErrInvalidRole             = errors.New("invalid assignment role")
)

// AssignmentState carries the already-loaded persistence facts the policy
// needs. The pre-check is an optimistic fast path: the database unique index
// and the transactional capacity re-check remain the authority of record.
type AssignmentState struct {
	// CurrentCount is the number of committed assignments for the tournament.
	CurrentCount int
	// AlreadyAssigned reports whether the candidate already has an
	// assignment for the tournament.
	AlreadyAssigned bool
}

// CanAssign validates a proposed (tournament, referee, role) assignment.
// The tournament's Type must be loaded; all checks are pure predicates over
// the given data, evaluated in a fixed order.
func CanAssign(actor *models.User, t *models.Tournament, candidate *models.User, role models.AssignmentRole, state AssignmentState) error {
	if t.Type == nil {
		return fmt.Errorf("tournament %d: tournament type not loaded", t.ID)
	}

	// 1. Полномочия инициатора: только админы; зональный — только своя зона.
	if !actor.UserType.IsAdmin() {
		return ErrForbidden
	}
	if actor.UserType == models.TypeZoneAdmin {
		if actor.ZoneID == nil || t.ZoneID == nil || *t.ZoneID != *actor.ZoneID {
			return ErrForbidden
		}
	}

	// 2. Статус турнира.
	if !t.Status.AcceptsAssignments() {
		return ErrNotAcceptingAssignments
	}

	// 3. Вместимость судейской бригады.
	if state.CurrentCount >= t.Type.MaxReferees {
		return ErrCapacityExceeded
	}

	// 4. Кандидат — активный арбитр.
	if candidate.UserType != models.TypeReferee {
		return ErrInvalidReferee
	}
	if !candidate.IsActive {
		return ErrInactiveReferee
	}

	// 5. Повторное назначение.
	if state.AlreadyAssigned {
		return ErrAlreadyAssigned
	}

	// 6. Уровень арбитра.
	if candidate.Level == nil || !candidate.Level.AtLeast(t.Type.RequiredLevel) {
		return ErrLevelTooLow
	}

	// 7. Зона: для национальных типов ограничение не действует.
	if !t.Type.IsNational {
		if candidate.ZoneID == nil || t.ZoneID == nil || *candidate.ZoneID != *t.ZoneID {
			return ErrZoneMismatch
		}
	}

	// 8. Роль.
	if !role.IsValid() {
		return ErrInvalidRole
	}

	return nil
}
