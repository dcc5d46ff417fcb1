package policies_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
)

func openZonalTournament(zoneID, maxReferees int, required models.RefereeLevel) *models.Tournament {
	return &models.Tournament{
		ID:     1,
		ZoneID: intPtr(zoneID),
		Status: models.StatusOpen,
		Type: &models.TournamentType{
			IsNational:    false,
			RequiredLevel: required,
			MinReferees:   1,
			MaxReferees:   maxReferees,
		},
	}
}

func openNationalTournament(maxReferees int, required models.RefereeLevel) *models.Tournament {
	return &models.Tournament{
		ID:     2,
		Status: models.StatusOpen,
		Type: &models.TournamentType{
			IsNational:    true,
			RequiredLevel: required,
			MinReferees:   2,
			MaxReferees:   maxReferees,
		},
	}
}

func activeReferee(zoneID int, level models.RefereeLevel) *models.User {
	return &models.User{
		ID:       42,
		UserType: models.TypeReferee,
		ZoneID:   intPtr(zoneID),
		Level:    levelPtr(level),
		IsActive: true,
	}
}

func TestCanAssign_HappyPath(t *testing.T) {
	actor := &models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(3)}
	tournament := openZonalTournament(3, 4, models.LevelRegionale)
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	require.NoError(t, err)
}

func TestCanAssign_RefereeActorForbidden(t *testing.T) {
	actor := activeReferee(3, models.LevelInternazionale)
	tournament := openZonalTournament(3, 4, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	assert.ErrorIs(t, err, policies.ErrForbidden)
}

func TestCanAssign_ZoneAdminOutsideOwnZoneForbidden(t *testing.T) {
	actor := &models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(1)}
	tournament := openZonalTournament(3, 4, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	assert.ErrorIs(t, err, policies.ErrForbidden)
}

func TestCanAssign_StatusGate(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	candidate := activeReferee(3, models.LevelNazionale)

	for _, status := range []models.TournamentStatus{
		models.StatusDraft, models.StatusAssigned, models.StatusCompleted, models.StatusCancelled,
	} {
		tournament := openZonalTournament(3, 4, models.LevelAspirante)
		tournament.Status = status

		err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

		assert.ErrorIs(t, err, policies.ErrNotAcceptingAssignments, "status %s", status)
	}

	for _, status := range []models.TournamentStatus{models.StatusOpen, models.StatusClosed} {
		tournament := openZonalTournament(3, 4, models.LevelAspirante)
		tournament.Status = status

		err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

		assert.NoError(t, err, "status %s", status)
	}
}

func TestCanAssign_CapacityExceededRegardlessOfRole(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 2, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelInternazionale)

	state := policies.AssignmentState{CurrentCount: 2}

	for _, role := range []models.AssignmentRole{
		models.RoleArbitro, models.RoleDirettore, models.RoleOsservatore,
	} {
		err := policies.CanAssign(actor, tournament, candidate, role, state)
		assert.ErrorIs(t, err, policies.ErrCapacityExceeded, "role %s", role)
	}
}

func TestCanAssign_CandidateMustBeActiveReferee(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 4, models.LevelAspirante)

	notAReferee := &models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(3), IsActive: true}
	err := policies.CanAssign(actor, tournament, notAReferee, models.RoleArbitro, policies.AssignmentState{})
	assert.ErrorIs(t, err, policies.ErrInvalidReferee)

	inactive := activeReferee(3, models.LevelNazionale)
	inactive.IsActive = false
	err = policies.CanAssign(actor, tournament, inactive, models.RoleArbitro, policies.AssignmentState{})
	assert.ErrorIs(t, err, policies.ErrInactiveReferee)
}

func TestCanAssign_DuplicateAssignment(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 4, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro,
		policies.AssignmentState{CurrentCount: 1, AlreadyAssigned: true})

	assert.ErrorIs(t, err, policies.ErrAlreadyAssigned)
}

func TestCanAssign_LevelTooLow(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	// regionale (2) < nazionale (3)
	tournament := openZonalTournament(3, 4, models.LevelNazionale)
	candidate := activeReferee(3, models.LevelRegionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	assert.ErrorIs(t, err, policies.ErrLevelTooLow)
}

func TestCanAssign_ZoneMismatchOnZonalTournament(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 4, models.LevelAspirante)
	candidate := activeReferee(5, models.LevelInternazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	assert.ErrorIs(t, err, policies.ErrZoneMismatch)
}

func TestCanAssign_NationalTournamentIgnoresZone(t *testing.T) {
	actor := &models.User{UserType: models.TypeNationalAdmin}
	tournament := openNationalTournament(6, models.LevelNazionale)
	candidate := activeReferee(5, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	require.NoError(t, err)
}

func TestCanAssign_InvalidRole(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 4, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.AssignmentRole("Caddy"), policies.AssignmentState{})

	assert.ErrorIs(t, err, policies.ErrInvalidRole)
}

// Repeated evaluation with unchanged inputs must yield the same reason.
func TestCanAssign_Idempotent(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := openZonalTournament(3, 2, models.LevelAspirante)
	candidate := activeReferee(3, models.LevelNazionale)
	state := policies.AssignmentState{CurrentCount: 2}

	first := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, state)
	second := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, state)

	assert.ErrorIs(t, first, policies.ErrCapacityExceeded)
	assert.ErrorIs(t, second, policies.ErrCapacityExceeded)
}

func TestCanAssign_TypeNotLoadedIsAnError(t *testing.T) {
	actor := &models.User{UserType: models.TypeSuperAdmin}
	tournament := &models.Tournament{ID: 7, Status: models.StatusOpen}
	candidate := activeReferee(3, models.LevelNazionale)

	err := policies.CanAssign(actor, tournament, candidate, models.RoleArbitro, policies.AssignmentState{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, policies.ErrForbidden)
}
