package policies_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
)

func intPtr(v int) *int { return &v }

func levelPtr(l models.RefereeLevel) *models.RefereeLevel { return &l }

func zonalTournament(zoneID int) *models.Tournament {
	return &models.Tournament{
		ID:     100 + zoneID,
		ZoneID: intPtr(zoneID),
		Type:   &models.TournamentType{IsNational: false},
	}
}

func nationalTournament() *models.Tournament {
	return &models.Tournament{
		ID:   999,
		Type: &models.TournamentType{IsNational: true},
	}
}

func TestVisibleTournaments_SuperAdminSeesEverything(t *testing.T) {
	admin := &models.User{UserType: models.TypeSuperAdmin}

	filter := policies.VisibleTournaments(admin)

	assert.True(t, filter.Unrestricted)
	assert.True(t, filter.Matches(zonalTournament(1)))
	assert.True(t, filter.Matches(nationalTournament()))
}

func TestVisibleTournaments_NationalAdminSeesOnlyNationalTypes(t *testing.T) {
	admin := &models.User{UserType: models.TypeNationalAdmin}

	filter := policies.VisibleTournaments(admin)

	assert.True(t, filter.Matches(nationalTournament()))
	// Зона не имеет значения: зональные турниры невидимы в любой зоне.
	for zone := 1; zone <= 7; zone++ {
		assert.False(t, filter.Matches(zonalTournament(zone)))
	}
}

func TestVisibleTournaments_ZoneAdminLimitedToOwnZone(t *testing.T) {
	admin := &models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(3)}

	filter := policies.VisibleTournaments(admin)

	assert.True(t, filter.Matches(zonalTournament(3)))
	assert.False(t, filter.Matches(zonalTournament(4)))
	assert.False(t, filter.Matches(nationalTournament()))
}

func TestVisibleTournaments_NationalRefereeSeesOwnZonePlusNational(t *testing.T) {
	referee := &models.User{
		UserType: models.TypeReferee,
		ZoneID:   intPtr(2),
		Level:    levelPtr(models.LevelNazionale),
	}

	filter := policies.VisibleTournaments(referee)

	assert.True(t, filter.Matches(zonalTournament(2)))
	assert.True(t, filter.Matches(nationalTournament()))
	assert.False(t, filter.Matches(zonalTournament(5)))
}

func TestVisibleTournaments_RegionalRefereeSeesOwnZoneOnly(t *testing.T) {
	referee := &models.User{
		UserType: models.TypeReferee,
		ZoneID:   intPtr(2),
		Level:    levelPtr(models.LevelRegionale),
	}

	filter := policies.VisibleTournaments(referee)

	assert.True(t, filter.Matches(zonalTournament(2)))
	assert.False(t, filter.Matches(nationalTournament()))
	assert.False(t, filter.Matches(zonalTournament(5)))
}

func TestVisibleTournaments_UserWithoutZoneFallsBackToUnrestricted(t *testing.T) {
	referee := &models.User{UserType: models.TypeReferee, Level: levelPtr(models.LevelAspirante)}

	filter := policies.VisibleTournaments(referee)

	assert.True(t, filter.Unrestricted)
	assert.True(t, filter.Matches(zonalTournament(1)))
}

// CanAccessTournament must agree with VisibleTournaments applied as a filter
// for every user type and tournament scope.
func TestCanAccessTournament_ConsistentWithCollectionFilter(t *testing.T) {
	tournaments := []*models.Tournament{
		zonalTournament(1), zonalTournament(2), zonalTournament(3),
		nationalTournament(),
	}
	users := []*models.User{
		{UserType: models.TypeSuperAdmin},
		{UserType: models.TypeNationalAdmin},
		{UserType: models.TypeZoneAdmin, ZoneID: intPtr(1)},
		{UserType: models.TypeZoneAdmin, ZoneID: intPtr(2)},
		{UserType: models.TypeReferee, ZoneID: intPtr(1), Level: levelPtr(models.LevelInternazionale)},
		{UserType: models.TypeReferee, ZoneID: intPtr(3), Level: levelPtr(models.LevelPrimoLivello)},
		{UserType: models.TypeReferee, Level: levelPtr(models.LevelRegionale)},
	}

	for _, u := range users {
		filter := policies.VisibleTournaments(u)
		for _, tr := range tournaments {
			assert.Equal(t, filter.Matches(tr), policies.CanAccessTournament(u, tr),
				"user type %s, tournament %d", u.UserType, tr.ID)
		}
	}
}

func TestVisibleUsers(t *testing.T) {
	zone2Referee := &models.User{UserType: models.TypeReferee, ZoneID: intPtr(2)}
	zone5Referee := &models.User{UserType: models.TypeReferee, ZoneID: intPtr(5)}

	superAdmin := policies.VisibleUsers(&models.User{UserType: models.TypeSuperAdmin})
	assert.True(t, superAdmin.Matches(zone2Referee))
	assert.True(t, superAdmin.Matches(zone5Referee))

	nationalAdmin := policies.VisibleUsers(&models.User{UserType: models.TypeNationalAdmin})
	assert.True(t, nationalAdmin.Matches(zone2Referee))
	assert.True(t, nationalAdmin.Matches(zone5Referee))

	zoneAdmin := policies.VisibleUsers(&models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(2)})
	assert.True(t, zoneAdmin.Matches(zone2Referee))
	assert.False(t, zoneAdmin.Matches(zone5Referee))
}

func TestVisibleClubs(t *testing.T) {
	zone1Club := &models.Club{ZoneID: 1}
	zone4Club := &models.Club{ZoneID: 4}

	national := policies.VisibleClubs(&models.User{UserType: models.TypeNationalAdmin})
	assert.True(t, national.Matches(zone1Club))
	assert.True(t, national.Matches(zone4Club))

	zonal := policies.VisibleClubs(&models.User{UserType: models.TypeZoneAdmin, ZoneID: intPtr(4)})
	assert.False(t, zonal.Matches(zone1Club))
	assert.True(t, zonal.Matches(zone4Club))
}
