package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
)

func intPtr(v int) *int { return &v }

func levelPtr(l models.RefereeLevel) *models.RefereeLevel { return &l }

func testMailboxes() policies.MailboxDirectory {
	return policies.MailboxDirectory{
		ZoneMailboxes: map[int]string{
			1: "szr1@federgolf.it",
			2: "szr2@federgolf.it",
		},
		FallbackMailbox: "arbitri@federgolf.it",
		NationalMailbox: "crc@federgolf.it",
	}
}

func testReferee(id, zoneID int, level models.RefereeLevel) *models.User {
	return &models.User{
		ID:        id,
		FirstName: "Mario",
		LastName:  "Rossi",
		Email:     "mario.rossi@example.com",
		UserType:  models.TypeReferee,
		ZoneID:    intPtr(zoneID),
		Level:     levelPtr(level),
		IsActive:  true,
	}
}

func openTournament(id, zoneID int, deadline time.Time) *models.Tournament {
	return &models.Tournament{
		ID:                   id,
		Name:                 "Coppa Test",
		ZoneID:               intPtr(zoneID),
		Status:               models.StatusOpen,
		StartDate:            deadline.Add(48 * time.Hour),
		EndDate:              deadline.Add(72 * time.Hour),
		AvailabilityDeadline: deadline,
		Type:                 &models.TournamentType{ID: 1, Name: "Gara Zonale", RequiredLevel: models.LevelPrimoLivello, MinReferees: 1, MaxReferees: 4},
	}
}

func openNational(id int, deadline time.Time) *models.Tournament {
	t := openTournament(id, 0, deadline)
	t.ZoneID = nil
	t.Type = &models.TournamentType{ID: 2, Name: "Campionato Nazionale", IsNational: true, RequiredLevel: models.LevelNazionale, MinReferees: 2, MaxReferees: 6}
	return t
}

func TestSubmitRoutesNotificationsPerScope(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)

	referee := testReferee(10, 1, models.LevelNazionale)
	zonal := openTournament(1, 1, future)
	national := openNational(2, future)

	userRepo := newFakeUserRepo(referee)
	tournamentRepo := newFakeTournamentRepo(zonal, national)
	availabilityRepo := newFakeAvailabilityRepo()
	mailer := newFakeMailer()
	broadcaster := &fakeBroadcaster{}

	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, mailer, testMailboxes(), broadcaster, nil)

	result, err := svc.Submit(context.Background(), referee.ID, SubmitAvailabilityInput{
		TournamentIDs: []int{zonal.ID, national.ID},
	})
	require.NoError(t, err)
	require.Len(t, result.Submitted, 2)
	assert.Empty(t, result.Failed)

	// Зональный турнир уходит в зональный ящик, национальный — в CRC.
	require.Len(t, mailer.adminBatches["szr1@federgolf.it"], 1)
	assert.Equal(t, zonal.ID, mailer.adminBatches["szr1@federgolf.it"][0].ID)
	require.Len(t, mailer.adminBatches["crc@federgolf.it"], 1)
	assert.Equal(t, national.ID, mailer.adminBatches["crc@federgolf.it"][0].ID)

	// Арбитр получает одно подтверждение со всеми турнирами.
	require.Len(t, mailer.confirmations, 1)
	assert.Len(t, mailer.confirmations[0], 2)

	assert.Len(t, broadcaster.events, 2)
}

func TestSubmitReportsPerTournamentFailures(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)

	referee := testReferee(10, 1, models.LevelRegionale)
	open := openTournament(1, 1, future)
	closed := openTournament(2, 1, future)
	closed.Status = models.StatusClosed
	expired := openTournament(3, 1, time.Now().Add(-time.Hour))
	otherZone := openTournament(4, 2, future)

	userRepo := newFakeUserRepo(referee)
	tournamentRepo := newFakeTournamentRepo(open, closed, expired, otherZone)
	availabilityRepo := newFakeAvailabilityRepo()
	mailer := newFakeMailer()

	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, mailer, testMailboxes(), nil, nil)

	result, err := svc.Submit(context.Background(), referee.ID, SubmitAvailabilityInput{
		TournamentIDs: []int{open.ID, closed.ID, expired.ID, otherZone.ID, 99},
	})
	require.NoError(t, err)

	require.Len(t, result.Submitted, 1)
	assert.Equal(t, open.ID, result.Submitted[0].TournamentID)

	require.Len(t, result.Failed, 4)
	assert.Equal(t, ErrAvailabilityClosed.Error(), result.Failed[closed.ID])
	assert.Equal(t, ErrAvailabilityDeadlinePast.Error(), result.Failed[expired.ID])
	// Чужая зона неотличима от несуществующего турнира.
	assert.Equal(t, ErrNotFound.Error(), result.Failed[otherZone.ID])
	assert.Equal(t, ErrNotFound.Error(), result.Failed[99])
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)

	referee := testReferee(10, 1, models.LevelRegionale)
	tournament := openTournament(1, 1, future)

	userRepo := newFakeUserRepo(referee)
	tournamentRepo := newFakeTournamentRepo(tournament)
	availabilityRepo := newFakeAvailabilityRepo()
	mailer := newFakeMailer()

	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, mailer, testMailboxes(), nil, nil)

	first, err := svc.Submit(context.Background(), referee.ID, SubmitAvailabilityInput{TournamentIDs: []int{tournament.ID}})
	require.NoError(t, err)
	require.Len(t, first.Submitted, 1)

	second, err := svc.Submit(context.Background(), referee.ID, SubmitAvailabilityInput{TournamentIDs: []int{tournament.ID}})
	require.NoError(t, err)
	assert.Empty(t, second.Submitted)
	assert.Equal(t, ErrAvailabilityDuplicate.Error(), second.Failed[tournament.ID])
}

func TestSubmitRejectsNonReferees(t *testing.T) {
	admin := &models.User{ID: 5, UserType: models.TypeZoneAdmin, ZoneID: intPtr(1), IsActive: true}
	userRepo := newFakeUserRepo(admin)

	svc := NewAvailabilityService(newFakeAvailabilityRepo(), newFakeTournamentRepo(), userRepo, newFakeMailer(), testMailboxes(), nil, nil)

	_, err := svc.Submit(context.Background(), admin.ID, SubmitAvailabilityInput{TournamentIDs: []int{1}})
	assert.ErrorIs(t, err, ErrNotAReferee)
}

func TestWithdrawHonorsDeadline(t *testing.T) {
	referee := testReferee(10, 1, models.LevelRegionale)
	expired := openTournament(1, 1, time.Now().Add(-time.Hour))

	userRepo := newFakeUserRepo(referee)
	tournamentRepo := newFakeTournamentRepo(expired)
	availabilityRepo := newFakeAvailabilityRepo()
	require.NoError(t, availabilityRepo.Create(context.Background(), &models.Availability{UserID: referee.ID, TournamentID: expired.ID}))

	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, newFakeMailer(), testMailboxes(), nil, nil)

	err := svc.Withdraw(context.Background(), referee.ID, expired.ID)
	assert.ErrorIs(t, err, ErrAvailabilityDeadlinePast)
	assert.Len(t, availabilityRepo.items, 1)
}

func TestWithdrawRemovesAvailability(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	referee := testReferee(10, 1, models.LevelRegionale)
	tournament := openTournament(1, 1, future)

	userRepo := newFakeUserRepo(referee)
	tournamentRepo := newFakeTournamentRepo(tournament)
	availabilityRepo := newFakeAvailabilityRepo()
	require.NoError(t, availabilityRepo.Create(context.Background(), &models.Availability{UserID: referee.ID, TournamentID: tournament.ID}))

	broadcaster := &fakeBroadcaster{}
	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, newFakeMailer(), testMailboxes(), broadcaster, nil)

	require.NoError(t, svc.Withdraw(context.Background(), referee.ID, tournament.ID))
	assert.Empty(t, availabilityRepo.items)
	require.Len(t, broadcaster.events, 1)
}

func TestListLimitsRefereesToOwnEntries(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	referee := testReferee(10, 1, models.LevelRegionale)
	other := testReferee(11, 1, models.LevelRegionale)
	other.Email = "other@example.com"
	tournament := openTournament(1, 1, future)

	userRepo := newFakeUserRepo(referee, other)
	tournamentRepo := newFakeTournamentRepo(tournament)
	availabilityRepo := newFakeAvailabilityRepo()
	require.NoError(t, availabilityRepo.Create(context.Background(), &models.Availability{UserID: referee.ID, TournamentID: tournament.ID}))
	require.NoError(t, availabilityRepo.Create(context.Background(), &models.Availability{UserID: other.ID, TournamentID: tournament.ID}))

	svc := NewAvailabilityService(availabilityRepo, tournamentRepo, userRepo, newFakeMailer(), testMailboxes(), nil, nil)

	// Арбитр видит только свои заявки, даже если запросил чужие.
	list, err := svc.List(context.Background(), referee.ID, ListAvailabilitiesParams{UserID: intPtr(other.ID)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, referee.ID, list[0].UserID)
}
