package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/repositories"
)

type fakeClubRepo struct {
	clubs map[int]*models.Club
}

func newFakeClubRepo(clubs ...*models.Club) *fakeClubRepo {
	r := &fakeClubRepo{clubs: make(map[int]*models.Club)}
	for _, c := range clubs {
		r.clubs[c.ID] = c
	}
	return r
}

func (r *fakeClubRepo) Create(_ context.Context, club *models.Club) error {
	club.ID = len(r.clubs) + 1
	r.clubs[club.ID] = club
	return nil
}

func (r *fakeClubRepo) GetByID(_ context.Context, id int) (*models.Club, error) {
	c, ok := r.clubs[id]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}
	return c, nil
}

func (r *fakeClubRepo) List(_ context.Context, _ repositories.ListClubsFilter) ([]models.Club, error) {
	out := []models.Club{}
	for _, c := range r.clubs {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeClubRepo) Update(_ context.Context, club *models.Club) error {
	if _, ok := r.clubs[club.ID]; !ok {
		return repositories.ErrClubNotFound
	}
	r.clubs[club.ID] = club
	return nil
}

func (r *fakeClubRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.clubs[id]; !ok {
		return repositories.ErrClubNotFound
	}
	delete(r.clubs, id)
	return nil
}

type fakeTypeRepo struct {
	types map[int]*models.TournamentType
}

func newFakeTypeRepo(types ...*models.TournamentType) *fakeTypeRepo {
	r := &fakeTypeRepo{types: make(map[int]*models.TournamentType)}
	for _, tt := range types {
		r.types[tt.ID] = tt
	}
	return r
}

func (r *fakeTypeRepo) Create(_ context.Context, tt *models.TournamentType) error {
	tt.ID = len(r.types) + 1
	r.types[tt.ID] = tt
	return nil
}

func (r *fakeTypeRepo) GetByID(_ context.Context, id int) (*models.TournamentType, error) {
	tt, ok := r.types[id]
	if !ok {
		return nil, repositories.ErrTournamentTypeNotFound
	}
	return tt, nil
}

func (r *fakeTypeRepo) List(_ context.Context) ([]models.TournamentType, error) {
	out := []models.TournamentType{}
	for _, tt := range r.types {
		out = append(out, *tt)
	}
	return out, nil
}

func (r *fakeTypeRepo) Update(_ context.Context, tt *models.TournamentType) error {
	if _, ok := r.types[tt.ID]; !ok {
		return repositories.ErrTournamentTypeNotFound
	}
	r.types[tt.ID] = tt
	return nil
}

func (r *fakeTypeRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.types[id]; !ok {
		return repositories.ErrTournamentTypeNotFound
	}
	delete(r.types, id)
	return nil
}

func zonalType() *models.TournamentType {
	return &models.TournamentType{ID: 1, Name: "Gara Zonale", RequiredLevel: models.LevelPrimoLivello, MinReferees: 1, MaxReferees: 4}
}

func nationalType() *models.TournamentType {
	return &models.TournamentType{ID: 2, Name: "Campionato Nazionale", IsNational: true, RequiredLevel: models.LevelNazionale, MinReferees: 2, MaxReferees: 6}
}

func testClub(id, zoneID int) *models.Club {
	return &models.Club{ID: id, Name: "Golf Club Test", ZoneID: zoneID, IsActive: true}
}

func newTournamentService(users *fakeUserRepo, tournaments *fakeTournamentRepo, clubs *fakeClubRepo, types *fakeTypeRepo) TournamentService {
	return NewTournamentService(nil, tournaments, clubs, types, users, nil, nil)
}

func validCreateInput(clubID, typeID int) CreateTournamentInput {
	start := time.Now().Add(30 * 24 * time.Hour)
	return CreateTournamentInput{
		Name:                 "Trofeo Primavera",
		ClubID:               clubID,
		TypeID:               typeID,
		StartDate:            start,
		EndDate:              start.Add(48 * time.Hour),
		AvailabilityDeadline: start.Add(-72 * time.Hour),
	}
}

func TestCreateTournamentValidatesDates(t *testing.T) {
	admin := testSuperAdmin(1)
	svc := newTournamentService(newFakeUserRepo(admin), newFakeTournamentRepo(), newFakeClubRepo(testClub(1, 1)), newFakeTypeRepo(zonalType()))

	input := validCreateInput(1, 1)
	input.EndDate = input.StartDate.Add(-time.Hour)
	_, err := svc.Create(context.Background(), admin.ID, input)
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)

	input = validCreateInput(1, 1)
	input.AvailabilityDeadline = input.StartDate.Add(time.Hour)
	_, err = svc.Create(context.Background(), admin.ID, input)
	assert.ErrorIs(t, err, ErrTournamentInvalidDeadline)
}

func TestCreateTournamentDerivesZoneFromClub(t *testing.T) {
	admin := testSuperAdmin(1)
	svc := newTournamentService(newFakeUserRepo(admin), newFakeTournamentRepo(), newFakeClubRepo(testClub(1, 3)), newFakeTypeRepo(zonalType(), nationalType()))

	zonal, err := svc.Create(context.Background(), admin.ID, validCreateInput(1, 1))
	require.NoError(t, err)
	require.NotNil(t, zonal.ZoneID)
	assert.Equal(t, 3, *zonal.ZoneID)
	assert.Equal(t, models.StatusDraft, zonal.Status)

	// Национальный турнир зону не несёт.
	national, err := svc.Create(context.Background(), admin.ID, validCreateInput(1, 2))
	require.NoError(t, err)
	assert.Nil(t, national.ZoneID)
}

func TestZoneAdminCannotCreateNationalTournament(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	svc := newTournamentService(newFakeUserRepo(zoneAdmin), newFakeTournamentRepo(), newFakeClubRepo(testClub(1, 1)), newFakeTypeRepo(nationalType()))

	_, err := svc.Create(context.Background(), zoneAdmin.ID, validCreateInput(1, 2))
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestZoneAdminCannotUseForeignClub(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	svc := newTournamentService(newFakeUserRepo(zoneAdmin), newFakeTournamentRepo(), newFakeClubRepo(testClub(1, 2)), newFakeTypeRepo(zonalType()))

	_, err := svc.Create(context.Background(), zoneAdmin.ID, validCreateInput(1, 1))
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestGetTournamentHidesForeignZone(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	foreign := openTournament(1, 2, time.Now().Add(24*time.Hour))

	svc := newTournamentService(newFakeUserRepo(zoneAdmin), newFakeTournamentRepo(foreign), newFakeClubRepo(), newFakeTypeRepo())

	_, err := svc.GetByID(context.Background(), zoneAdmin.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTournamentCancelledIsTerminal(t *testing.T) {
	admin := testSuperAdmin(1)
	cancelled := openTournament(1, 1, time.Now().Add(24*time.Hour))
	cancelled.Status = models.StatusCancelled

	svc := newTournamentService(newFakeUserRepo(admin), newFakeTournamentRepo(cancelled), newFakeClubRepo(), newFakeTypeRepo())

	open := models.StatusOpen
	_, err := svc.Update(context.Background(), admin.ID, cancelled.ID, UpdateTournamentInput{Status: &open})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)
}

func TestUpdateTournamentRejectsUnknownStatus(t *testing.T) {
	admin := testSuperAdmin(1)
	tournament := openTournament(1, 1, time.Now().Add(24*time.Hour))

	svc := newTournamentService(newFakeUserRepo(admin), newFakeTournamentRepo(tournament), newFakeClubRepo(), newFakeTypeRepo())

	bogus := models.TournamentStatus("archived")
	_, err := svc.Update(context.Background(), admin.ID, tournament.ID, UpdateTournamentInput{Status: &bogus})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)
}
