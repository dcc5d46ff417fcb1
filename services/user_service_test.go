package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/repositories"
)

type fakeZoneRepo struct {
	zones map[int]*models.Zone
}

func newFakeZoneRepo(ids ...int) *fakeZoneRepo {
	r := &fakeZoneRepo{zones: make(map[int]*models.Zone)}
	for _, id := range ids {
		r.zones[id] = &models.Zone{ID: id, Name: "Zona", Code: "SZR"}
	}
	return r
}

func (r *fakeZoneRepo) Create(_ context.Context, zone *models.Zone) error {
	zone.ID = len(r.zones) + 1
	r.zones[zone.ID] = zone
	return nil
}

func (r *fakeZoneRepo) GetByID(_ context.Context, id int) (*models.Zone, error) {
	z, ok := r.zones[id]
	if !ok {
		return nil, repositories.ErrZoneNotFound
	}
	return z, nil
}

func (r *fakeZoneRepo) List(_ context.Context) ([]models.Zone, error) {
	out := []models.Zone{}
	for _, z := range r.zones {
		out = append(out, *z)
	}
	return out, nil
}

func (r *fakeZoneRepo) Update(_ context.Context, zone *models.Zone) error {
	if _, ok := r.zones[zone.ID]; !ok {
		return repositories.ErrZoneNotFound
	}
	r.zones[zone.ID] = zone
	return nil
}

func (r *fakeZoneRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.zones[id]; !ok {
		return repositories.ErrZoneNotFound
	}
	delete(r.zones, id)
	return nil
}

func testSuperAdmin(id int) *models.User {
	return &models.User{ID: id, UserType: models.TypeSuperAdmin, IsActive: true}
}

func TestCreateUserEnforcesRoleInvariants(t *testing.T) {
	admin := testSuperAdmin(1)
	userRepo := newFakeUserRepo(admin)
	svc := NewUserService(userRepo, newFakeZoneRepo(1))

	base := CreateUserInput{
		FirstName: "Luca",
		LastName:  "Bianchi",
		Email:     "luca.bianchi@example.com",
		Password:  "correct-horse",
		UserType:  models.TypeReferee,
	}

	// Арбитр без уровня
	input := base
	input.ZoneID = intPtr(1)
	_, err := svc.Create(context.Background(), admin.ID, input)
	assert.ErrorIs(t, err, ErrLevelRequired)

	// Арбитр без зоны
	input = base
	input.Level = levelPtr(models.LevelRegionale)
	_, err = svc.Create(context.Background(), admin.ID, input)
	assert.ErrorIs(t, err, ErrZoneRequired)

	// Зональный админ без зоны
	input = base
	input.UserType = models.TypeZoneAdmin
	_, err = svc.Create(context.Background(), admin.ID, input)
	assert.ErrorIs(t, err, ErrZoneRequired)

	// Всё на месте
	input = base
	input.ZoneID = intPtr(1)
	input.Level = levelPtr(models.LevelRegionale)
	user, err := svc.Create(context.Background(), admin.ID, input)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)

	// Пароль захеширован bcrypt-ом
	stored, err := userRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")))
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	admin := testSuperAdmin(1)
	svc := NewUserService(newFakeUserRepo(admin), newFakeZoneRepo(1))

	_, err := svc.Create(context.Background(), admin.ID, CreateUserInput{
		FirstName: "Luca",
		LastName:  "Bianchi",
		Email:     "luca@example.com",
		Password:  "short",
		UserType:  models.TypeNationalAdmin,
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestZoneAdminCreatesOnlyRefereesInOwnZone(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	svc := NewUserService(newFakeUserRepo(zoneAdmin), newFakeZoneRepo(1, 2))

	// Чужая зона
	_, err := svc.Create(context.Background(), zoneAdmin.ID, CreateUserInput{
		FirstName: "Anna",
		LastName:  "Verdi",
		Email:     "anna@example.com",
		Password:  "correct-horse",
		UserType:  models.TypeReferee,
		ZoneID:    intPtr(2),
		Level:     levelPtr(models.LevelAspirante),
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Не арбитр
	_, err = svc.Create(context.Background(), zoneAdmin.ID, CreateUserInput{
		FirstName: "Anna",
		LastName:  "Verdi",
		Email:     "anna@example.com",
		Password:  "correct-horse",
		UserType:  models.TypeZoneAdmin,
		ZoneID:    intPtr(1),
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Арбитр своей зоны
	user, err := svc.Create(context.Background(), zoneAdmin.ID, CreateUserInput{
		FirstName: "Anna",
		LastName:  "Verdi",
		Email:     "anna@example.com",
		Password:  "correct-horse",
		UserType:  models.TypeReferee,
		ZoneID:    intPtr(1),
		Level:     levelPtr(models.LevelAspirante),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TypeReferee, user.UserType)
}

func TestGetUserHidesOtherZones(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	outsider := testReferee(10, 2, models.LevelRegionale)
	outsider.Email = "outsider@example.com"
	insider := testReferee(11, 1, models.LevelRegionale)
	insider.Email = "insider@example.com"

	svc := NewUserService(newFakeUserRepo(zoneAdmin, outsider, insider), newFakeZoneRepo(1, 2))

	// Чужая зона скрыта как несуществующая.
	_, err := svc.GetByID(context.Background(), zoneAdmin.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	user, err := svc.GetByID(context.Background(), zoneAdmin.ID, insider.ID)
	require.NoError(t, err)
	assert.Equal(t, insider.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestRefereeSeesOwnProfileOnly(t *testing.T) {
	referee := testReferee(10, 1, models.LevelRegionale)
	colleague := testReferee(11, 1, models.LevelRegionale)
	colleague.Email = "colleague@example.com"

	svc := NewUserService(newFakeUserRepo(referee, colleague), newFakeZoneRepo(1))

	own, err := svc.GetByID(context.Background(), referee.ID, referee.ID)
	require.NoError(t, err)
	assert.Equal(t, referee.ID, own.ID)

	// Список пользователей арбитру недоступен.
	_, err = svc.List(context.Background(), referee.ID, ListUsersParams{})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestSetActiveRejectsSelfDeactivation(t *testing.T) {
	admin := testSuperAdmin(1)
	svc := NewUserService(newFakeUserRepo(admin), newFakeZoneRepo())

	err := svc.SetActive(context.Background(), admin.ID, admin.ID, false)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestDeleteRequiresNationalRole(t *testing.T) {
	zoneAdmin := testZoneAdmin(1, 1)
	referee := testReferee(10, 1, models.LevelRegionale)
	svc := NewUserService(newFakeUserRepo(zoneAdmin, referee), newFakeZoneRepo(1))

	err := svc.Delete(context.Background(), zoneAdmin.ID, referee.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
