package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/golf-arbitri/referee-system/models"
)

func userWithPassword(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           1,
		FirstName:    "Mario",
		LastName:     "Rossi",
		Email:        email,
		PasswordHash: string(hash),
		UserType:     models.TypeReferee,
		ZoneID:       intPtr(1),
		Level:        levelPtr(models.LevelRegionale),
		IsActive:     active,
	}
}

func TestLoginSuccess(t *testing.T) {
	user := userWithPassword(t, "mario@example.com", "correct-horse", true)
	svc := NewAuthService(newFakeUserRepo(user))

	got, err := svc.Login(context.Background(), LoginInput{Email: "mario@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	user := userWithPassword(t, "mario@example.com", "correct-horse", true)
	svc := NewAuthService(newFakeUserRepo(user))

	_, err := svc.Login(context.Background(), LoginInput{Email: "mario@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	user := userWithPassword(t, "mario@example.com", "correct-horse", false)
	svc := NewAuthService(newFakeUserRepo(user))

	_, err := svc.Login(context.Background(), LoginInput{Email: "mario@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
