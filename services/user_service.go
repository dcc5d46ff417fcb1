package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

const minPasswordLength = 8

// UserService управляет учётными записями. Все операции принимают ID
// действующего пользователя: видимость и права проверяются здесь, а не в
// обработчиках.
type UserService interface {
	Create(ctx context.Context, actorID int, input CreateUserInput) (*models.User, error)
	GetByID(ctx context.Context, actorID int, id int) (*models.User, error)
	List(ctx context.Context, actorID int, params ListUsersParams) ([]models.User, error)
	Update(ctx context.Context, actorID int, id int, input UpdateUserInput) (*models.User, error)
	SetActive(ctx context.Context, actorID int, id int, active bool) error
	Delete(ctx context.Context, actorID int, id int) error
}

type CreateUserInput struct {
	FirstName string               `json:"first_name"`
	LastName  string               `json:"last_name"`
	Email     string               `json:"email"`
	Password  string               `json:"password"`
	UserType  models.UserType      `json:"user_type"`
	ZoneID    *int                 `json:"zone_id"`
	Level     *models.RefereeLevel `json:"level"`
}

type UpdateUserInput struct {
	FirstName *string              `json:"first_name"`
	LastName  *string              `json:"last_name"`
	Email     *string              `json:"email"`
	Password  *string              `json:"password"`
	ZoneID    *int                 `json:"zone_id"`
	Level     *models.RefereeLevel `json:"level"`
}

type ListUsersParams struct {
	UserType *models.UserType
	Level    *models.RefereeLevel
	IsActive *bool
	Limit    int
	Offset   int
}

type userService struct {
	userRepo repositories.UserRepository
	zoneRepo repositories.ZoneRepository
}

func NewUserService(userRepo repositories.UserRepository, zoneRepo repositories.ZoneRepository) UserService {
	return &userService{userRepo: userRepo, zoneRepo: zoneRepo}
}

func (s *userService) loadActor(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	return actor, nil
}

// validateRoleInvariants проверяет инварианты роли: арбитру нужны уровень и
// зона, зональному администратору — зона; национальные роли зону не несут.
func validateRoleInvariants(userType models.UserType, zoneID *int, level *models.RefereeLevel) error {
	switch userType {
	case models.TypeReferee:
		if level == nil {
			return ErrLevelRequired
		}
		if !level.IsValid() {
			return ErrInvalidLevel
		}
		if zoneID == nil {
			return ErrZoneRequired
		}
	case models.TypeZoneAdmin:
		if zoneID == nil {
			return ErrZoneRequired
		}
	case models.TypeNationalAdmin, models.TypeSuperAdmin:
		// Зона и уровень не обязательны.
	default:
		return ErrInvalidUserType
	}
	return nil
}

func (s *userService) Create(ctx context.Context, actorID int, input CreateUserInput) (*models.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	// Зональный администратор заводит только арбитров своей зоны.
	if actor.UserType == models.TypeZoneAdmin {
		if input.UserType != models.TypeReferee {
			return nil, ErrForbiddenOperation
		}
		if actor.ZoneID != nil && (input.ZoneID == nil || *input.ZoneID != *actor.ZoneID) {
			return nil, ErrForbiddenOperation
		}
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FirstName == "" || input.LastName == "" || input.Email == "" {
		return nil, ErrValidationFailed
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if err := validateRoleInvariants(input.UserType, input.ZoneID, input.Level); err != nil {
		return nil, err
	}
	if input.ZoneID != nil {
		if _, err := s.zoneRepo.GetByID(ctx, *input.ZoneID); err != nil {
			if errors.Is(err, repositories.ErrZoneNotFound) {
				return nil, ErrValidationFailed
			}
			return nil, fmt.Errorf("failed to verify zone %d: %w", *input.ZoneID, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
		UserType:     input.UserType,
		ZoneID:       input.ZoneID,
		Level:        input.Level,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserZoneInvalid):
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, actorID int, id int) (*models.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	// Свой профиль виден всегда, остальное — по фильтру видимости.
	if actor.ID != user.ID && !policies.VisibleUsers(actor).Matches(user) {
		return nil, ErrNotFound
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) List(ctx context.Context, actorID int, params ListUsersParams) ([]models.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	users, err := s.userRepo.List(ctx, repositories.ListUsersFilter{
		Visibility: policies.VisibleUsers(actor),
		UserType:   params.UserType,
		Level:      params.Level,
		IsActive:   params.IsActive,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, actorID int, id int, input UpdateUserInput) (*models.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	editingSelf := actor.ID == user.ID
	if !editingSelf {
		if !actor.UserType.IsAdmin() || !policies.VisibleUsers(actor).Matches(user) {
			return nil, ErrNotFound
		}
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", hashErr)
		}
		user.PasswordHash = string(hash)
	}

	// Зону и уровень меняют только администраторы.
	if input.ZoneID != nil || input.Level != nil {
		if !actor.UserType.IsAdmin() {
			return nil, ErrForbiddenOperation
		}
		if input.ZoneID != nil {
			user.ZoneID = input.ZoneID
		}
		if input.Level != nil {
			user.Level = input.Level
		}
	}

	if user.FirstName == "" || user.LastName == "" || user.Email == "" {
		return nil, ErrValidationFailed
	}
	if err := validateRoleInvariants(user.UserType, user.ZoneID, user.Level); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserZoneInvalid):
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) SetActive(ctx context.Context, actorID int, id int, active bool) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.UserType.IsAdmin() {
		return ErrForbiddenOperation
	}
	if actor.ID == id {
		// Администратор не деактивирует сам себя.
		return ErrForbiddenOperation
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if !policies.VisibleUsers(actor).Matches(user) {
		return ErrNotFound
	}

	if err := s.userRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to set active flag for user %d: %w", id, err)
	}
	return nil
}

func (s *userService) Delete(ctx context.Context, actorID int, id int) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	// Удаление необратимо, поэтому доступно только верхним ролям;
	// зональные администраторы деактивируют через SetActive.
	if actor.UserType != models.TypeSuperAdmin && actor.UserType != models.TypeNationalAdmin {
		return ErrForbiddenOperation
	}
	if actor.ID == id {
		return ErrForbiddenOperation
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}
