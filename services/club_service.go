package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

// ClubService управляет гольф-клубами. Список и карточка клуба подчиняются
// зональной видимости; менять клубы могут администраторы в пределах своей
// видимости.
type ClubService interface {
	Create(ctx context.Context, actorID int, input ClubInput) (*models.Club, error)
	GetByID(ctx context.Context, actorID int, id int) (*models.Club, error)
	List(ctx context.Context, actorID int, params ListClubsParams) ([]models.Club, error)
	Update(ctx context.Context, actorID int, id int, input ClubInput) (*models.Club, error)
	Delete(ctx context.Context, actorID int, id int) error
}

type ClubInput struct {
	Name     string  `json:"name"`
	ZoneID   int     `json:"zone_id"`
	Email    *string `json:"email"`
	City     *string `json:"city"`
	IsActive *bool   `json:"is_active"`
}

type ListClubsParams struct {
	IsActive *bool
	Limit    int
	Offset   int
}

type clubService struct {
	clubRepo repositories.ClubRepository
	userRepo repositories.UserRepository
}

func NewClubService(clubRepo repositories.ClubRepository, userRepo repositories.UserRepository) ClubService {
	return &clubService{clubRepo: clubRepo, userRepo: userRepo}
}

func (s *clubService) loadActor(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	return actor, nil
}

func (s *clubService) Create(ctx context.Context, actorID int, input ClubInput) (*models.Club, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	// Зональный администратор заводит клубы только в своей зоне.
	if actor.UserType == models.TypeZoneAdmin && actor.ZoneID != nil && *actor.ZoneID != input.ZoneID {
		return nil, ErrForbiddenOperation
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.ZoneID <= 0 {
		return nil, ErrValidationFailed
	}

	club := &models.Club{
		Name:     input.Name,
		ZoneID:   input.ZoneID,
		Email:    input.Email,
		City:     input.City,
		IsActive: true,
	}
	if input.IsActive != nil {
		club.IsActive = *input.IsActive
	}

	if err := s.clubRepo.Create(ctx, club); err != nil {
		if errors.Is(err, repositories.ErrClubZoneInvalid) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to create club: %w", err)
	}
	return club, nil
}

func (s *clubService) GetByID(ctx context.Context, actorID int, id int) (*models.Club, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	club, err := s.clubRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", id, err)
	}

	if !policies.VisibleClubs(actor).Matches(club) {
		return nil, ErrNotFound
	}
	return club, nil
}

func (s *clubService) List(ctx context.Context, actorID int, params ListClubsParams) ([]models.Club, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	clubs, err := s.clubRepo.List(ctx, repositories.ListClubsFilter{
		Visibility: policies.VisibleClubs(actor),
		IsActive:   params.IsActive,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	return clubs, nil
}

func (s *clubService) Update(ctx context.Context, actorID int, id int, input ClubInput) (*models.Club, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	club, err := s.clubRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", id, err)
	}
	if !policies.VisibleClubs(actor).Matches(club) {
		return nil, ErrNotFound
	}
	// Перенос клуба в чужую зону зональному администратору недоступен.
	if actor.UserType == models.TypeZoneAdmin && actor.ZoneID != nil && input.ZoneID != *actor.ZoneID {
		return nil, ErrForbiddenOperation
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.ZoneID <= 0 {
		return nil, ErrValidationFailed
	}

	club.Name = input.Name
	club.ZoneID = input.ZoneID
	club.Email = input.Email
	club.City = input.City
	if input.IsActive != nil {
		club.IsActive = *input.IsActive
	}

	if err := s.clubRepo.Update(ctx, club); err != nil {
		switch {
		case errors.Is(err, repositories.ErrClubNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repositories.ErrClubZoneInvalid):
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to update club %d: %w", id, err)
	}
	return club, nil
}

func (s *clubService) Delete(ctx context.Context, actorID int, id int) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.UserType.IsAdmin() {
		return ErrForbiddenOperation
	}

	club, err := s.clubRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get club %d: %w", id, err)
	}
	if !policies.VisibleClubs(actor).Matches(club) {
		return ErrNotFound
	}

	if err := s.clubRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrClubNotFound):
			return ErrNotFound
		case errors.Is(err, repositories.ErrClubInUse):
			return ErrResourceInUse
		}
		return fmt.Errorf("failed to delete club %d: %w", id, err)
	}
	return nil
}
