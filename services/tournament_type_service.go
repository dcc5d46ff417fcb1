package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/repositories"
)

// TournamentTypeService — справочник категорий турниров. Категории задают
// национальность, требуемый уровень арбитров и границы состава бригады,
// поэтому менять их могут только национальные роли.
type TournamentTypeService interface {
	Create(ctx context.Context, actorID int, input TournamentTypeInput) (*models.TournamentType, error)
	GetByID(ctx context.Context, id int) (*models.TournamentType, error)
	List(ctx context.Context) ([]models.TournamentType, error)
	Update(ctx context.Context, actorID int, id int, input TournamentTypeInput) (*models.TournamentType, error)
	Delete(ctx context.Context, actorID int, id int) error
}

type TournamentTypeInput struct {
	Name          string              `json:"name"`
	IsNational    bool                `json:"is_national"`
	RequiredLevel models.RefereeLevel `json:"required_level"`
	MinReferees   int                 `json:"min_referees"`
	MaxReferees   int                 `json:"max_referees"`
}

type tournamentTypeService struct {
	typeRepo repositories.TournamentTypeRepository
	userRepo repositories.UserRepository
}

func NewTournamentTypeService(typeRepo repositories.TournamentTypeRepository, userRepo repositories.UserRepository) TournamentTypeService {
	return &tournamentTypeService{typeRepo: typeRepo, userRepo: userRepo}
}

func (s *tournamentTypeService) requireNationalAdmin(ctx context.Context, actorID int) error {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrForbiddenOperation
		}
		return fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	if actor.UserType != models.TypeSuperAdmin && actor.UserType != models.TypeNationalAdmin {
		return ErrForbiddenOperation
	}
	return nil
}

func (input *TournamentTypeInput) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrValidationFailed
	}
	if !input.RequiredLevel.IsValid() {
		return ErrInvalidLevel
	}
	if input.MinReferees < 1 || input.MaxReferees < input.MinReferees {
		return ErrValidationFailed
	}
	return nil
}

func (s *tournamentTypeService) Create(ctx context.Context, actorID int, input TournamentTypeInput) (*models.TournamentType, error) {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	tt := &models.TournamentType{
		Name:          input.Name,
		IsNational:    input.IsNational,
		RequiredLevel: input.RequiredLevel,
		MinReferees:   input.MinReferees,
		MaxReferees:   input.MaxReferees,
	}
	if err := s.typeRepo.Create(ctx, tt); err != nil {
		if errors.Is(err, repositories.ErrTournamentTypeNameConflict) {
			return nil, ErrTypeNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament type: %w", err)
	}
	return tt, nil
}

func (s *tournamentTypeService) GetByID(ctx context.Context, id int) (*models.TournamentType, error) {
	tt, err := s.typeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentTypeNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament type %d: %w", id, err)
	}
	return tt, nil
}

func (s *tournamentTypeService) List(ctx context.Context) ([]models.TournamentType, error) {
	types, err := s.typeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament types: %w", err)
	}
	return types, nil
}

func (s *tournamentTypeService) Update(ctx context.Context, actorID int, id int, input TournamentTypeInput) (*models.TournamentType, error) {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	tt, err := s.typeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentTypeNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament type %d: %w", id, err)
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	tt.Name = input.Name
	tt.IsNational = input.IsNational
	tt.RequiredLevel = input.RequiredLevel
	tt.MinReferees = input.MinReferees
	tt.MaxReferees = input.MaxReferees

	if err := s.typeRepo.Update(ctx, tt); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentTypeNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repositories.ErrTournamentTypeNameConflict):
			return nil, ErrTypeNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament type %d: %w", id, err)
	}
	return tt, nil
}

func (s *tournamentTypeService) Delete(ctx context.Context, actorID int, id int) error {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return err
	}

	if err := s.typeRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentTypeNotFound):
			return ErrNotFound
		case errors.Is(err, repositories.ErrTournamentTypeInUse):
			return ErrResourceInUse
		}
		return fmt.Errorf("failed to delete tournament type %d: %w", id, err)
	}
	return nil
}
