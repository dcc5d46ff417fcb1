package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/repositories"
)

// ZoneService — справочник зон. Читать могут все аутентифицированные
// пользователи, менять — только национальные роли.
type ZoneService interface {
	Create(ctx context.Context, actorID int, input ZoneInput) (*models.Zone, error)
	GetByID(ctx context.Context, id int) (*models.Zone, error)
	List(ctx context.Context) ([]models.Zone, error)
	Update(ctx context.Context, actorID int, id int, input ZoneInput) (*models.Zone, error)
	Delete(ctx context.Context, actorID int, id int) error
}

type ZoneInput struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type zoneService struct {
	zoneRepo repositories.ZoneRepository
	userRepo repositories.UserRepository
}

func NewZoneService(zoneRepo repositories.ZoneRepository, userRepo repositories.UserRepository) ZoneService {
	return &zoneService{zoneRepo: zoneRepo, userRepo: userRepo}
}

func (s *zoneService) requireNationalAdmin(ctx context.Context, actorID int) error {
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

func (s *zoneService) Create(ctx context.Context, actorID int, input ZoneInput) (*models.Zone, error) {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Name == "" || input.Code == "" {
		return nil, ErrValidationFailed
	}

	zone := &models.Zone{Name: input.Name, Code: input.Code}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		if errors.Is(err, repositories.ErrZoneCodeConflict) {
			return nil, ErrZoneCodeConflict
		}
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	return zone, nil
}

func (s *zoneService) GetByID(ctx context.Context, id int) (*models.Zone, error) {
	zone, err := s.zoneRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrZoneNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get zone %d: %w", id, err)
	}
	return zone, nil
}

func (s *zoneService) List(ctx context.Context) ([]models.Zone, error) {
	zones, err := s.zoneRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

func (s *zoneService) Update(ctx context.Context, actorID int, id int, input ZoneInput) (*models.Zone, error) {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	zone, err := s.zoneRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrZoneNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get zone %d: %w", id, err)
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Name == "" || input.Code == "" {
		return nil, ErrValidationFailed
	}

	zone.Name = input.Name
	zone.Code = input.Code
	if err := s.zoneRepo.Update(ctx, zone); err != nil {
		switch {
		case errors.Is(err, repositories.ErrZoneNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repositories.ErrZoneCodeConflict):
			return nil, ErrZoneCodeConflict
		}
		return nil, fmt.Errorf("failed to update zone %d: %w", id, err)
	}
	return zone, nil
}

func (s *zoneService) Delete(ctx context.Context, actorID int, id int) error {
	if err := s.requireNationalAdmin(ctx, actorID); err != nil {
		return err
	}

	if err := s.zoneRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrZoneNotFound):
			return ErrNotFound
		case errors.Is(err, repositories.ErrZoneInUse):
			return ErrResourceInUse
		}
		return fmt.Errorf("failed to delete zone %d: %w", id, err)
	}
	return nil
}
