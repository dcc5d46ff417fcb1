package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golf-arbitri/referee-system/events"
	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

// TournamentService управляет турнирами. Видимость чужих турниров скрыта за
// ErrNotFound: снаружи закрытый турнир неотличим от несуществующего.
type TournamentService interface {
	Create(ctx context.Context, actorID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, actorID int, id int) (*models.Tournament, error)
	List(ctx context.Context, actorID int, params ListTournamentsParams) ([]models.Tournament, error)
	Update(ctx context.Context, actorID int, id int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, actorID int, id int) error

	// AutoUpdateTournamentStatusesByDates продвигает статусы по календарю:
	// open с истёкшим дедлайном → closed, closed/assigned с прошедшей датой
	// окончания → completed. Вызывается планировщиком.
	AutoUpdateTournamentStatusesByDates(ctx context.Context) (int, error)
}

type CreateTournamentInput struct {
	Name                 string    `json:"name"`
	Description          *string   `json:"description"`
	ClubID               int       `json:"club_id"`
	TypeID               int       `json:"type_id"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	AvailabilityDeadline time.Time `json:"availability_deadline"`
}

type UpdateTournamentInput struct {
	Name                 *string                  `json:"name"`
	Description          *string                  `json:"description"`
	StartDate            *time.Time               `json:"start_date"`
	EndDate              *time.Time               `json:"end_date"`
	AvailabilityDeadline *time.Time               `json:"availability_deadline"`
	Status               *models.TournamentStatus `json:"status"`
}

type ListTournamentsParams struct {
	Status *models.TournamentStatus
	ClubID *int
	TypeID *int
	Limit  int
	Offset int
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	clubRepo       repositories.ClubRepository
	typeRepo       repositories.TournamentTypeRepository
	userRepo       repositories.UserRepository
	broadcaster    EventBroadcaster
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	clubRepo repositories.ClubRepository,
	typeRepo repositories.TournamentTypeRepository,
	userRepo repositories.UserRepository,
	broadcaster EventBroadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		clubRepo:       clubRepo,
		typeRepo:       typeRepo,
		userRepo:       userRepo,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *tournamentService) loadActor(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	return actor, nil
}

func validateTournamentDates(start, end, deadline time.Time) error {
	if end.Before(start) {
		return ErrTournamentInvalidDateRange
	}
	if deadline.After(start) {
		return ErrTournamentInvalidDeadline
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, actorID int, input CreateTournamentInput) (*models.Tournament, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.ClubID <= 0 || input.TypeID <= 0 {
		return nil, ErrValidationFailed
	}
	if err := validateTournamentDates(input.StartDate, input.EndDate, input.AvailabilityDeadline); err != nil {
		return nil, err
	}

	tt, err := s.typeRepo.GetByID(ctx, input.TypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentTypeNotFound) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to load tournament type %d: %w", input.TypeID, err)
	}

	club, err := s.clubRepo.GetByID(ctx, input.ClubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to load club %d: %w", input.ClubID, err)
	}

	// Национальные турниры зону не несут и доступны только национальным
	// ролям; зональные привязываются к зоне принимающего клуба.
	var zoneID *int
	if tt.IsNational {
		if actor.UserType == models.TypeZoneAdmin {
			return nil, ErrForbiddenOperation
		}
	} else {
		z := club.ZoneID
		zoneID = &z
		if actor.UserType == models.TypeZoneAdmin && actor.ZoneID != nil && *actor.ZoneID != club.ZoneID {
			return nil, ErrForbiddenOperation
		}
	}

	tournament := &models.Tournament{
		Name:                 input.Name,
		Description:          input.Description,
		ClubID:               input.ClubID,
		TypeID:               input.TypeID,
		ZoneID:               zoneID,
		Status:               models.StatusDraft,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		AvailabilityDeadline: input.AvailabilityDeadline,
		CreatedBy:            actor.ID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentInvalidClub),
			errors.Is(err, repositories.ErrTournamentInvalidType),
			errors.Is(err, repositories.ErrTournamentInvalidZone):
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	tournament.Type = tt
	tournament.Club = club
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, actorID int, id int) (*models.Tournament, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	if !policies.CanAccessTournament(actor, tournament) {
		return nil, ErrNotFound
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, actorID int, params ListTournamentsParams) ([]models.Tournament, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Visibility: policies.VisibleTournaments(actor),
		Status:     params.Status,
		ClubID:     params.ClubID,
		TypeID:     params.TypeID,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, actorID int, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if !policies.CanAccessTournament(actor, tournament) {
		return nil, ErrNotFound
	}
	// Национальные турниры меняют только национальные роли.
	if tournament.IsNational() && actor.UserType == models.TypeZoneAdmin {
		return nil, ErrForbiddenOperation
	}

	if input.Name != nil {
		tournament.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if input.AvailabilityDeadline != nil {
		tournament.AvailabilityDeadline = *input.AvailabilityDeadline
	}

	if tournament.Name == "" {
		return nil, ErrValidationFailed
	}
	if err := validateTournamentDates(tournament.StartDate, tournament.EndDate, tournament.AvailabilityDeadline); err != nil {
		return nil, err
	}

	statusChanged := false
	if input.Status != nil && *input.Status != tournament.Status {
		switch *input.Status {
		case models.StatusDraft, models.StatusOpen, models.StatusClosed,
			models.StatusAssigned, models.StatusCompleted, models.StatusCancelled:
		default:
			return nil, ErrTournamentInvalidStatus
		}
		// Из отменённого турнира выхода нет.
		if tournament.Status == models.StatusCancelled {
			return nil, ErrTournamentInvalidStatus
		}
		tournament.Status = *input.Status
		statusChanged = true
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	if statusChanged && s.broadcaster != nil {
		s.broadcaster.BroadcastTournamentEvent(tournament, events.EventTournamentStatusChange, map[string]interface{}{
			"tournament_id": tournament.ID,
			"status":        tournament.Status,
		})
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, actorID int, id int) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.UserType.IsAdmin() {
		return ErrForbiddenOperation
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if !policies.CanAccessTournament(actor, tournament) {
		return ErrNotFound
	}
	if tournament.IsNational() && actor.UserType == models.TypeZoneAdmin {
		return ErrForbiddenOperation
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return ErrNotFound
		case errors.Is(err, repositories.ErrTournamentInUse):
			return ErrResourceInUse
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return nil
}

func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) (int, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin status update transaction: %w", err)
	}
	defer tx.Rollback()

	tournaments, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, tx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find tournaments for status update: %w", err)
	}

	updated := 0
	var transitions []*models.Tournament
	for _, t := range tournaments {
		var next models.TournamentStatus
		switch {
		case t.Status == models.StatusOpen && now.After(t.AvailabilityDeadline):
			next = models.StatusClosed
		case (t.Status == models.StatusClosed || t.Status == models.StatusAssigned) && now.After(t.EndDate):
			next = models.StatusCompleted
		default:
			continue
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, next); err != nil {
			return 0, fmt.Errorf("failed to update status of tournament %d: %w", t.ID, err)
		}
		t.Status = next
		transitions = append(transitions, t)
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit status updates: %w", err)
	}

	// События шлём после коммита, чтобы дашборды не увидели отката.
	for _, t := range transitions {
		if s.logger != nil {
			s.logger.Info("tournament status advanced by schedule",
				"tournament_id", t.ID,
				"status", t.Status,
			)
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastTournamentEvent(t, events.EventTournamentStatusChange, map[string]interface{}{
				"tournament_id": t.ID,
				"status":        t.Status,
			})
		}
	}

	return updated, nil
}
