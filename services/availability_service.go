package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/golf-arbitri/referee-system/events"
	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

// AvailabilityMailer покрывает письма, которые рассылает сервис
// доступностей. Реализуется EmailService; в тестах подменяется заглушкой.
type AvailabilityMailer interface {
	SendAvailabilityBatchToAdmin(mailbox string, referee *models.User, tournaments []models.Tournament) error
	SendAvailabilityConfirmationToReferee(referee *models.User, tournaments []models.Tournament) error
}

// AvailabilityService управляет заявками арбитров о готовности судить.
type AvailabilityService interface {
	// Submit обрабатывает пакет заявок одного арбитра. Каждый турнир
	// проверяется отдельно; успешные заявки создаются, по неудачным
	// возвращается причина. Уведомления уходят одним письмом на каждый
	// затронутый ящик (зональный или национальный) плюс подтверждение
	// самому арбитру.
	Submit(ctx context.Context, refereeID int, input SubmitAvailabilityInput) (*SubmitAvailabilityResult, error)
	Withdraw(ctx context.Context, refereeID int, tournamentID int) error
	List(ctx context.Context, actorID int, params ListAvailabilitiesParams) ([]models.Availability, error)
}

type SubmitAvailabilityInput struct {
	TournamentIDs []int   `json:"tournament_ids"`
	Notes         *string `json:"notes"`
}

// SubmitAvailabilityResult — исход пакетной подачи: созданные заявки и
// причины отказа по турнирам, которые не прошли проверки.
type SubmitAvailabilityResult struct {
	Submitted []models.Availability `json:"submitted"`
	Failed    map[int]string        `json:"failed,omitempty"`
}

type ListAvailabilitiesParams struct {
	TournamentID *int
	UserID       *int
	Limit        int
	Offset       int
}

type availabilityService struct {
	availabilityRepo repositories.AvailabilityRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	mailer           AvailabilityMailer
	mailboxes        policies.MailboxDirectory
	broadcaster      EventBroadcaster
	logger           *slog.Logger
}

func NewAvailabilityService(
	availabilityRepo repositories.AvailabilityRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	mailer AvailabilityMailer,
	mailboxes policies.MailboxDirectory,
	broadcaster EventBroadcaster,
	logger *slog.Logger,
) AvailabilityService {
	return &availabilityService{
		availabilityRepo: availabilityRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		mailer:           mailer,
		mailboxes:        mailboxes,
		broadcaster:      broadcaster,
		logger:           logger,
	}
}

func (s *availabilityService) loadReferee(ctx context.Context, refereeID int) (*models.User, error) {
	referee, err := s.userRepo.GetByID(ctx, refereeID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load referee %d: %w", refereeID, err)
	}
	if referee.UserType != models.TypeReferee {
		return nil, ErrNotAReferee
	}
	if !referee.IsActive {
		return nil, ErrForbiddenOperation
	}
	return referee, nil
}

// checkTournamentOpenForAvailability повторяет порядок проверок подачи:
// видимость → статус → дедлайн.
func checkTournamentOpenForAvailability(referee *models.User, t *models.Tournament, now time.Time) error {
	if !policies.CanAccessTournament(referee, t) {
		return ErrNotFound
	}
	if !t.Status.AcceptsAvailability() {
		return ErrAvailabilityClosed
	}
	if now.After(t.AvailabilityDeadline) {
		return ErrAvailabilityDeadlinePast
	}
	return nil
}

func (s *availabilityService) Submit(ctx context.Context, refereeID int, input SubmitAvailabilityInput) (*SubmitAvailabilityResult, error) {
	referee, err := s.loadReferee(ctx, refereeID)
	if err != nil {
		return nil, err
	}
	if len(input.TournamentIDs) == 0 {
		return nil, ErrValidationFailed
	}

	now := time.Now()
	result := &SubmitAvailabilityResult{Failed: make(map[int]string)}
	var accepted []models.Tournament

	seen := make(map[int]bool)
	for _, tournamentID := range input.TournamentIDs {
		if seen[tournamentID] {
			continue
		}
		seen[tournamentID] = true

		tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				result.Failed[tournamentID] = ErrNotFound.Error()
				continue
			}
			return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
		}

		if err := checkTournamentOpenForAvailability(referee, tournament, now); err != nil {
			result.Failed[tournamentID] = err.Error()
			continue
		}

		availability := &models.Availability{
			UserID:       referee.ID,
			TournamentID: tournament.ID,
			Notes:        input.Notes,
		}
		if err := s.availabilityRepo.Create(ctx, availability); err != nil {
			if errors.Is(err, repositories.ErrAvailabilityDuplicate) {
				result.Failed[tournamentID] = ErrAvailabilityDuplicate.Error()
				continue
			}
			return nil, fmt.Errorf("failed to create availability for tournament %d: %w", tournamentID, err)
		}

		availability.Tournament = tournament
		result.Submitted = append(result.Submitted, *availability)
		accepted = append(accepted, *tournament)
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}

	if len(accepted) > 0 {
		s.notifySubmission(ctx, referee, accepted)
	}

	return result, nil
}

// notifySubmission группирует принятые турниры по целевому ящику (каждая
// зона получает своё письмо, национальные турниры уходят в национальный
// ящик) и рассылает письма параллельно. Сбой почты подачу не откатывает.
func (s *availabilityService) notifySubmission(ctx context.Context, referee *models.User, tournaments []models.Tournament) {
	byMailbox := make(map[string][]models.Tournament)
	for i := range tournaments {
		rec := s.mailboxes.RecipientsFor(&tournaments[i])
		mailbox := rec.ZoneMailbox
		if rec.NationalMailbox != "" {
			mailbox = rec.NationalMailbox
		}
		byMailbox[mailbox] = append(byMailbox[mailbox], tournaments[i])
	}

	g, _ := errgroup.WithContext(ctx)
	for mailbox, group := range byMailbox {
		mailbox, group := mailbox, group
		g.Go(func() error {
			if err := s.mailer.SendAvailabilityBatchToAdmin(mailbox, referee, group); err != nil {
				return fmt.Errorf("admin mailbox %s: %w", mailbox, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := s.mailer.SendAvailabilityConfirmationToReferee(referee, tournaments); err != nil {
			return fmt.Errorf("referee confirmation: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && s.logger != nil {
		s.logger.Error("availability notification delivery failed",
			"referee_id", referee.ID,
			"error", err,
		)
	}

	if s.broadcaster != nil {
		for i := range tournaments {
			s.broadcaster.BroadcastTournamentEvent(&tournaments[i], events.EventAvailabilitySubmitted, map[string]interface{}{
				"tournament_id": tournaments[i].ID,
				"user_id":       referee.ID,
			})
		}
	}
}

func (s *availabilityService) Withdraw(ctx context.Context, refereeID int, tournamentID int) error {
	referee, err := s.loadReferee(ctx, refereeID)
	if err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	// Отзыв подчиняется тем же окнам, что и подача.
	if err := checkTournamentOpenForAvailability(referee, tournament, time.Now()); err != nil {
		return err
	}

	if err := s.availabilityRepo.DeleteByUserAndTournament(ctx, referee.ID, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrAvailabilityNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to withdraw availability: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastTournamentEvent(tournament, events.EventAvailabilityWithdrawn, map[string]interface{}{
			"tournament_id": tournament.ID,
			"user_id":       referee.ID,
		})
	}
	return nil
}

func (s *availabilityService) List(ctx context.Context, actorID int, params ListAvailabilitiesParams) ([]models.Availability, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}

	filter := repositories.ListAvailabilitiesFilter{
		Visibility:   policies.VisibleTournaments(actor),
		TournamentID: params.TournamentID,
		UserID:       params.UserID,
		Limit:        params.Limit,
		Offset:       params.Offset,
	}
	// Арбитр видит только собственные заявки.
	if actor.UserType == models.TypeReferee {
		filter.UserID = &actor.ID
	}

	availabilities, err := s.availabilityRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list availabilities: %w", err)
	}
	return availabilities, nil
}
