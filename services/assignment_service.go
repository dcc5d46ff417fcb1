package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golf-arbitri/referee-system/events"
	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

// AssignmentMailer шлёт арбитру письмо о назначении. Реализуется
// EmailService; в тестах подменяется заглушкой.
type AssignmentMailer interface {
	SendAssignmentEmail(referee *models.User, tournament *models.Tournament, role models.AssignmentRole) error
}

// AssignmentService назначает арбитров на турниры. Предпроверка прав и
// пригодности идёт через policies.CanAssign; вместимость перепроверяется в
// транзакции под блокировкой строки турнира, дубликаты закрывает
// уникальный индекс БД.
type AssignmentService interface {
	Create(ctx context.Context, actorID int, input CreateAssignmentInput) (*models.Assignment, error)
	GetByID(ctx context.Context, actorID int, id int) (*models.Assignment, error)
	List(ctx context.Context, actorID int, params ListAssignmentsParams) ([]models.Assignment, error)
	Confirm(ctx context.Context, actorID int, id int) (*models.Assignment, error)
	Delete(ctx context.Context, actorID int, id int) error
}

type CreateAssignmentInput struct {
	TournamentID int                   `json:"tournament_id"`
	UserID       int                   `json:"user_id"`
	Role         models.AssignmentRole `json:"role"`
	Notes        *string               `json:"notes"`
}

type ListAssignmentsParams struct {
	TournamentID *int
	UserID       *int
	Limit        int
	Offset       int
}

type assignmentService struct {
	tx             TxRunner
	assignmentRepo repositories.AssignmentRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	convocations   ConvocationService
	mailer         AssignmentMailer
	broadcaster    EventBroadcaster
	logger         *slog.Logger
}

func NewAssignmentService(
	tx TxRunner,
	assignmentRepo repositories.AssignmentRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	convocations ConvocationService,
	mailer AssignmentMailer,
	broadcaster EventBroadcaster,
	logger *slog.Logger,
) AssignmentService {
	return &assignmentService{
		tx:             tx,
		assignmentRepo: assignmentRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		convocations:   convocations,
		mailer:         mailer,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *assignmentService) loadActor(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	return actor, nil
}

func (s *assignmentService) Create(ctx context.Context, actorID int, input CreateAssignmentInput) (*models.Assignment, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", input.TournamentID, err)
	}
	// Недоступный турнир неотличим от несуществующего.
	if !policies.CanAccessTournament(actor, tournament) {
		return nil, ErrNotFound
	}

	candidate, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load candidate %d: %w", input.UserID, err)
	}

	assignment := &models.Assignment{
		UserID:       candidate.ID,
		TournamentID: tournament.ID,
		Role:         input.Role,
		Status:       models.AssignmentProposed,
		Notes:        input.Notes,
		AssignedBy:   actor.ID,
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокировка строки турнира сериализует конкурирующие назначения:
		// без неё два запроса на последнее место считают занятость по
		// закоммиченным строкам, оба проходят проверку вместимости и оба
		// вставляют разные пары (user_id, tournament_id) мимо уникального
		// индекса.
		if err := s.tournamentRepo.LockForUpdate(ctx, exec, tournament.ID); err != nil {
			return err
		}
		count, err := s.assignmentRepo.CountByTournament(ctx, exec, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		exists, err := s.assignmentRepo.ExistsByUserAndTournament(ctx, exec, candidate.ID, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing assignment: %w", err)
		}

		state := policies.AssignmentState{CurrentCount: count, AlreadyAssigned: exists}
		if err := policies.CanAssign(actor, tournament, candidate, input.Role, state); err != nil {
			return err
		}

		return s.assignmentRepo.Create(ctx, exec, assignment)
	})
	if err != nil {
		// Предпроверка прошла, но индекс сработал: параллельная запись
		// успела раньше.
		if errors.Is(err, repositories.ErrAssignmentDuplicate) {
			return nil, ErrConflictOnWrite
		}
		if errors.Is(err, repositories.ErrAssignmentInvalidRef) {
			return nil, ErrValidationFailed
		}
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	assignment.User = candidate
	assignment.Tournament = tournament

	s.attachConvocation(ctx, assignment, candidate, tournament)
	s.notifyAssignment(candidate, tournament, assignment.Role)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastTournamentEvent(tournament, events.EventAssignmentCreated, map[string]interface{}{
			"assignment_id": assignment.ID,
			"tournament_id": tournament.ID,
			"user_id":       candidate.ID,
			"role":          assignment.Role,
		})
	}

	return assignment, nil
}

// attachConvocation генерирует письмо-конвокацию и привязывает ключ к
// назначению. Сбой не откатывает назначение: документ можно перегенерить.
func (s *assignmentService) attachConvocation(ctx context.Context, assignment *models.Assignment, referee *models.User, tournament *models.Tournament) {
	if s.convocations == nil {
		return
	}
	key, url, err := s.convocations.Generate(ctx, assignment, referee, tournament)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate convocation letter",
				"assignment_id", assignment.ID,
				"error", err,
			)
		}
		return
	}
	if err := s.assignmentRepo.UpdateDocumentKey(ctx, assignment.ID, &key); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store convocation document key",
				"assignment_id", assignment.ID,
				"error", err,
			)
		}
		return
	}
	assignment.DocumentKey = &key
	assignment.DocumentURL = &url
}

func (s *assignmentService) notifyAssignment(referee *models.User, tournament *models.Tournament, role models.AssignmentRole) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendAssignmentEmail(referee, tournament, role); err != nil && s.logger != nil {
		s.logger.Error("failed to send assignment email",
			"user_id", referee.ID,
			"tournament_id", tournament.ID,
			"error", err,
		)
	}
}

func (s *assignmentService) GetByID(ctx context.Context, actorID int, id int) (*models.Assignment, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment %d: %w", id, err)
	}

	if !s.canSeeAssignment(actor, assignment) {
		return nil, ErrNotFound
	}

	s.fillDocumentURL(assignment)
	return assignment, nil
}

// canSeeAssignment: арбитр видит свои назначения, администратор — в
// пределах видимости турнира.
func (s *assignmentService) canSeeAssignment(actor *models.User, assignment *models.Assignment) bool {
	if actor.ID == assignment.UserID {
		return true
	}
	if !actor.UserType.IsAdmin() {
		return false
	}
	return assignment.Tournament != nil && policies.CanAccessTournament(actor, assignment.Tournament)
}

func (s *assignmentService) fillDocumentURL(assignment *models.Assignment) {
	if s.convocations != nil && assignment.DocumentKey != nil && assignment.DocumentURL == nil {
		url := s.convocations.PublicURL(*assignment.DocumentKey)
		assignment.DocumentURL = &url
	}
}

func (s *assignmentService) List(ctx context.Context, actorID int, params ListAssignmentsParams) ([]models.Assignment, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := repositories.ListAssignmentsFilter{
		Visibility:   policies.VisibleTournaments(actor),
		TournamentID: params.TournamentID,
		UserID:       params.UserID,
		Limit:        params.Limit,
		Offset:       params.Offset,
	}
	if actor.UserType == models.TypeReferee {
		filter.UserID = &actor.ID
	}

	assignments, err := s.assignmentRepo.ListWithDetails(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	for i := range assignments {
		s.fillDocumentURL(&assignments[i])
	}
	return assignments, nil
}

func (s *assignmentService) Confirm(ctx context.Context, actorID int, id int) (*models.Assignment, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment %d: %w", id, err)
	}

	// Подтверждает сам арбитр либо администратор с доступом к турниру.
	if actor.ID != assignment.UserID && !s.canSeeAssignment(actor, assignment) {
		return nil, ErrNotFound
	}
	if actor.ID != assignment.UserID && !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	if err := s.assignmentRepo.Confirm(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to confirm assignment %d: %w", id, err)
	}
	assignment.Status = models.AssignmentConfirmed
	assignment.IsConfirmed = true

	if s.broadcaster != nil && assignment.Tournament != nil {
		s.broadcaster.BroadcastTournamentEvent(assignment.Tournament, events.EventAssignmentConfirmed, map[string]interface{}{
			"assignment_id": assignment.ID,
			"tournament_id": assignment.TournamentID,
			"user_id":       assignment.UserID,
		})
	}

	s.fillDocumentURL(assignment)
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, actorID int, id int) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.UserType.IsAdmin() {
		return ErrForbiddenOperation
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get assignment %d: %w", id, err)
	}
	if !s.canSeeAssignment(actor, assignment) {
		return ErrNotFound
	}

	if err := s.assignmentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete assignment %d: %w", id, err)
	}

	// Документ чистим после удаления записи; сбой только логируем.
	if s.convocations != nil && assignment.DocumentKey != nil {
		if err := s.convocations.Remove(ctx, *assignment.DocumentKey); err != nil && s.logger != nil {
			s.logger.Error("failed to delete convocation document",
				"assignment_id", id,
				"document_key", *assignment.DocumentKey,
				"error", err,
			)
		}
	}

	if s.broadcaster != nil && assignment.Tournament != nil {
		s.broadcaster.BroadcastTournamentEvent(assignment.Tournament, events.EventAssignmentDeleted, map[string]interface{}{
			"assignment_id": id,
			"tournament_id": assignment.TournamentID,
			"user_id":       assignment.UserID,
		})
	}
	return nil
}
