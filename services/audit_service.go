package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/golf-arbitri/referee-system/repositories"
)

// Пороги проверки нагрузки.
const (
	overassignedThreshold = 5
	severityError         = "error"
	severityWarning       = "warning"
)

// AuditService проверяет качество назначений в пределах видимости
// администратора: пересечения дат у арбитров, турниры с неукомплектованной
// бригадой, перегруженные и незадействованные арбитры, подбор замен.
type AuditService interface {
	Run(ctx context.Context, actorID int) (*AuditReport, error)
	SuggestAlternatives(ctx context.Context, actorID int, tournamentID int) ([]models.User, error)
}

type AuditReport struct {
	GeneratedAt         time.Time          `json:"generated_at"`
	DateConflicts       []DateConflict     `json:"date_conflicts"`
	MissingRequirements []TournamentIssues `json:"missing_requirements"`
	Overassigned        []RefereeWorkload  `json:"overassigned"`
	Underassigned       []RefereeWorkload  `json:"underassigned"`
}

// DateConflict — два назначения одного арбитра на пересекающиеся или
// смежные даты. Пересечение — ошибка, стык день-в-день — предупреждение.
type DateConflict struct {
	UserID           int                `json:"user_id"`
	User             *models.User       `json:"user,omitempty"`
	FirstTournament  *models.Tournament `json:"first_tournament"`
	SecondTournament *models.Tournament `json:"second_tournament"`
	Severity         string             `json:"severity"`
}

type TournamentIssues struct {
	Tournament *models.Tournament `json:"tournament"`
	Issues     []string           `json:"issues"`
}

type RefereeWorkload struct {
	User            *models.User `json:"user"`
	AssignmentCount int          `json:"assignment_count"`
}

type auditService struct {
	assignmentRepo repositories.AssignmentRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
}

func NewAuditService(
	assignmentRepo repositories.AssignmentRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
) AuditService {
	return &auditService{
		assignmentRepo: assignmentRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
	}
}

// auditStatuses — статусы турниров, попадающие в проверку: по завершённым
// и отменённым турнирам конфликты уже не интересны.
var auditStatuses = []models.TournamentStatus{
	models.StatusOpen,
	models.StatusClosed,
	models.StatusAssigned,
}

func (s *auditService) loadAdmin(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	if !actor.UserType.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	return actor, nil
}

func (s *auditService) Run(ctx context.Context, actorID int) (*AuditReport, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	visibility := policies.VisibleTournaments(actor)

	assignments, err := s.assignmentRepo.ListWithDetails(ctx, repositories.ListAssignmentsFilter{
		Visibility:         visibility,
		TournamentStatuses: auditStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments for audit: %w", err)
	}

	report := &AuditReport{
		GeneratedAt:         time.Now(),
		DateConflicts:       detectDateConflicts(assignments),
		MissingRequirements: []TournamentIssues{},
		Overassigned:        []RefereeWorkload{},
		Underassigned:       []RefereeWorkload{},
	}

	if err := s.appendMissingRequirements(ctx, visibility, assignments, report); err != nil {
		return nil, err
	}
	if err := s.appendWorkload(ctx, actor, assignments, report); err != nil {
		return nil, err
	}

	return report, nil
}

// detectDateConflicts группирует назначения по арбитру и сравнивает даты
// турниров попарно.
func detectDateConflicts(assignments []models.Assignment) []DateConflict {
	byUser := make(map[int][]models.Assignment)
	for _, a := range assignments {
		if a.Tournament == nil {
			continue
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	userIDs := make([]int, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Ints(userIDs)

	conflicts := []DateConflict{}
	for _, userID := range userIDs {
		list := byUser[userID]
		sort.Slice(list, func(i, j int) bool {
			return list[i].Tournament.StartDate.Before(list[j].Tournament.StartDate)
		})
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				first, second := list[i].Tournament, list[j].Tournament
				switch {
				case first.DatesOverlap(second):
					conflicts = append(conflicts, DateConflict{
						UserID:           userID,
						User:             list[i].User,
						FirstTournament:  first,
						SecondTournament: second,
						Severity:         severityError,
					})
				case backToBack(first, second):
					conflicts = append(conflicts, DateConflict{
						UserID:           userID,
						User:             list[i].User,
						FirstTournament:  first,
						SecondTournament: second,
						Severity:         severityWarning,
					})
				}
			}
		}
	}
	return conflicts
}

// backToBack — турниры идут встык, день в день без перерыва.
func backToBack(a, b *models.Tournament) bool {
	gap := b.StartDate.Sub(a.EndDate)
	if gap < 0 {
		gap = a.StartDate.Sub(b.EndDate)
	}
	return gap > 0 && gap <= 24*time.Hour
}

func (s *auditService) appendMissingRequirements(ctx context.Context, visibility policies.TournamentFilter, assignments []models.Assignment, report *AuditReport) error {
	tournaments := []models.Tournament{}
	for _, status := range auditStatuses {
		status := status
		batch, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
			Visibility: visibility,
			Status:     &status,
		})
		if err != nil {
			return fmt.Errorf("failed to list tournaments for audit: %w", err)
		}
		tournaments = append(tournaments, batch...)
	}

	byTournament := make(map[int][]models.Assignment)
	for _, a := range assignments {
		byTournament[a.TournamentID] = append(byTournament[a.TournamentID], a)
	}

	for i := range tournaments {
		t := &tournaments[i]
		if t.Type == nil {
			continue
		}
		assigned := byTournament[t.ID]
		issues := []string{}

		if len(assigned) < t.Type.MinReferees {
			issues = append(issues, fmt.Sprintf("assigned %d of %d required referees", len(assigned), t.Type.MinReferees))
		}
		if len(assigned) > t.Type.MaxReferees {
			issues = append(issues, fmt.Sprintf("assigned %d referees, maximum is %d", len(assigned), t.Type.MaxReferees))
		}
		if t.Type.IsNational && !hasRole(assigned, models.RoleDirettore) {
			issues = append(issues, "national tournament has no Direttore di Torneo")
		}
		for _, a := range assigned {
			if a.User == nil || a.User.Level == nil {
				continue
			}
			if !a.User.Level.AtLeast(t.Type.RequiredLevel) {
				issues = append(issues, fmt.Sprintf("referee %s %s is below the required level", a.User.FirstName, a.User.LastName))
			}
		}
		if t.ZoneID != nil {
			for _, a := range assigned {
				if a.User == nil || a.User.ZoneID == nil {
					continue
				}
				if *a.User.ZoneID != *t.ZoneID {
					issues = append(issues, fmt.Sprintf("referee %s %s belongs to another zone", a.User.FirstName, a.User.LastName))
				}
			}
		}

		if len(issues) > 0 {
			report.MissingRequirements = append(report.MissingRequirements, TournamentIssues{Tournament: t, Issues: issues})
		}
	}
	return nil
}

func hasRole(assignments []models.Assignment, role models.AssignmentRole) bool {
	for _, a := range assignments {
		if a.Role == role {
			return true
		}
	}
	return false
}

func (s *auditService) appendWorkload(ctx context.Context, actor *models.User, assignments []models.Assignment, report *AuditReport) error {
	refereeType := models.TypeReferee
	active := true
	referees, err := s.userRepo.List(ctx, repositories.ListUsersFilter{
		Visibility: policies.VisibleUsers(actor),
		UserType:   &refereeType,
		IsActive:   &active,
	})
	if err != nil {
		return fmt.Errorf("failed to list referees for audit: %w", err)
	}

	counts := make(map[int]int)
	for _, a := range assignments {
		counts[a.UserID]++
	}

	for i := range referees {
		u := &referees[i]
		n := counts[u.ID]
		switch {
		case n >= overassignedThreshold:
			report.Overassigned = append(report.Overassigned, RefereeWorkload{User: u, AssignmentCount: n})
		case n == 0:
			report.Underassigned = append(report.Underassigned, RefereeWorkload{User: u, AssignmentCount: 0})
		}
	}
	return nil
}

// SuggestAlternatives подбирает арбитров на замену для турнира: активные,
// с достаточным уровнем, из нужной зоны (для зональных турниров), ещё не
// назначенные и без пересечений по датам с другими назначениями.
func (s *auditService) SuggestAlternatives(ctx context.Context, actorID int, tournamentID int) ([]models.User, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if !policies.CanAccessTournament(actor, tournament) {
		return nil, ErrNotFound
	}
	if tournament.Type == nil {
		return nil, fmt.Errorf("tournament %d: tournament type not loaded", tournament.ID)
	}

	refereeType := models.TypeReferee
	active := true
	referees, err := s.userRepo.List(ctx, repositories.ListUsersFilter{
		Visibility: policies.VisibleUsers(actor),
		UserType:   &refereeType,
		IsActive:   &active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate referees: %w", err)
	}

	assignments, err := s.assignmentRepo.ListWithDetails(ctx, repositories.ListAssignmentsFilter{
		Visibility:         policies.VisibleTournaments(actor),
		TournamentStatuses: auditStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	assignedHere := make(map[int]bool)
	byUser := make(map[int][]models.Assignment)
	for _, a := range assignments {
		if a.TournamentID == tournament.ID {
			assignedHere[a.UserID] = true
		}
		if a.Tournament != nil {
			byUser[a.UserID] = append(byUser[a.UserID], a)
		}
	}

	candidates := []models.User{}
	for i := range referees {
		u := referees[i]
		if assignedHere[u.ID] {
			continue
		}
		if u.Level == nil || !u.Level.AtLeast(tournament.Type.RequiredLevel) {
			continue
		}
		if !tournament.Type.IsNational {
			if u.ZoneID == nil || tournament.ZoneID == nil || *u.ZoneID != *tournament.ZoneID {
				continue
			}
		}
		if hasDateConflict(byUser[u.ID], tournament) {
			continue
		}
		candidates = append(candidates, u)
	}

	return candidates, nil
}

func hasDateConflict(assignments []models.Assignment, tournament *models.Tournament) bool {
	for _, a := range assignments {
		if a.Tournament != nil && a.Tournament.DatesOverlap(tournament) {
			return true
		}
	}
	return false
}
