package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/lib/pq"
)

var (
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrAssignmentDuplicate  = errors.New("referee is already assigned to this tournament")
	ErrAssignmentInvalidRef = errors.New("assignment user or tournament reference invalid")
)

// ListAssignmentsFilter — выборка назначений с фильтром видимости через
// принадлежащий турнир.
type ListAssignmentsFilter struct {
	Visibility         policies.TournamentFilter
	TournamentID       *int
	UserID             *int
	TournamentStatuses []models.TournamentStatus
	Limit              int
	Offset             int
}

type AssignmentRepository interface {
	// Create поддерживает транзакционный путь: сервис создаёт назначение и
	// перепроверяет вместимость в одной транзакции, уникальный индекс БД
	// закрывает гонку на дубликат.
	Create(ctx context.Context, exec SQLExecutor, assignment *models.Assignment) error
	GetByID(ctx context.Context, id int) (*models.Assignment, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ExistsByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (bool, error)
	ListWithDetails(ctx context.Context, filter ListAssignmentsFilter) ([]models.Assignment, error)
	Confirm(ctx context.Context, id int) error
	UpdateDocumentKey(ctx context.Context, id int, documentKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &postgresAssignmentRepository{db: db}
}

func (r *postgresAssignmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAssignmentRepository) Create(ctx context.Context, exec SQLExecutor, a *models.Assignment) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO assignments (user_id, tournament_id, role, status, is_confirmed, notes, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, assigned_at`

	err := executor.QueryRowContext(ctx, query,
		a.UserID, a.TournamentID, a.Role, a.Status, a.IsConfirmed, a.Notes, a.AssignedBy,
	).Scan(&a.ID, &a.AssignedAt)

	return r.handleAssignmentError(err)
}

func (r *postgresAssignmentRepository) GetByID(ctx context.Context, id int) (*models.Assignment, error) {
	query := `
		SELECT
			a.id, a.user_id, a.tournament_id, a.role, a.status, a.is_confirmed,
			a.notes, a.assigned_by, a.assigned_at, a.document_key,
			t.id, t.name, t.description, t.club_id, t.type_id, t.zone_id,
			t.status, t.start_date, t.end_date, t.availability_deadline,
			t.created_by, t.created_at,
			tt.id, tt.name, tt.is_national, tt.required_level, tt.min_referees, tt.max_referees, tt.created_at
		FROM assignments a
		JOIN tournaments t ON t.id = a.tournament_id
		JOIN tournament_types tt ON tt.id = t.type_id
		WHERE a.id = $1`

	a := &models.Assignment{Tournament: &models.Tournament{Type: &models.TournamentType{}}}
	t := a.Tournament
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.TournamentID, &a.Role, &a.Status, &a.IsConfirmed,
		&a.Notes, &a.AssignedBy, &a.AssignedAt, &a.DocumentKey,
		&t.ID, &t.Name, &t.Description, &t.ClubID, &t.TypeID, &t.ZoneID,
		&t.Status, &t.StartDate, &t.EndDate, &t.AvailabilityDeadline,
		&t.CreatedBy, &t.CreatedAt,
		&t.Type.ID, &t.Type.Name, &t.Type.IsNational, &t.Type.RequiredLevel,
		&t.Type.MinReferees, &t.Type.MaxReferees, &t.Type.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAssignmentRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM assignments WHERE tournament_id = $1`

	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assignments for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresAssignmentRepository) ExistsByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS(SELECT 1 FROM assignments WHERE user_id = $1 AND tournament_id = $2)`

	var exists bool
	if err := executor.QueryRowContext(ctx, query, userID, tournamentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListWithDetails returns assignments with the referee and the owning
// tournament (with type) hydrated. The audit service relies on this shape for
// conflict detection and requirement checks.
func (r *postgresAssignmentRepository) ListWithDetails(ctx context.Context, filter ListAssignmentsFilter) ([]models.Assignment, error) {
	query := `
		SELECT
			a.id, a.user_id, a.tournament_id, a.role, a.status, a.is_confirmed,
			a.notes, a.assigned_by, a.assigned_at, a.document_key,
			u.id, u.first_name, u.last_name, u.email, u.user_type, u.zone_id, u.level, u.is_active,
			t.id, t.name, t.description, t.club_id, t.type_id, t.zone_id,
			t.status, t.start_date, t.end_date, t.availability_deadline,
			t.created_by, t.created_at,
			tt.id, tt.name, tt.is_national, tt.required_level, tt.min_referees, tt.max_referees, tt.created_at
		FROM assignments a
		JOIN users u ON u.id = a.user_id
		JOIN tournaments t ON t.id = a.tournament_id
		JOIN tournament_types tt ON tt.id = t.type_id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	query, args, argID = appendVisibility(query, filter.Visibility, args, argID)

	if filter.TournamentID != nil {
		query += fmt.Sprintf(" AND a.tournament_id = $%d", argID)
		args = append(args, *filter.TournamentID)
		argID++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND a.user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if len(filter.TournamentStatuses) > 0 {
		statuses := make([]string, 0, len(filter.TournamentStatuses))
		for _, s := range filter.TournamentStatuses {
			statuses = append(statuses, string(s))
		}
		query += fmt.Sprintf(" AND t.status = ANY($%d)", argID)
		args = append(args, pq.Array(statuses))
		argID++
	}

	query += " ORDER BY t.start_date, a.assigned_at"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]models.Assignment, 0)
	for rows.Next() {
		var a models.Assignment
		a.User = &models.User{}
		a.Tournament = &models.Tournament{Type: &models.TournamentType{}}
		t := a.Tournament
		if scanErr := rows.Scan(
			&a.ID, &a.UserID, &a.TournamentID, &a.Role, &a.Status, &a.IsConfirmed,
			&a.Notes, &a.AssignedBy, &a.AssignedAt, &a.DocumentKey,
			&a.User.ID, &a.User.FirstName, &a.User.LastName, &a.User.Email,
			&a.User.UserType, &a.User.ZoneID, &a.User.Level, &a.User.IsActive,
			&t.ID, &t.Name, &t.Description, &t.ClubID, &t.TypeID, &t.ZoneID,
			&t.Status, &t.StartDate, &t.EndDate, &t.AvailabilityDeadline,
			&t.CreatedBy, &t.CreatedAt,
			&t.Type.ID, &t.Type.Name, &t.Type.IsNational, &t.Type.RequiredLevel,
			&t.Type.MinReferees, &t.Type.MaxReferees, &t.Type.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		assignments = append(assignments, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *postgresAssignmentRepository) Confirm(ctx context.Context, id int) error {
	query := `UPDATE assignments SET status = $1, is_confirmed = TRUE WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, models.AssignmentConfirmed, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresAssignmentRepository) UpdateDocumentKey(ctx context.Context, id int, documentKey *string) error {
	query := `UPDATE assignments SET document_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, documentKey, id)
	if err != nil {
		return fmt.Errorf("failed to update assignment document key: %w", err)
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresAssignmentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresAssignmentRepository) handleAssignmentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "assignments_user_id_tournament_id_key" {
				return ErrAssignmentDuplicate
			}
		case "23503":
			return ErrAssignmentInvalidRef
		}
	}
	return err
}
