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
	ErrAvailabilityNotFound   = errors.New("availability not found")
	ErrAvailabilityDuplicate  = errors.New("availability already submitted for this tournament")
	ErrAvailabilityInvalidRef = errors.New("availability user or tournament reference invalid")
)

// ListAvailabilitiesFilter — выборка заявок с фильтром видимости через
// принадлежащий турнир.
type ListAvailabilitiesFilter struct {
	Visibility   policies.TournamentFilter
	TournamentID *int
	UserID       *int
	Limit        int
	Offset       int
}

type AvailabilityRepository interface {
	Create(ctx context.Context, availability *models.Availability) error
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Availability, error)
	List(ctx context.Context, filter ListAvailabilitiesFilter) ([]models.Availability, error)
	ListByUserWithTournaments(ctx context.Context, userID int, tournamentIDs []int) ([]models.Availability, error)
	DeleteByUserAndTournament(ctx context.Context, userID, tournamentID int) error
}

type postgresAvailabilityRepository struct {
	db *sql.DB
}

func NewPostgresAvailabilityRepository(db *sql.DB) AvailabilityRepository {
	return &postgresAvailabilityRepository{db: db}
}

func (r *postgresAvailabilityRepository) Create(ctx context.Context, a *models.Availability) error {
	query := `
		INSERT INTO availabilities (user_id, tournament_id, notes)
		VALUES ($1, $2, $3)
		RETURNING id, submitted_at`

	err := r.db.QueryRowContext(ctx, query, a.UserID, a.TournamentID, a.Notes).
		Scan(&a.ID, &a.SubmittedAt)

	return r.handleAvailabilityError(err)
}

func (r *postgresAvailabilityRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Availability, error) {
	query := `
		SELECT id, user_id, tournament_id, notes, submitted_at
		FROM availabilities
		WHERE user_id = $1 AND tournament_id = $2`

	a := &models.Availability{}
	err := r.db.QueryRowContext(ctx, query, userID, tournamentID).Scan(
		&a.ID, &a.UserID, &a.TournamentID, &a.Notes, &a.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAvailabilityRepository) List(ctx context.Context, filter ListAvailabilitiesFilter) ([]models.Availability, error) {
	query := `
		SELECT
			a.id, a.user_id, a.tournament_id, a.notes, a.submitted_at,
			u.id, u.first_name, u.last_name, u.email, u.user_type, u.zone_id, u.level, u.is_active
		FROM availabilities a
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

	query += " ORDER BY a.submitted_at DESC"

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

	availabilities := make([]models.Availability, 0)
	for rows.Next() {
		var a models.Availability
		a.User = &models.User{}
		if scanErr := rows.Scan(
			&a.ID, &a.UserID, &a.TournamentID, &a.Notes, &a.SubmittedAt,
			&a.User.ID, &a.User.FirstName, &a.User.LastName, &a.User.Email,
			&a.User.UserType, &a.User.ZoneID, &a.User.Level, &a.User.IsActive,
		); scanErr != nil {
			return nil, scanErr
		}
		availabilities = append(availabilities, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return availabilities, nil
}

// ListByUserWithTournaments returns the referee's availabilities for the given
// tournaments with Tournament and Type hydrated, as needed for notification
// batching. An empty tournamentIDs slice returns all of the referee's
// availabilities.
func (r *postgresAvailabilityRepository) ListByUserWithTournaments(ctx context.Context, userID int, tournamentIDs []int) ([]models.Availability, error) {
	query := `
		SELECT
			a.id, a.user_id, a.tournament_id, a.notes, a.submitted_at,
			t.id, t.name, t.description, t.club_id, t.type_id, t.zone_id,
			t.status, t.start_date, t.end_date, t.availability_deadline,
			t.created_by, t.created_at,
			tt.id, tt.name, tt.is_national, tt.required_level, tt.min_referees, tt.max_referees, tt.created_at
		FROM availabilities a
		JOIN tournaments t ON t.id = a.tournament_id
		JOIN tournament_types tt ON tt.id = t.type_id
		WHERE a.user_id = $1`

	args := []interface{}{userID}
	if len(tournamentIDs) > 0 {
		query += " AND a.tournament_id = ANY($2)"
		args = append(args, pq.Array(tournamentIDs))
	}
	query += " ORDER BY t.start_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	availabilities := make([]models.Availability, 0)
	for rows.Next() {
		var a models.Availability
		a.Tournament = &models.Tournament{Type: &models.TournamentType{}}
		t := a.Tournament
		if scanErr := rows.Scan(
			&a.ID, &a.UserID, &a.TournamentID, &a.Notes, &a.SubmittedAt,
			&t.ID, &t.Name, &t.Description, &t.ClubID, &t.TypeID, &t.ZoneID,
			&t.Status, &t.StartDate, &t.EndDate, &t.AvailabilityDeadline,
			&t.CreatedBy, &t.CreatedAt,
			&t.Type.ID, &t.Type.Name, &t.Type.IsNational, &t.Type.RequiredLevel,
			&t.Type.MinReferees, &t.Type.MaxReferees, &t.Type.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		availabilities = append(availabilities, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return availabilities, nil
}

func (r *postgresAvailabilityRepository) DeleteByUserAndTournament(ctx context.Context, userID, tournamentID int) error {
	query := `DELETE FROM availabilities WHERE user_id = $1 AND tournament_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, tournamentID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAvailabilityNotFound)
}

func (r *postgresAvailabilityRepository) handleAvailabilityError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "availabilities_user_id_tournament_id_key" {
				return ErrAvailabilityDuplicate
			}
		case "23503":
			return ErrAvailabilityInvalidRef
		}
	}
	return err
}
