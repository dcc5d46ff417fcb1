package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/policies"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrTournamentInvalidClub = errors.New("invalid club reference")
	ErrTournamentInvalidType = errors.New("invalid tournament type reference")
	ErrTournamentInvalidZone = errors.New("invalid zone reference")
	ErrTournamentInUse       = errors.New("tournament is in use (assignments/availabilities exist)")
)

// ListTournamentsFilter ограничивает выборку турниров. Visibility приходит из
// policies.VisibleTournaments и транслируется в WHERE, поэтому списки и
// одиночные проверки доступа опираются на один и тот же набор правил.
type ListTournamentsFilter struct {
	Visibility policies.TournamentFilter
	Status     *models.TournamentStatus
	ClubID     *int
	TypeID     *int
	Limit      int
	Offset     int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) error
	Delete(ctx context.Context, id int) error
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Все SELECT-ы ходят через JOIN с tournament_types: национальность турнира
// живёт в типе, и без неё фильтры видимости не применить.
const tournamentSelect = `
	SELECT
		t.id, t.name, t.description, t.club_id, t.type_id, t.zone_id,
		t.status, t.start_date, t.end_date, t.availability_deadline,
		t.created_by, t.created_at,
		tt.id, tt.name, tt.is_national, tt.required_level, tt.min_referees, tt.max_referees, tt.created_at
	FROM tournaments t
	JOIN tournament_types tt ON tt.id = t.type_id`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{Type: &models.TournamentType{}}
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.ClubID, &t.TypeID, &t.ZoneID,
		&t.Status, &t.StartDate, &t.EndDate, &t.AvailabilityDeadline,
		&t.CreatedBy, &t.CreatedAt,
		&t.Type.ID, &t.Type.Name, &t.Type.IsNational, &t.Type.RequiredLevel,
		&t.Type.MinReferees, &t.Type.MaxReferees, &t.Type.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// appendVisibility translates a policies.TournamentFilter into WHERE clauses
// on the aliased tournaments (t) / tournament_types (tt) join.
func appendVisibility(query string, f policies.TournamentFilter, args []interface{}, argID int) (string, []interface{}, int) {
	switch {
	case f.Unrestricted:
		// no restriction
	case f.NationalOnly:
		query += " AND tt.is_national = TRUE"
	case f.ZoneID != nil && f.IncludeNational:
		query += fmt.Sprintf(" AND (t.zone_id = $%d OR tt.is_national = TRUE)", argID)
		args = append(args, *f.ZoneID)
		argID++
	case f.ZoneID != nil:
		query += fmt.Sprintf(" AND t.zone_id = $%d", argID)
		args = append(args, *f.ZoneID)
		argID++
	}
	return query, args, argID
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	// is_national берётся из типа подзапросом: CHECK в схеме не даст
	// записать зональный турнир без зоны или национальный с зоной.
	query := `
		INSERT INTO tournaments (
			name, description, club_id, type_id, is_national, zone_id,
			status, start_date, end_date, availability_deadline, created_by
		) VALUES (
			$1, $2, $3, $4,
			(SELECT is_national FROM tournament_types WHERE id = $4),
			$5, $6, $7, $8, $9, $10
		)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.ClubID, t.TypeID, t.ZoneID,
		t.Status, t.StartDate, t.EndDate, t.AvailabilityDeadline, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := tournamentSelect + ` WHERE t.id = $1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := tournamentSelect + ` WHERE 1=1`

	args := []interface{}{}
	argID := 1

	query, args, argID = appendVisibility(query, filter.Visibility, args, argID)

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.ClubID != nil {
		query += fmt.Sprintf(" AND t.club_id = $%d", argID)
		args = append(args, *filter.ClubID)
		argID++
	}
	if filter.TypeID != nil {
		query += fmt.Sprintf(" AND t.type_id = $%d", argID)
		args = append(args, *filter.TypeID)
		argID++
	}

	query += " ORDER BY t.start_date, t.created_at"

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

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			club_id = $3,
			type_id = $4,
			is_national = (SELECT is_national FROM tournament_types WHERE id = $4),
			zone_id = $5,
			status = $6,
			start_date = $7,
			end_date = $8,
			availability_deadline = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.ClubID, t.TypeID, t.ZoneID,
		t.Status, t.StartDate, t.EndDate, t.AvailabilityDeadline,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}

	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// LockForUpdate держит блокировку строки турнира до конца транзакции.
// Конкурирующие вставки назначений на один турнир выстраиваются в очередь,
// и пересчёт занятых мест видит уже закоммиченные вставки соседей.
func (r *postgresTournamentRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `SELECT id FROM tournaments WHERE id = $1 FOR UPDATE`

	var locked int
	err := executor.QueryRowContext(ctx, query, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}
	return nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// GetTournamentsForAutoStatusUpdate returns tournaments the scheduler should
// advance: open past the availability deadline, and closed/assigned past the
// end date. Cancelled tournaments are never advanced.
func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := tournamentSelect + `
		WHERE t.status NOT IN ($1, $2)
		AND (
			(t.status = $3 AND t.availability_deadline <= $4) OR
			(t.status IN ($5, $6) AND t.end_date <= $4)
		)`
	args := []interface{}{
		models.StatusCompleted, // $1
		models.StatusCancelled, // $2
		models.StatusOpen,      // $3
		currentTime,            // $4
		models.StatusClosed,    // $5
		models.StatusAssigned,  // $6
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for auto status update: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration for auto status update: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "tournaments_club_id_fkey":
				return ErrTournamentInvalidClub
			case "tournaments_type_scope_fkey":
				return ErrTournamentInvalidType
			case "tournaments_zone_id_fkey":
				return ErrTournamentInvalidZone
			default:
				return ErrTournamentInUse
			}
		}
		// Подзапрос is_national вернул NULL: ссылка на несуществующий тип.
		if pqErr.Code == "23502" && pqErr.Column == "is_national" {
			return ErrTournamentInvalidType
		}
	}
	return err
}
