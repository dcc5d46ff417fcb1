package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentTypeNotFound     = errors.New("tournament type not found")
	ErrTournamentTypeNameConflict = errors.New("tournament type name conflict")
	ErrTournamentTypeInUse        = errors.New("tournament type is in use (tournaments exist)")
)

type TournamentTypeRepository interface {
	Create(ctx context.Context, tt *models.TournamentType) error
	GetByID(ctx context.Context, id int) (*models.TournamentType, error)
	List(ctx context.Context) ([]models.TournamentType, error)
	Update(ctx context.Context, tt *models.TournamentType) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentTypeRepository struct {
	db *sql.DB
}

func NewPostgresTournamentTypeRepository(db *sql.DB) TournamentTypeRepository {
	return &postgresTournamentTypeRepository{db: db}
}

const tournamentTypeColumns = `id, name, is_national, required_level, min_referees, max_referees, created_at`

func (r *postgresTournamentTypeRepository) Create(ctx context.Context, tt *models.TournamentType) error {
	query := `
		INSERT INTO tournament_types (name, is_national, required_level, min_referees, max_referees)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tt.Name, tt.IsNational, tt.RequiredLevel, tt.MinReferees, tt.MaxReferees,
	).Scan(&tt.ID, &tt.CreatedAt)

	return r.handleTypeError(err)
}

func (r *postgresTournamentTypeRepository) GetByID(ctx context.Context, id int) (*models.TournamentType, error) {
	query := `SELECT ` + tournamentTypeColumns + ` FROM tournament_types WHERE id = $1`

	tt := &models.TournamentType{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tt.ID, &tt.Name, &tt.IsNational, &tt.RequiredLevel,
		&tt.MinReferees, &tt.MaxReferees, &tt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentTypeNotFound
		}
		return nil, err
	}
	return tt, nil
}

func (r *postgresTournamentTypeRepository) List(ctx context.Context) ([]models.TournamentType, error) {
	query := `SELECT ` + tournamentTypeColumns + ` FROM tournament_types ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]models.TournamentType, 0)
	for rows.Next() {
		var tt models.TournamentType
		if scanErr := rows.Scan(
			&tt.ID, &tt.Name, &tt.IsNational, &tt.RequiredLevel,
			&tt.MinReferees, &tt.MaxReferees, &tt.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		types = append(types, tt)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}

func (r *postgresTournamentTypeRepository) Update(ctx context.Context, tt *models.TournamentType) error {
	query := `
		UPDATE tournament_types SET
			name = $1,
			is_national = $2,
			required_level = $3,
			min_referees = $4,
			max_referees = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		tt.Name, tt.IsNational, tt.RequiredLevel, tt.MinReferees, tt.MaxReferees, tt.ID,
	)
	if err != nil {
		return r.handleTypeError(err)
	}
	return checkAffectedRows(result, ErrTournamentTypeNotFound)
}

func (r *postgresTournamentTypeRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournament_types WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTypeError(err)
	}
	return checkAffectedRows(result, ErrTournamentTypeNotFound)
}

func (r *postgresTournamentTypeRepository) handleTypeError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_types_name_key" {
				return ErrTournamentTypeNameConflict
			}
		case "23503":
			return ErrTournamentTypeInUse
		}
	}
	return err
}
