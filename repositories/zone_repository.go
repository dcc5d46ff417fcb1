package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/lib/pq"
)

var (
	ErrZoneNotFound     = errors.New("zone not found")
	ErrZoneCodeConflict = errors.New("zone code conflict")
	ErrZoneInUse        = errors.New("zone is in use (users/clubs exist)")
)

type ZoneRepository interface {
	Create(ctx context.Context, zone *models.Zone) error
	GetByID(ctx context.Context, id int) (*models.Zone, error)
	List(ctx context.Context) ([]models.Zone, error)
	Update(ctx context.Context, zone *models.Zone) error
	Delete(ctx context.Context, id int) error
}

type postgresZoneRepository struct {
	db *sql.DB
}

func NewPostgresZoneRepository(db *sql.DB) ZoneRepository {
	return &postgresZoneRepository{db: db}
}

func (r *postgresZoneRepository) Create(ctx context.Context, zone *models.Zone) error {
	query := `
		INSERT INTO zones (name, code)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, zone.Name, zone.Code).Scan(&zone.ID, &zone.CreatedAt)
	return r.handleZoneError(err)
}

func (r *postgresZoneRepository) GetByID(ctx context.Context, id int) (*models.Zone, error) {
	query := `SELECT id, name, code, created_at FROM zones WHERE id = $1`

	z := &models.Zone{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&z.ID, &z.Name, &z.Code, &z.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrZoneNotFound
		}
		return nil, err
	}
	return z, nil
}

func (r *postgresZoneRepository) List(ctx context.Context) ([]models.Zone, error) {
	query := `SELECT id, name, code, created_at FROM zones ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := make([]models.Zone, 0)
	for rows.Next() {
		var z models.Zone
		if scanErr := rows.Scan(&z.ID, &z.Name, &z.Code, &z.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		zones = append(zones, z)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return zones, nil
}

func (r *postgresZoneRepository) Update(ctx context.Context, zone *models.Zone) error {
	query := `UPDATE zones SET name = $1, code = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, zone.Name, zone.Code, zone.ID)
	if err != nil {
		return r.handleZoneError(err)
	}
	return checkAffectedRows(result, ErrZoneNotFound)
}

func (r *postgresZoneRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM zones WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleZoneError(err)
	}
	return checkAffectedRows(result, ErrZoneNotFound)
}

func (r *postgresZoneRepository) handleZoneError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "zones_code_key" {
				return ErrZoneCodeConflict
			}
		case "23503":
			return ErrZoneInUse
		}
	}
	return err
}
