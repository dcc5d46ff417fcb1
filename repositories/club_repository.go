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
	ErrClubNotFound    = errors.New("club not found")
	ErrClubZoneInvalid = errors.New("club zone reference invalid")
	ErrClubInUse       = errors.New("club is in use (tournaments exist)")
)

type ListClubsFilter struct {
	Visibility policies.ClubFilter
	IsActive   *bool
	Limit      int
	Offset     int
}

type ClubRepository interface {
	Create(ctx context.Context, club *models.Club) error
	GetByID(ctx context.Context, id int) (*models.Club, error)
	List(ctx context.Context, filter ListClubsFilter) ([]models.Club, error)
	Update(ctx context.Context, club *models.Club) error
	Delete(ctx context.Context, id int) error
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

func (r *postgresClubRepository) Create(ctx context.Context, club *models.Club) error {
	query := `
		INSERT INTO clubs (name, zone_id, email, city, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		club.Name, club.ZoneID, club.Email, club.City, club.IsActive,
	).Scan(&club.ID, &club.CreatedAt)

	return r.handleClubError(err)
}

func (r *postgresClubRepository) GetByID(ctx context.Context, id int) (*models.Club, error) {
	query := `
		SELECT id, name, zone_id, email, city, is_active, created_at
		FROM clubs
		WHERE id = $1`

	c := &models.Club{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.ZoneID, &c.Email, &c.City, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresClubRepository) List(ctx context.Context, filter ListClubsFilter) ([]models.Club, error) {
	query := `
		SELECT id, name, zone_id, email, city, is_active, created_at
		FROM clubs
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if !filter.Visibility.Unrestricted && filter.Visibility.ZoneID != nil {
		query += fmt.Sprintf(" AND zone_id = $%d", argID)
		args = append(args, *filter.Visibility.ZoneID)
		argID++
	}
	if filter.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argID)
		args = append(args, *filter.IsActive)
		argID++
	}

	query += " ORDER BY name"

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

	clubs := make([]models.Club, 0)
	for rows.Next() {
		var c models.Club
		if scanErr := rows.Scan(
			&c.ID, &c.Name, &c.ZoneID, &c.Email, &c.City, &c.IsActive, &c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		clubs = append(clubs, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return clubs, nil
}

func (r *postgresClubRepository) Update(ctx context.Context, club *models.Club) error {
	query := `
		UPDATE clubs SET
			name = $1,
			zone_id = $2,
			email = $3,
			city = $4,
			is_active = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		club.Name, club.ZoneID, club.Email, club.City, club.IsActive, club.ID,
	)
	if err != nil {
		return r.handleClubError(err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *postgresClubRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM clubs WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleClubError(err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *postgresClubRepository) handleClubError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			if pqErr.Constraint == "clubs_zone_id_fkey" {
				return ErrClubZoneInvalid
			}
			return ErrClubInUse
		}
	}
	return err
}
