package locations

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kardexlabs/kardex/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, companyID, id int64) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, location Location) error
	Deactivate(ctx context.Context, companyID, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, company_id, code, name, location_type, address, is_active, created_at, updated_at`

func scan(row pgx.Row) (Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.CompanyID, &l.Code, &l.Name, &l.Type, &l.Address, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	where := ` WHERE company_id = $1`
	args := []any{filters.CompanyID}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR code ILIKE $` + n + `)`
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM locations` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filters.Offset())
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		locations = append(locations, l)
	}
	return locations, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Location, error) {
	query := `SELECT ` + columns + ` FROM locations WHERE company_id = $1 AND id = $2`
	l, err := scan(r.db.QueryRow(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, ErrNotFound
		}
		return Location{}, err
	}
	return l, nil
}

func (r *repository) Create(ctx context.Context, location Location) (Location, error) {
	query := `
		INSERT INTO locations (company_id, code, name, location_type, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query,
		location.CompanyID, location.Code, location.Name, location.Type, location.Address, location.IsActive, now,
	).Scan(&location.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Location{}, ErrDuplicateCode
		}
		return Location{}, err
	}
	location.CreatedAt = now
	location.UpdatedAt = now
	return location, nil
}

func (r *repository) Update(ctx context.Context, location Location) error {
	query := `
		UPDATE locations SET code = $3, name = $4, location_type = $5, address = $6, is_active = $7, updated_at = NOW()
		WHERE company_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query,
		location.CompanyID, location.ID, location.Code, location.Name, location.Type, location.Address, location.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes the location; balances and history keep their rows.
func (r *repository) Deactivate(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE locations SET is_active = FALSE, updated_at = NOW() WHERE company_id = $1 AND id = $2`,
		companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
