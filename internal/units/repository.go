package units

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists units in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, companyID, unitID int64) (Unit, error) {
	const query = `
		SELECT id, company_id, code, name, unit_type, factor_to_base, is_base
		FROM units
		WHERE company_id = $1 AND id = $2`
	var u Unit
	err := r.pool.QueryRow(ctx, query, companyID, unitID).Scan(
		&u.ID, &u.CompanyID, &u.Code, &u.Name, &u.Type, &u.FactorToBase, &u.IsBase,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, ErrUnitNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]Unit, error) {
	const query = `
		SELECT id, company_id, code, name, unit_type, factor_to_base, is_base
		FROM units
		WHERE company_id = $1
		ORDER BY unit_type, code`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Code, &u.Name, &u.Type, &u.FactorToBase, &u.IsBase); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *Repository) Create(ctx context.Context, u Unit) (Unit, error) {
	const query = `
		INSERT INTO units (company_id, code, name, unit_type, factor_to_base, is_base)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query, u.CompanyID, u.Code, u.Name, u.Type, u.FactorToBase, u.IsBase).Scan(&u.ID)
	if err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (r *Repository) Update(ctx context.Context, u Unit) error {
	const query = `
		UPDATE units
		SET code = $3, name = $4, unit_type = $5, factor_to_base = $6, is_base = $7
		WHERE company_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, u.CompanyID, u.ID, u.Code, u.Name, u.Type, u.FactorToBase, u.IsBase)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}
