package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/platform/db"
)

// Repository persists stock balances in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const balanceColumns = `company_id, location_id, product_id, current_stock, reserved_stock,
	minimum_stock, maximum_stock, average_cost, last_movement_at, updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(
		&b.CompanyID, &b.LocationID, &b.ProductID, &b.CurrentStock, &b.ReservedStock,
		&b.MinimumStock, &b.MaximumStock, &b.AverageCost, &b.LastMovementAt, &b.UpdatedAt,
	)
	return b, err
}

// GetBalance returns the balance row, or a zeroed balance when absent.
func (r *Repository) GetBalance(ctx context.Context, key Key) (Balance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances
		WHERE company_id = $1 AND location_id = $2 AND product_id = $3`
	b, err := scanBalance(r.pool.QueryRow(ctx, query, key.CompanyID, key.LocationID, key.ProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{CompanyID: key.CompanyID, LocationID: key.LocationID, ProductID: key.ProductID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

// ListByLocation returns all balances at a location.
func (r *Repository) ListByLocation(ctx context.Context, companyID, locationID int64) ([]Balance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances
		WHERE company_id = $1 AND location_id = $2
		ORDER BY product_id`
	rows, err := r.pool.Query(ctx, query, companyID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBalances(rows)
}

// ListBelowMinimum returns balances under their configured minimum, used by
// the low-stock scan.
func (r *Repository) ListBelowMinimum(ctx context.Context, companyID int64) ([]Balance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances
		WHERE company_id = $1 AND minimum_stock > 0 AND current_stock < minimum_stock
		ORDER BY location_id, product_id`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBalances(rows)
}

// ListKeys returns every balance key for a company, used by the kardex
// integrity scan.
func (r *Repository) ListKeys(ctx context.Context, companyID int64) ([]Key, error) {
	query := `SELECT company_id, location_id, product_id FROM stock_balances WHERE company_id = $1`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.CompanyID, &k.LocationID, &k.ProductID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetThresholds updates the min/max stock levels under the row lock.
func (r *Repository) SetThresholds(ctx context.Context, key Key, minStock, maxStock decimal.Decimal) error {
	return r.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		bal, err := tx.GetBalanceForUpdate(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrBalanceNotFound) {
				return err
			}
			bal = Balance{CompanyID: key.CompanyID, LocationID: key.LocationID, ProductID: key.ProductID}
		}
		bal.MinimumStock = minStock
		bal.MaximumStock = maxStock
		return tx.UpsertBalance(ctx, bal)
	})
}

func collectBalances(rows pgx.Rows) ([]Balance, error) {
	var balances []Balance
	for rows.Next() {
		var b Balance
		err := rows.Scan(
			&b.CompanyID, &b.LocationID, &b.ProductID, &b.CurrentStock, &b.ReservedStock,
			&b.MinimumStock, &b.MaximumStock, &b.AverageCost, &b.LastMovementAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps a pgx transaction as a TxStore. Movement and transfer
// repositories compose it so balance writes share their transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

func (s *txStore) GetBalanceForUpdate(ctx context.Context, key Key) (Balance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances
		WHERE company_id = $1 AND location_id = $2 AND product_id = $3
		FOR UPDATE`
	b, err := scanBalance(s.tx.QueryRow(ctx, query, key.CompanyID, key.LocationID, key.ProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{CompanyID: key.CompanyID, LocationID: key.LocationID, ProductID: key.ProductID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func (s *txStore) UpsertBalance(ctx context.Context, b Balance) error {
	query := `
		INSERT INTO stock_balances (company_id, location_id, product_id, current_stock, reserved_stock,
			minimum_stock, maximum_stock, average_cost, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (company_id, location_id, product_id) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			reserved_stock = EXCLUDED.reserved_stock,
			minimum_stock = EXCLUDED.minimum_stock,
			maximum_stock = EXCLUDED.maximum_stock,
			average_cost = EXCLUDED.average_cost,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = NOW()`
	_, err := s.tx.Exec(ctx, query,
		b.CompanyID, b.LocationID, b.ProductID, b.CurrentStock, b.ReservedStock,
		b.MinimumStock, b.MaximumStock, b.AverageCost, b.LastMovementAt,
	)
	return err
}
