package kardex

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the kardex history from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, company_id, location_id, product_id, movement_id, movement_detail_id,
	operation_type, operation_reason, quantity, unit_cost, total_cost,
	previous_stock, new_stock, running_average_cost,
	doc_number, batch_number, expiry_date, user_id, operation_date`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.LocationID, &e.ProductID, &e.MovementID, &e.MovementDetailID,
		&e.OperationType, &e.OperationReason, &e.Quantity, &e.UnitCost, &e.TotalCost,
		&e.PreviousStock, &e.NewStock, &e.RunningAverageCost,
		&e.DocNumber, &e.BatchNumber, &e.ExpiryDate, &e.UserID, &e.OperationDate,
	)
	return e, err
}

// History returns rows for the key in canonical (operation_date, id) order.
func (r *Repository) History(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + entryColumns + `
		FROM product_kardex
		WHERE company_id = $1 AND location_id = $2 AND product_id = $3
		  AND ($4::timestamptz IS NULL OR operation_date >= $4)
		  AND ($5::timestamptz IS NULL OR operation_date <= $5)
		ORDER BY operation_date, id
		LIMIT $6`
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	rows, err := r.pool.Query(ctx, query, filter.CompanyID, filter.LocationID, filter.ProductID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VerifyChain replays the full history for a key and returns the first break,
// or nil when the chain is intact.
func (r *Repository) VerifyChain(ctx context.Context, companyID, locationID, productID int64) (*InconsistencyError, error) {
	query := `SELECT id, previous_stock, new_stock
		FROM product_kardex
		WHERE company_id = $1 AND location_id = $2 AND product_id = $3
		ORDER BY operation_date, id`
	rows, err := r.pool.Query(ctx, query, companyID, locationID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expected := decimal.Zero
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PreviousStock, &e.NewStock); err != nil {
			return nil, err
		}
		if !e.PreviousStock.Equal(expected) {
			return &InconsistencyError{
				CompanyID:  companyID,
				LocationID: locationID,
				ProductID:  productID,
				EntryID:    e.ID,
				Expected:   expected,
				Got:        e.PreviousStock,
			}, nil
		}
		expected = e.NewStock
	}
	return nil, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps a pgx transaction as a TxStore, letting movement and
// transfer transactions append kardex rows atomically with their own writes.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

func (s *txStore) GetLastEntry(ctx context.Context, companyID, locationID, productID int64) (Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM product_kardex
		WHERE company_id = $1 AND location_id = $2 AND product_id = $3
		ORDER BY operation_date DESC, id DESC
		LIMIT 1`
	e, err := scanEntry(s.tx.QueryRow(ctx, query, companyID, locationID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNoEntries
		}
		return Entry{}, err
	}
	return e, nil
}

func (s *txStore) InsertEntry(ctx context.Context, e Entry) (int64, error) {
	query := `
		INSERT INTO product_kardex (company_id, location_id, product_id, movement_id, movement_detail_id,
			operation_type, operation_reason, quantity, unit_cost, total_cost,
			previous_stock, new_stock, running_average_cost,
			doc_number, batch_number, expiry_date, user_id, operation_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		e.CompanyID, e.LocationID, e.ProductID, e.MovementID, e.MovementDetailID,
		e.OperationType, e.OperationReason, e.Quantity, e.UnitCost, e.TotalCost,
		e.PreviousStock, e.NewStock, e.RunningAverageCost,
		e.DocNumber, e.BatchNumber, e.ExpiryDate, e.UserID, e.OperationDate,
	).Scan(&id)
	return id, err
}
