package movement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/platform/db"
)

// TxRepository is the write surface of one posting transaction. It composes
// the ledger and kardex stores so balance updates, history rows and movement
// rows commit or roll back together.
type TxRepository interface {
	ledger.TxStore
	kardex.TxStore
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	InsertMovementDetail(ctx context.Context, d Detail) (int64, error)
	SetMovementTotals(ctx context.Context, movementID int64, totalCost decimal.Decimal, status Status) error
}

// RepositoryPort is what the engine needs from persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// ListFilter selects movements for queries.
type ListFilter struct {
	CompanyID  int64
	LocationID int64
	Type       Type
	From       time.Time
	To         time.Time
	Limit      int
}

// Repository persists movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("movement repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const movementColumns = `id, public_id, company_id, location_id, counterpart_location_id, movement_type, reason,
	user_id, status, total_cost, notes, ref_module, ref_id, posted_at, created_at`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(
		&m.ID, &m.PublicID, &m.CompanyID, &m.LocationID, &m.CounterpartLocationID, &m.Type, &m.Reason,
		&m.UserID, &m.Status, &m.TotalCost, &m.Notes, &m.RefModule, &m.RefID, &m.PostedAt, &m.CreatedAt,
	)
	return m, err
}

// Get loads a movement header with its details.
func (r *Repository) Get(ctx context.Context, companyID, movementID int64) (Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE company_id = $1 AND id = $2`
	m, err := scanMovement(r.pool.QueryRow(ctx, query, companyID, movementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrNotFound
		}
		return Movement{}, err
	}

	detailQuery := `SELECT id, movement_id, product_id, unit_id, quantity, unit_cost, total_cost,
			previous_stock, new_stock, batch_number, expiry_date
		FROM movement_details
		WHERE movement_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, detailQuery, movementID)
	if err != nil {
		return Movement{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Detail
		err := rows.Scan(&d.ID, &d.MovementID, &d.ProductID, &d.UnitID, &d.Quantity, &d.UnitCost,
			&d.TotalCost, &d.PreviousStock, &d.NewStock, &d.BatchNumber, &d.ExpiryDate)
		if err != nil {
			return Movement{}, err
		}
		m.Details = append(m.Details, d)
	}
	return m, rows.Err()
}

// List returns movement headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + movementColumns + `
		FROM movements
		WHERE company_id = $1
		  AND ($2::bigint = 0 OR location_id = $2)
		  AND ($3::text = '' OR movement_type = $3)
		  AND ($4::timestamptz IS NULL OR posted_at >= $4)
		  AND ($5::timestamptz IS NULL OR posted_at <= $5)
		ORDER BY posted_at DESC, id DESC
		LIMIT $6`
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	rows, err := r.pool.Query(ctx, query, filter.CompanyID, filter.LocationID, string(filter.Type), from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type balanceStore = ledger.TxStore

type historyStore = kardex.TxStore

type txRepository struct {
	balanceStore
	historyStore
	tx pgx.Tx
}

// NewTxRepository wraps a pgx transaction as a TxRepository. The transfer
// repository composes it so shipment and receipt legs share the transfer's
// transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		balanceStore: ledger.NewTxStore(tx),
		historyStore: kardex.NewTxStore(tx),
		tx:           tx,
	}
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	query := `
		INSERT INTO movements (public_id, company_id, location_id, counterpart_location_id, movement_type, reason,
			user_id, status, total_cost, notes, ref_module, ref_id, posted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query,
		m.PublicID, m.CompanyID, m.LocationID, m.CounterpartLocationID, m.Type, m.Reason,
		m.UserID, m.Status, m.TotalCost, m.Notes, m.RefModule, m.RefID, m.PostedAt, m.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *txRepository) InsertMovementDetail(ctx context.Context, d Detail) (int64, error) {
	query := `
		INSERT INTO movement_details (movement_id, product_id, unit_id, quantity, unit_cost, total_cost,
			previous_stock, new_stock, batch_number, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query,
		d.MovementID, d.ProductID, d.UnitID, d.Quantity, d.UnitCost, d.TotalCost,
		d.PreviousStock, d.NewStock, d.BatchNumber, d.ExpiryDate,
	).Scan(&id)
	return id, err
}

func (r *txRepository) SetMovementTotals(ctx context.Context, movementID int64, totalCost decimal.Decimal, status Status) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE movements SET total_cost = $2, status = $3 WHERE id = $1`,
		movementID, totalCost, status)
	return err
}
