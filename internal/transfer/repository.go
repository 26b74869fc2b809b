package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kardexlabs/kardex/internal/movement"
	"github.com/kardexlabs/kardex/internal/platform/db"
)

// TxRepository is the write surface of one workflow transaction. It composes
// the movement transaction so shipment legs post their movements, balance
// updates and kardex rows together with the transfer's own state change.
type TxRepository interface {
	movement.TxRepository
	InsertTransfer(ctx context.Context, t Transfer) (int64, error)
	InsertTransferDetail(ctx context.Context, d Detail) (int64, error)
	GetTransferForUpdate(ctx context.Context, companyID, transferID int64) (Transfer, error)
	UpdateTransfer(ctx context.Context, t Transfer) error
	UpdateTransferDetail(ctx context.Context, d Detail) error
	InsertShipment(ctx context.Context, s Shipment) (int64, error)
	NextTransferNumber(ctx context.Context, companyID int64, year int) (string, error)
}

// RepositoryPort is what the workflow service needs from persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, transferID int64) (Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]Transfer, error)
}

// Repository persists transfers in PostgreSQL.
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
		return errors.New("transfer repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: movement.NewTxRepository(tx), tx: tx})
	})
}

const transferColumns = `id, company_id, number, origin_location_id, destination_location_id, status,
	requested_by, approved_by, shipped_by, received_by, notes, reject_reason,
	has_difference, damage_report, requested_at, approved_at, shipped_at, received_at, updated_at`

const detailColumns = `id, transfer_id, product_id, unit_id, requested_qty, shipped_qty, received_qty,
	difference, has_difference, unit_cost, batch_number, expiry_date, damage_report`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.Number, &t.OriginLocationID, &t.DestinationLocationID, &t.Status,
		&t.RequestedBy, &t.ApprovedBy, &t.ShippedBy, &t.ReceivedBy, &t.Notes, &t.RejectReason,
		&t.HasDifference, &t.DamageReport, &t.RequestedAt, &t.ApprovedAt, &t.ShippedAt, &t.ReceivedAt, &t.UpdatedAt,
	)
	return t, err
}

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID, &d.TransferID, &d.ProductID, &d.UnitID, &d.RequestedQty, &d.ShippedQty, &d.ReceivedQty,
		&d.Difference, &d.HasDifference, &d.UnitCost, &d.BatchNumber, &d.ExpiryDate, &d.DamageReport,
	)
	return d, err
}

func loadDetails(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, transferID int64) ([]Detail, error) {
	query := `SELECT ` + detailColumns + ` FROM inventory_transfer_details WHERE transfer_id = $1 ORDER BY id`
	rows, err := q.Query(ctx, query, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Get loads a transfer with its details.
func (r *Repository) Get(ctx context.Context, companyID, transferID int64) (Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM inventory_transfers WHERE company_id = $1 AND id = $2`
	t, err := scanTransfer(r.pool.QueryRow(ctx, query, companyID, transferID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, ErrNotFound
		}
		return Transfer{}, err
	}
	t.Details, err = loadDetails(ctx, r.pool, transferID)
	return t, err
}

// List returns transfer headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transfer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + transferColumns + `
		FROM inventory_transfers
		WHERE company_id = $1
		  AND ($2::bigint = 0 OR origin_location_id = $2 OR destination_location_id = $2)
		  AND ($3::text = '' OR status = $3)
		ORDER BY requested_at DESC, id DESC
		LIMIT $4`
	rows, err := r.pool.Query(ctx, query, filter.CompanyID, filter.LocationID, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

type txRepository struct {
	movement.TxRepository
	tx pgx.Tx
}

func (r *txRepository) InsertTransfer(ctx context.Context, t Transfer) (int64, error) {
	query := `
		INSERT INTO inventory_transfers (company_id, number, origin_location_id, destination_location_id,
			status, requested_by, notes, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query,
		t.CompanyID, t.Number, t.OriginLocationID, t.DestinationLocationID,
		t.Status, t.RequestedBy, t.Notes, t.RequestedAt,
	).Scan(&id)
	return id, err
}

func (r *txRepository) InsertTransferDetail(ctx context.Context, d Detail) (int64, error) {
	query := `
		INSERT INTO inventory_transfer_details (transfer_id, product_id, unit_id, requested_qty,
			shipped_qty, received_qty, difference, has_difference, unit_cost, batch_number, expiry_date, damage_report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query,
		d.TransferID, d.ProductID, d.UnitID, d.RequestedQty,
		d.ShippedQty, d.ReceivedQty, d.Difference, d.HasDifference, d.UnitCost, d.BatchNumber, d.ExpiryDate, d.DamageReport,
	).Scan(&id)
	return id, err
}

func (r *txRepository) GetTransferForUpdate(ctx context.Context, companyID, transferID int64) (Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM inventory_transfers
		WHERE company_id = $1 AND id = $2
		FOR UPDATE`
	t, err := scanTransfer(r.tx.QueryRow(ctx, query, companyID, transferID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, ErrNotFound
		}
		return Transfer{}, err
	}
	t.Details, err = loadDetails(ctx, r.tx, transferID)
	return t, err
}

func (r *txRepository) UpdateTransfer(ctx context.Context, t Transfer) error {
	query := `
		UPDATE inventory_transfers SET
			status = $2, approved_by = $3, shipped_by = $4, received_by = $5,
			notes = $6, reject_reason = $7, has_difference = $8, damage_report = $9,
			approved_at = $10, shipped_at = $11, received_at = $12, updated_at = NOW()
		WHERE id = $1`
	_, err := r.tx.Exec(ctx, query,
		t.ID, t.Status, t.ApprovedBy, t.ShippedBy, t.ReceivedBy,
		t.Notes, t.RejectReason, t.HasDifference, t.DamageReport,
		t.ApprovedAt, t.ShippedAt, t.ReceivedAt,
	)
	return err
}

func (r *txRepository) UpdateTransferDetail(ctx context.Context, d Detail) error {
	query := `
		UPDATE inventory_transfer_details SET
			shipped_qty = $2, received_qty = $3, difference = $4, has_difference = $5,
			unit_cost = $6, damage_report = $7
		WHERE id = $1`
	_, err := r.tx.Exec(ctx, query, d.ID, d.ShippedQty, d.ReceivedQty, d.Difference, d.HasDifference, d.UnitCost, d.DamageReport)
	return err
}

func (r *txRepository) InsertShipment(ctx context.Context, s Shipment) (int64, error) {
	query := `
		INSERT INTO inventory_transfer_shipments (transfer_id, detail_id, product_id, movement_id,
			quantity, unit_cost, batch_number, expiry_date, user_id, notes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query, s.TransferID, s.DetailID, s.ProductID, s.MovementID,
		s.Quantity, s.UnitCost, s.BatchNumber, s.ExpiryDate, s.UserID, s.Notes, s.OccurredAt).Scan(&id)
	return id, err
}

// NextTransferNumber allocates the next sequential document number for the
// company and year. The sequence row is locked so two concurrent requests
// cannot take the same number.
func (r *txRepository) NextTransferNumber(ctx context.Context, companyID int64, year int) (string, error) {
	query := `
		INSERT INTO transfer_sequences (company_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, year) DO UPDATE SET last_value = transfer_sequences.last_value + 1
		RETURNING last_value`
	var seq int64
	if err := r.tx.QueryRow(ctx, query, companyID, year).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("TRF-%d-%06d", year, seq), nil
}
