package kardex

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
)

// TxStore exposes the kardex operations available inside a transaction.
type TxStore interface {
	GetLastEntry(ctx context.Context, companyID, locationID, productID int64) (Entry, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
}

// ErrNoEntries indicates an empty history for the key.
var ErrNoEntries = errors.New("kardex: no entries")

// ErrInvalidEntry indicates a malformed entry.
var ErrInvalidEntry = errors.New("kardex: invalid entry")

// Recorder appends kardex rows. Before inserting it checks the new row's
// previous stock against the last recorded new stock for the same key; a
// mismatch is logged and counted but the append still happens, so a single
// damaged chain never blocks stock operations.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a Recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// Record validates and appends one entry, returning its id.
func (r *Recorder) Record(ctx context.Context, tx TxStore, entry Entry) (int64, error) {
	if entry.CompanyID == 0 || entry.LocationID == 0 || entry.ProductID == 0 {
		return 0, ErrInvalidEntry
	}
	if !entry.OperationType.IsValid() {
		return 0, ErrInvalidEntry
	}
	if entry.Quantity.IsNegative() {
		return 0, ErrInvalidEntry
	}
	if entry.TotalCost.IsZero() {
		entry.TotalCost = entry.Quantity.Mul(entry.UnitCost)
	}

	expected := decimal.Zero
	last, err := tx.GetLastEntry(ctx, entry.CompanyID, entry.LocationID, entry.ProductID)
	switch {
	case err == nil:
		expected = last.NewStock
	case errors.Is(err, ErrNoEntries):
		// first row for this key
	default:
		return 0, err
	}

	if !entry.PreviousStock.Equal(expected) {
		inconsistency := &InconsistencyError{
			CompanyID:  entry.CompanyID,
			LocationID: entry.LocationID,
			ProductID:  entry.ProductID,
			EntryID:    last.ID,
			Expected:   expected,
			Got:        entry.PreviousStock,
		}
		r.logger.Error("kardex chain inconsistency detected",
			slog.Any("error", inconsistency),
			slog.Int64("company_id", entry.CompanyID),
			slog.Int64("location_id", entry.LocationID),
			slog.Int64("product_id", entry.ProductID))
	}

	return tx.InsertEntry(ctx, entry)
}
