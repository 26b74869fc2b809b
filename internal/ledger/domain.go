package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Key identifies a balance row. Every stock-affecting operation locks exactly
// one Key for the duration of its read-modify-write.
type Key struct {
	CompanyID  int64
	LocationID int64
	ProductID  int64
}

// Balance summarises stock held for a product at a location. Rows are created
// lazily on first movement and kept at zero instead of being deleted.
type Balance struct {
	CompanyID      int64           `json:"company_id"`
	LocationID     int64           `json:"location_id"`
	ProductID      int64           `json:"product_id"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	ReservedStock  decimal.Decimal `json:"reserved_stock"`
	MinimumStock   decimal.Decimal `json:"minimum_stock"`
	MaximumStock   decimal.Decimal `json:"maximum_stock"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	LastMovementAt *time.Time      `json:"last_movement_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Available is current stock minus reservations.
func (b Balance) Available() decimal.Decimal {
	return b.CurrentStock.Sub(b.ReservedStock)
}

// Key returns the balance's identifying key.
func (b Balance) Key() Key {
	return Key{CompanyID: b.CompanyID, LocationID: b.LocationID, ProductID: b.ProductID}
}

// Change snapshots a balance mutation, used by movement details and kardex rows.
type Change struct {
	Previous        decimal.Decimal
	New             decimal.Decimal
	PreviousAvgCost decimal.Decimal
	NewAvgCost      decimal.Decimal
	UnitCost        decimal.Decimal
}

var (
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("ledger: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("ledger: unit cost must be >= 0")
)

// InsufficientStockError reports a rejected decrement or reservation. The
// operation that raised it leaves the balance untouched.
type InsufficientStockError struct {
	ProductID  int64
	LocationID int64
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for product %d at location %d: available %s, requested %s",
		e.ProductID, e.LocationID, e.Available, e.Requested)
}
