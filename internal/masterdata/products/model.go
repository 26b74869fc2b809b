package products

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable or storable item. Stock for a product is always held
// in its base unit; purchase and sale lines in other units are converted
// before they reach the ledger.
type Product struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	CategoryID   int64           `json:"category_id,omitempty"`
	BaseUnitID   int64           `json:"base_unit_id"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	TrackBatches bool            `json:"track_batches"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ErrNotFound indicates a missing product.
var ErrNotFound = errors.New("products: not found")

// ErrDuplicateCode indicates a code collision within the company.
var ErrDuplicateCode = errors.New("products: code already in use")
