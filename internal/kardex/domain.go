package kardex

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OperationType discriminates the direction of a kardex row. Quantities are
// stored as unsigned magnitudes; the type carries the sign.
type OperationType string

const (
	OperationEntry      OperationType = "ENTRY"
	OperationExit       OperationType = "EXIT"
	OperationAdjustment OperationType = "ADJUSTMENT"
)

// IsValid checks if the operation type is supported.
func (t OperationType) IsValid() bool {
	switch t {
	case OperationEntry, OperationExit, OperationAdjustment:
		return true
	default:
		return false
	}
}

// Entry is one immutable row of the stock history for a (company, location,
// product) key. Rows are never updated or deleted; the ordering
// (operation_date, id) ascending is the canonical history.
type Entry struct {
	ID                 int64           `json:"id"`
	CompanyID          int64           `json:"company_id"`
	LocationID         int64           `json:"location_id"`
	ProductID          int64           `json:"product_id"`
	MovementID         int64           `json:"movement_id"`
	MovementDetailID   int64           `json:"movement_detail_id"`
	OperationType      OperationType   `json:"operation_type"`
	OperationReason    string          `json:"operation_reason"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	PreviousStock      decimal.Decimal `json:"previous_stock"`
	NewStock           decimal.Decimal `json:"new_stock"`
	RunningAverageCost decimal.Decimal `json:"running_average_cost"`
	DocNumber          string          `json:"doc_number,omitempty"`
	BatchNumber        string          `json:"batch_number,omitempty"`
	ExpiryDate         *time.Time      `json:"expiry_date,omitempty"`
	UserID             int64           `json:"user_id"`
	OperationDate      time.Time       `json:"operation_date"`
}

// Filter selects history rows for queries.
type Filter struct {
	CompanyID  int64
	LocationID int64
	ProductID  int64
	From       time.Time
	To         time.Time
	Limit      int
}

// InconsistencyError reports a broken balance chain: the previous stock of a
// row does not match the new stock of the row before it. It is an anomaly to
// investigate, not a reason to abort the operation that detected it.
type InconsistencyError struct {
	CompanyID  int64
	LocationID int64
	ProductID  int64
	EntryID    int64
	Expected   decimal.Decimal
	Got        decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("kardex: chain broken for company %d location %d product %d at entry %d: expected previous stock %s, got %s",
		e.CompanyID, e.LocationID, e.ProductID, e.EntryID, e.Expected, e.Got)
}
