package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the canonical transfer lifecycle. Stock only moves on Ship and
// Receive; every other transition touches reservations at most.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// CanApprove reports whether the transfer accepts approval.
func (s Status) CanApprove() bool { return s == StatusPending }

// CanReject reports whether the transfer accepts rejection.
func (s Status) CanReject() bool { return s == StatusPending }

// CanShip reports whether the transfer accepts shipping. An in-transit
// transfer still accepts further shipments until every line is fully
// dispatched.
func (s Status) CanShip() bool { return s == StatusApproved || s == StatusInTransit }

// CanReceive reports whether the transfer accepts receipt.
func (s Status) CanReceive() bool { return s == StatusInTransit }

// CanCancel reports whether the transfer accepts cancellation. Once stock has
// shipped the transfer must complete; goods in transit cannot be cancelled
// away.
func (s Status) CanCancel() bool { return s == StatusPending || s == StatusApproved }

// Transfer moves stock between two locations of the same company through an
// approval workflow.
type Transfer struct {
	ID                    int64      `json:"id"`
	CompanyID             int64      `json:"company_id"`
	Number                string     `json:"number"`
	OriginLocationID      int64      `json:"origin_location_id"`
	DestinationLocationID int64      `json:"destination_location_id"`
	Status                Status     `json:"status"`
	RequestedBy           int64      `json:"requested_by"`
	ApprovedBy            int64      `json:"approved_by,omitempty"`
	ShippedBy             int64      `json:"shipped_by,omitempty"`
	ReceivedBy            int64      `json:"received_by,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	RejectReason          string     `json:"reject_reason,omitempty"`
	HasDifference         bool       `json:"has_difference"`
	DamageReport          string     `json:"damage_report,omitempty"`
	RequestedAt           time.Time  `json:"requested_at"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`
	ShippedAt             *time.Time `json:"shipped_at,omitempty"`
	ReceivedAt            *time.Time `json:"received_at,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Details               []Detail   `json:"details,omitempty"`
}

// Detail is one product line of a transfer. Quantities are held in the
// product's base unit. ShippedQty accumulates across shipments; Difference is
// shipped minus received, signed, so both short and over receipts are
// visible.
type Detail struct {
	ID            int64           `json:"id"`
	TransferID    int64           `json:"transfer_id"`
	ProductID     int64           `json:"product_id"`
	UnitID        int64           `json:"unit_id"`
	RequestedQty  decimal.Decimal `json:"requested_qty"`
	ShippedQty    decimal.Decimal `json:"shipped_qty"`
	ReceivedQty   decimal.Decimal `json:"received_qty"`
	Difference    decimal.Decimal `json:"difference"`
	HasDifference bool            `json:"has_difference"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	BatchNumber   string          `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	DamageReport  string          `json:"damage_report,omitempty"`
}

// Shipment is one physical batch dispatched against a detail. A requested
// line may be fulfilled across several shipments, each linked to the exit
// movement that posted it.
type Shipment struct {
	ID          int64           `json:"id"`
	TransferID  int64           `json:"transfer_id"`
	DetailID    int64           `json:"detail_id"`
	ProductID   int64           `json:"product_id"`
	MovementID  int64           `json:"movement_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	UserID      int64           `json:"user_id"`
	Notes       string          `json:"notes,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// RequestLine is one requested product line.
type RequestLine struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	UnitID      int64           `json:"unit_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// CreateRequest opens a transfer in pending state.
type CreateRequest struct {
	CompanyID             int64         `json:"company_id" validate:"required,gt=0"`
	OriginLocationID      int64         `json:"origin_location_id" validate:"required,gt=0"`
	DestinationLocationID int64         `json:"destination_location_id" validate:"required,gt=0"`
	RequestedBy           int64         `json:"requested_by" validate:"required,gt=0"`
	Notes                 string        `json:"notes,omitempty"`
	Lines                 []RequestLine `json:"lines" validate:"required,min=1,dive"`
}

// DecisionRequest carries an approve, reject or cancel decision.
type DecisionRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Reason string `json:"reason,omitempty"`
}

// ShipLine dispatches part of one detail's requested quantity.
type ShipLine struct {
	DetailID int64           `json:"detail_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ShipRequest dispatches stock against an approved or in-transit transfer.
// Without lines it ships the full remaining quantity of every detail;
// with lines it ships only the named details, so one request line can be
// fulfilled across several shipments.
type ShipRequest struct {
	UserID int64      `json:"user_id" validate:"required,gt=0"`
	Notes  string     `json:"notes,omitempty"`
	Lines  []ShipLine `json:"lines,omitempty" validate:"omitempty,dive"`
}

// ReceiveLine overrides the received quantity for one detail. Details without
// a line are received in full.
type ReceiveLine struct {
	DetailID     int64           `json:"detail_id" validate:"required,gt=0"`
	ReceivedQty  decimal.Decimal `json:"received_qty"`
	DamageReport string          `json:"damage_report,omitempty"`
}

// ReceiveRequest confirms arrival at the destination.
type ReceiveRequest struct {
	UserID       int64         `json:"user_id" validate:"required,gt=0"`
	Lines        []ReceiveLine `json:"lines,omitempty" validate:"omitempty,dive"`
	DamageReport string        `json:"damage_report,omitempty"`
}

// ListFilter selects transfers for queries.
type ListFilter struct {
	CompanyID  int64
	LocationID int64
	Status     Status
	Limit      int
}

var (
	// ErrNotFound indicates a missing transfer.
	ErrNotFound = errors.New("transfer: not found")
	// ErrSameLocation occurs when origin and destination match.
	ErrSameLocation = errors.New("transfer: origin and destination must differ")
	// ErrNoLines occurs for a transfer without lines.
	ErrNoLines = errors.New("transfer: at least one line required")
	// ErrInvalidQuantity occurs for non-positive requested quantities.
	ErrInvalidQuantity = errors.New("transfer: quantity must be positive")
	// ErrUnknownDetail occurs when a ship or receive line references a
	// foreign detail.
	ErrUnknownDetail = errors.New("transfer: line references unknown detail")
	// ErrInvalidReceivedQty occurs for a negative received quantity.
	ErrInvalidReceivedQty = errors.New("transfer: received quantity must be >= 0")
	// ErrInvalidShippedQty occurs for a non-positive shipped quantity.
	ErrInvalidShippedQty = errors.New("transfer: shipped quantity must be positive")
	// ErrShipExceedsRequested occurs when cumulative shipments would overrun
	// the requested quantity of a detail.
	ErrShipExceedsRequested = errors.New("transfer: shipped quantity exceeds remaining requested quantity")
	// ErrNothingToShip occurs when every detail is already fully shipped.
	ErrNothingToShip = errors.New("transfer: nothing left to ship")
)

// InvalidStateError reports a transition attempted from the wrong status.
type InvalidStateError struct {
	Action   string
	Required string
	Actual   Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transfer: cannot %s from status %s (requires %s)", e.Action, e.Actual, e.Required)
}
