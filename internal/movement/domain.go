package movement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type enumerates logical inventory events.
type Type string

const (
	TypeEntry      Type = "ENTRY"
	TypeExit       Type = "EXIT"
	TypeAdjustment Type = "ADJUSTMENT"
	TypeProduction Type = "PRODUCTION"
)

// Reason qualifies why a movement happened.
type Reason string

const (
	ReasonPurchase    Reason = "PURCHASE"
	ReasonSale        Reason = "SALE"
	ReasonTransferIn  Reason = "TRANSFER_IN"
	ReasonTransferOut Reason = "TRANSFER_OUT"
	ReasonAdjustment  Reason = "ADJUSTMENT"
	ReasonReturn      Reason = "RETURN"
	ReasonDamage      Reason = "DAMAGE"
	ReasonLoss        Reason = "LOSS"
	ReasonInitial     Reason = "INITIAL"
	ReasonProduction  Reason = "PRODUCTION"
	ReasonShrinkage   Reason = "SHRINKAGE"
)

// Status tracks the movement header lifecycle. Posted movements close in the
// same transaction that applies their stock effects; status only ever moves
// forward.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusClosed   Status = "CLOSED"
	StatusRejected Status = "REJECTED"
)

// validReasons lists the reasons accepted per movement type.
var validReasons = map[Type][]Reason{
	TypeEntry:      {ReasonPurchase, ReasonReturn, ReasonInitial, ReasonTransferIn},
	TypeExit:       {ReasonSale, ReasonDamage, ReasonLoss, ReasonShrinkage, ReasonTransferOut},
	TypeAdjustment: {ReasonAdjustment},
	TypeProduction: {ReasonProduction},
}

// ReasonValidFor reports whether the reason is accepted for the type.
func ReasonValidFor(t Type, r Reason) bool {
	for _, allowed := range validReasons[t] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Movement is the header of one inventory event.
type Movement struct {
	ID                    int64           `json:"id"`
	PublicID              uuid.UUID       `json:"public_id"`
	CompanyID             int64           `json:"company_id"`
	LocationID            int64           `json:"location_id"`
	CounterpartLocationID int64           `json:"counterpart_location_id,omitempty"`
	Type                  Type            `json:"type"`
	Reason                Reason          `json:"reason"`
	UserID                int64           `json:"user_id"`
	Status                Status          `json:"status"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	Notes                 string          `json:"notes,omitempty"`
	RefModule             string          `json:"ref_module,omitempty"`
	RefID                 string          `json:"ref_id,omitempty"`
	PostedAt              time.Time       `json:"posted_at"`
	CreatedAt             time.Time       `json:"created_at"`
	Details               []Detail        `json:"details,omitempty"`
}

// Detail is one line of a movement with the balance snapshot taken when it
// posted. Details are immutable once the parent movement is closed.
type Detail struct {
	ID            int64           `json:"id"`
	MovementID    int64           `json:"movement_id"`
	ProductID     int64           `json:"product_id"`
	UnitID        int64           `json:"unit_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	BatchNumber   string          `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
}

// LineInput describes one requested line. Quantity is expressed in the line's
// unit and converted to the product's base unit before posting. Adjustments
// carry the absolute target stock instead of a delta.
type LineInput struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	UnitID      int64            `json:"unit_id,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    decimal.Decimal  `json:"unit_cost"`
	TargetStock *decimal.Decimal `json:"target_stock,omitempty"`
	BatchNumber string           `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time       `json:"expiry_date,omitempty"`
}

// ProcessInput describes a movement posting request.
type ProcessInput struct {
	CompanyID             int64       `json:"company_id" validate:"required,gt=0"`
	LocationID            int64       `json:"location_id" validate:"required,gt=0"`
	CounterpartLocationID int64       `json:"counterpart_location_id,omitempty"`
	Type                  Type        `json:"type" validate:"required"`
	Reason                Reason      `json:"reason" validate:"required"`
	UserID                int64       `json:"user_id" validate:"required,gt=0"`
	Notes                 string      `json:"notes,omitempty"`
	RefModule             string      `json:"ref_module,omitempty"`
	RefID                 string      `json:"ref_id,omitempty"`
	DocNumber             string      `json:"doc_number,omitempty"`
	IdempotencyKey        string      `json:"idempotency_key,omitempty"`
	Lines                 []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// ProductRef is the slice of the product master the engine needs.
type ProductRef struct {
	ID         int64
	Code       string
	Name       string
	BaseUnitID int64
}

var (
	// ErrInvalidMovementType occurs for unsupported or non-postable types.
	ErrInvalidMovementType = errors.New("movement: invalid movement type")
	// ErrInvalidReason occurs when the reason does not fit the type.
	ErrInvalidReason = errors.New("movement: reason not valid for movement type")
	// ErrNoLines occurs for a movement without lines.
	ErrNoLines = errors.New("movement: at least one line required")
	// ErrNotFound indicates a missing movement.
	ErrNotFound = errors.New("movement: not found")
)

// ProductNotFoundError reports an unknown product on a line.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("movement: product %d not found", e.ProductID)
}
