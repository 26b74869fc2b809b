package locations

import (
	"errors"
	"time"
)

// Type distinguishes physical warehouses from sale floors and virtual
// locations such as in-transit buffers.
type Type string

const (
	TypeWarehouse Type = "WAREHOUSE"
	TypeStore     Type = "STORE"
	TypeVirtual   Type = "VIRTUAL"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeWarehouse, TypeStore, TypeVirtual:
		return true
	default:
		return false
	}
}

// Location is a stock-holding place of a company.
type Location struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound indicates a missing location.
var ErrNotFound = errors.New("locations: not found")

// ErrDuplicateCode indicates a code collision within the company.
var ErrDuplicateCode = errors.New("locations: code already in use")
