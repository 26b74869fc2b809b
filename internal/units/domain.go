package units

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// UnitType groups units that can be converted into each other.
type UnitType string

const (
	UnitTypeMass     UnitType = "MASS"
	UnitTypeVolume   UnitType = "VOLUME"
	UnitTypeQuantity UnitType = "QUANTITY"
	UnitTypeLength   UnitType = "LENGTH"
	UnitTypeArea     UnitType = "AREA"
	UnitTypeTime     UnitType = "TIME"
)

// IsValid checks if the unit type is supported.
func (t UnitType) IsValid() bool {
	switch t {
	case UnitTypeMass, UnitTypeVolume, UnitTypeQuantity, UnitTypeLength, UnitTypeArea, UnitTypeTime:
		return true
	default:
		return false
	}
}

// Unit represents a unit of measure scoped to a company. FactorToBase is the
// linear factor relating one unit to its type's base unit (e.g. KG -> G is
// 1000 when G is the base mass unit).
type Unit struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Type         UnitType        `json:"type"`
	FactorToBase decimal.Decimal `json:"factor_to_base"`
	IsBase       bool            `json:"is_base"`
}

var (
	// ErrUnitNotFound indicates a unit id that does not resolve.
	ErrUnitNotFound = errors.New("units: unit not found")
	// ErrInvalidFactor indicates a non-positive conversion factor.
	ErrInvalidFactor = errors.New("units: factor to base must be positive")
)

// MismatchError reports a conversion between incompatible unit types.
type MismatchError struct {
	FromCode string
	FromType UnitType
	ToCode   string
	ToType   UnitType
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("units: cannot convert %s (%s) to %s (%s)", e.FromCode, e.FromType, e.ToCode, e.ToType)
}
