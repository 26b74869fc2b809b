package units

import (
	"context"

	"github.com/shopspring/decimal"
)

// Convert translates a quantity expressed in from into the equivalent
// quantity in to. A nil from means the caller already holds the quantity in
// the target unit and it is returned unchanged; likewise when both units are
// the same. Units of different types do not convert.
func Convert(qty decimal.Decimal, from, to *Unit) (decimal.Decimal, error) {
	if from == nil || to == nil || from.ID == to.ID {
		return qty, nil
	}
	if from.Type != to.Type {
		return decimal.Decimal{}, &MismatchError{
			FromCode: from.Code,
			FromType: from.Type,
			ToCode:   to.Code,
			ToType:   to.Type,
		}
	}
	if from.FactorToBase.LessThanOrEqual(decimal.Zero) || to.FactorToBase.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidFactor
	}
	return qty.Mul(from.FactorToBase).Div(to.FactorToBase), nil
}

// Resolver looks up units by id.
type Resolver interface {
	Get(ctx context.Context, companyID, unitID int64) (Unit, error)
}

// Converter resolves units through a Resolver and converts quantities into a
// product's base unit. It is the only place the movement engine touches units.
type Converter struct {
	units Resolver
}

// NewConverter builds a Converter.
func NewConverter(units Resolver) *Converter {
	return &Converter{units: units}
}

// ToBase converts qty from the given unit into the product's base unit.
// A zero fromUnitID is treated as already base.
func (c *Converter) ToBase(ctx context.Context, companyID int64, qty decimal.Decimal, fromUnitID, baseUnitID int64) (decimal.Decimal, error) {
	if c == nil || fromUnitID == 0 || fromUnitID == baseUnitID {
		return qty, nil
	}
	from, err := c.units.Get(ctx, companyID, fromUnitID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	base, err := c.units.Get(ctx, companyID, baseUnitID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Convert(qty, &from, &base)
}
