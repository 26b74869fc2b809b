package units

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func unit(id int64, code string, t UnitType, factor string) Unit {
	f, err := decimal.NewFromString(factor)
	if err != nil {
		panic(err)
	}
	return Unit{ID: id, CompanyID: 1, Code: code, Name: code, Type: t, FactorToBase: f, IsBase: f.Equal(decimal.NewFromInt(1))}
}

func TestConvertSameUnitUnchanged(t *testing.T) {
	kg := unit(1, "KG", UnitTypeMass, "1000")
	qty := decimal.NewFromInt(7)
	got, err := Convert(qty, &kg, &kg)
	require.NoError(t, err)
	require.True(t, got.Equal(qty))
}

func TestConvertNilFromUnchanged(t *testing.T) {
	g := unit(2, "G", UnitTypeMass, "1")
	qty := decimal.NewFromInt(250)
	got, err := Convert(qty, nil, &g)
	require.NoError(t, err)
	require.True(t, got.Equal(qty))
}

func TestConvertAcrossFactors(t *testing.T) {
	kg := unit(1, "KG", UnitTypeMass, "1000")
	g := unit(2, "G", UnitTypeMass, "1")
	got, err := Convert(decimal.NewFromFloat(2.5), &kg, &g)
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(2500)), "got %s", got)

	back, err := Convert(got, &g, &kg)
	require.NoError(t, err)
	require.True(t, back.Equal(decimal.NewFromFloat(2.5)), "got %s", back)
}

func TestConvertTypeMismatch(t *testing.T) {
	kg := unit(1, "KG", UnitTypeMass, "1000")
	l := unit(3, "L", UnitTypeVolume, "1")
	_, err := Convert(decimal.NewFromInt(1), &kg, &l)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "KG", mismatch.FromCode)
	require.Equal(t, "L", mismatch.ToCode)
}

type staticResolver map[int64]Unit

func (r staticResolver) Get(_ context.Context, _ int64, unitID int64) (Unit, error) {
	u, ok := r[unitID]
	if !ok {
		return Unit{}, ErrUnitNotFound
	}
	return u, nil
}

func TestConverterToBase(t *testing.T) {
	res := staticResolver{
		1: unit(1, "KG", UnitTypeMass, "1000"),
		2: unit(2, "G", UnitTypeMass, "1"),
	}
	conv := NewConverter(res)
	ctx := context.Background()

	got, err := conv.ToBase(ctx, 1, decimal.NewFromInt(3), 1, 2)
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(3000)))

	// zero from-unit means already base
	got, err = conv.ToBase(ctx, 1, decimal.NewFromInt(3), 0, 2)
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(3)))

	_, err = conv.ToBase(ctx, 1, decimal.NewFromInt(3), 9, 2)
	require.ErrorIs(t, err, ErrUnitNotFound)
}
