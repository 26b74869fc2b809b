package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/costing"
)

// TxStore exposes the balance operations available inside a transaction.
// GetBalanceForUpdate must take a row lock so concurrent mutations of the
// same key serialise on the database.
type TxStore interface {
	GetBalanceForUpdate(ctx context.Context, key Key) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
}

// ErrBalanceNotFound indicates a missing balance row. Callers treat it as a
// zero balance.
var ErrBalanceNotFound = errors.New("ledger: balance not found")

// Ledger applies balance mutations. All methods require a tx-scoped store so
// that the caller controls the transaction boundary; a movement or transfer
// step commits its balance writes together with its own rows or not at all.
type Ledger struct {
	allowNegative bool
}

// Config groups optional ledger settings.
type Config struct {
	AllowNegativeStock bool
}

// New builds a Ledger.
func New(cfg Config) *Ledger {
	return &Ledger{allowNegative: cfg.AllowNegativeStock}
}

func fetchOrZero(ctx context.Context, tx TxStore, key Key) (Balance, error) {
	bal, err := tx.GetBalanceForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return Balance{CompanyID: key.CompanyID, LocationID: key.LocationID, ProductID: key.ProductID}, nil
		}
		return Balance{}, err
	}
	return bal, nil
}

// Increment adds qty at unitCost to the balance and re-averages the cost.
// A zero qty is a no-op that changes neither stock nor average.
func (l *Ledger) Increment(ctx context.Context, tx TxStore, key Key, qty, unitCost decimal.Decimal) (Change, error) {
	if qty.IsNegative() {
		return Change{}, ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return Change{}, ErrInvalidUnitCost
	}
	bal, err := fetchOrZero(ctx, tx, key)
	if err != nil {
		return Change{}, err
	}
	change := Change{
		Previous:        bal.CurrentStock,
		PreviousAvgCost: bal.AverageCost,
		UnitCost:        unitCost,
	}
	if qty.IsZero() {
		change.New = bal.CurrentStock
		change.NewAvgCost = bal.AverageCost
		return change, nil
	}
	newAvg := costing.WeightedAverage(bal.CurrentStock, bal.AverageCost, qty, unitCost)
	now := time.Now().UTC()
	bal.CurrentStock = bal.CurrentStock.Add(qty)
	bal.AverageCost = newAvg
	bal.LastMovementAt = &now
	if err := tx.UpsertBalance(ctx, bal); err != nil {
		return Change{}, err
	}
	change.New = bal.CurrentStock
	change.NewAvgCost = newAvg
	return change, nil
}

// Decrement removes qty from the balance. Exits do not change the weighted
// average; the removed units are valued at the running average cost. The
// sufficiency check runs against the locked row, so two concurrent decrements
// cannot both pass it on a stale read.
func (l *Ledger) Decrement(ctx context.Context, tx TxStore, key Key, qty decimal.Decimal) (Change, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return Change{}, ErrInvalidQuantity
	}
	bal, err := fetchOrZero(ctx, tx, key)
	if err != nil {
		return Change{}, err
	}
	if !l.allowNegative && bal.CurrentStock.LessThan(qty) {
		return Change{}, &InsufficientStockError{
			ProductID:  key.ProductID,
			LocationID: key.LocationID,
			Available:  bal.CurrentStock,
			Requested:  qty,
		}
	}
	change := Change{
		Previous:        bal.CurrentStock,
		PreviousAvgCost: bal.AverageCost,
		NewAvgCost:      bal.AverageCost,
		UnitCost:        bal.AverageCost,
	}
	now := time.Now().UTC()
	bal.CurrentStock = bal.CurrentStock.Sub(qty)
	bal.LastMovementAt = &now
	if err := tx.UpsertBalance(ctx, bal); err != nil {
		return Change{}, err
	}
	change.New = bal.CurrentStock
	return change, nil
}

// Reserve earmarks qty of available stock, failing when availability is short.
// Reservations only constrain future reservations and ship-time checks; they
// do not move stock.
func (l *Ledger) Reserve(ctx context.Context, tx TxStore, key Key, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	bal, err := fetchOrZero(ctx, tx, key)
	if err != nil {
		return err
	}
	if bal.Available().LessThan(qty) {
		return &InsufficientStockError{
			ProductID:  key.ProductID,
			LocationID: key.LocationID,
			Available:  bal.Available(),
			Requested:  qty,
		}
	}
	bal.ReservedStock = bal.ReservedStock.Add(qty)
	return tx.UpsertBalance(ctx, bal)
}

// Release returns qty of reserved stock to availability, clamping at zero so
// a double release cannot drive the reservation negative.
func (l *Ledger) Release(ctx context.Context, tx TxStore, key Key, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	bal, err := fetchOrZero(ctx, tx, key)
	if err != nil {
		return err
	}
	bal.ReservedStock = bal.ReservedStock.Sub(qty)
	if bal.ReservedStock.IsNegative() {
		bal.ReservedStock = decimal.Zero
	}
	return tx.UpsertBalance(ctx, bal)
}
