package movement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
)

type memState struct {
	balances  map[ledger.Key]ledger.Balance
	entries   []kardex.Entry
	movements map[int64]Movement
	details   map[int64]Detail

	nextMovementID int64
	nextDetailID   int64
	nextEntryID    int64
}

func newMemState() *memState {
	return &memState{
		balances:  make(map[ledger.Key]ledger.Balance),
		movements: make(map[int64]Movement),
		details:   make(map[int64]Detail),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	c.entries = append(c.entries, s.entries...)
	c.nextMovementID = s.nextMovementID
	c.nextDetailID = s.nextDetailID
	c.nextEntryID = s.nextEntryID
	return c
}

// memRepo applies transactions copy-on-write so a failed posting leaves the
// visible state untouched, mirroring a database rollback.
type memRepo struct {
	state *memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: newMemState()}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	working := r.state.clone()
	if err := fn(ctx, &memTx{state: working}); err != nil {
		return err
	}
	r.state = working
	return nil
}

type memTx struct {
	state *memState
}

func (t *memTx) GetBalanceForUpdate(_ context.Context, key ledger.Key) (ledger.Balance, error) {
	bal, ok := t.state.balances[key]
	if !ok {
		return ledger.Balance{CompanyID: key.CompanyID, LocationID: key.LocationID, ProductID: key.ProductID}, ledger.ErrBalanceNotFound
	}
	return bal, nil
}

func (t *memTx) UpsertBalance(_ context.Context, b ledger.Balance) error {
	t.state.balances[b.Key()] = b
	return nil
}

func (t *memTx) GetLastEntry(_ context.Context, companyID, locationID, productID int64) (kardex.Entry, error) {
	for i := len(t.state.entries) - 1; i >= 0; i-- {
		e := t.state.entries[i]
		if e.CompanyID == companyID && e.LocationID == locationID && e.ProductID == productID {
			return e, nil
		}
	}
	return kardex.Entry{}, kardex.ErrNoEntries
}

func (t *memTx) InsertEntry(_ context.Context, e kardex.Entry) (int64, error) {
	t.state.nextEntryID++
	e.ID = t.state.nextEntryID
	t.state.entries = append(t.state.entries, e)
	return e.ID, nil
}

func (t *memTx) InsertMovement(_ context.Context, m Movement) (int64, error) {
	t.state.nextMovementID++
	m.ID = t.state.nextMovementID
	t.state.movements[m.ID] = m
	return m.ID, nil
}

func (t *memTx) InsertMovementDetail(_ context.Context, d Detail) (int64, error) {
	t.state.nextDetailID++
	d.ID = t.state.nextDetailID
	t.state.details[d.ID] = d
	return d.ID, nil
}

func (t *memTx) SetMovementTotals(_ context.Context, movementID int64, totalCost decimal.Decimal, status Status) error {
	m := t.state.movements[movementID]
	m.TotalCost = totalCost
	m.Status = status
	t.state.movements[movementID] = m
	return nil
}

type staticProducts struct {
	products map[int64]ProductRef
}

func (p *staticProducts) Resolve(_ context.Context, _, productID int64) (ProductRef, error) {
	ref, ok := p.products[productID]
	if !ok {
		return ProductRef{}, &ProductNotFoundError{ProductID: productID}
	}
	return ref, nil
}

type staticConverter struct {
	factors map[int64]decimal.Decimal
}

func (c *staticConverter) ToBase(_ context.Context, _ int64, qty decimal.Decimal, fromUnitID, baseUnitID int64) (decimal.Decimal, error) {
	if fromUnitID == 0 || fromUnitID == baseUnitID {
		return qty, nil
	}
	return qty.Mul(c.factors[fromUnitID]), nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine(repo *memRepo, allowNegative bool) *Engine {
	products := &staticProducts{products: map[int64]ProductRef{
		100: {ID: 100, Code: "SKU-100", Name: "Widget", BaseUnitID: 1},
		200: {ID: 200, Code: "SKU-200", Name: "Gadget", BaseUnitID: 1},
	}}
	converter := &staticConverter{factors: map[int64]decimal.Decimal{
		2: d("12"), // dozen
	}}
	return NewEngine(
		repo,
		ledger.New(ledger.Config{AllowNegativeStock: allowNegative}),
		kardex.NewRecorder(nil),
		products,
		converter,
		nil,
		nil,
		nil,
	)
}

func baseInput(t Type, r Reason, lines ...LineInput) ProcessInput {
	return ProcessInput{
		CompanyID:  1,
		LocationID: 10,
		Type:       t,
		Reason:     r,
		UserID:     7,
		Lines:      lines,
	}
}

func TestProcessEntryThenExit(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	entry, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 100,
		Quantity:  d("100"),
		UnitCost:  d("10.00"),
	}))
	require.NoError(t, err)
	require.Equal(t, StatusClosed, entry.Status)
	require.True(t, entry.TotalCost.Equal(d("1000.00")))
	require.Len(t, entry.Details, 1)
	require.True(t, entry.Details[0].PreviousStock.Equal(d("0")))
	require.True(t, entry.Details[0].NewStock.Equal(d("100")))

	exit, err := eng.ProcessMovement(ctx, baseInput(TypeExit, ReasonSale, LineInput{
		ProductID: 100,
		Quantity:  d("40"),
	}))
	require.NoError(t, err)
	require.True(t, exit.Details[0].NewStock.Equal(d("60")))
	// exits are valued at the running average cost
	require.True(t, exit.Details[0].UnitCost.Equal(d("10.00")))

	bal := repo.state.balances[ledger.Key{CompanyID: 1, LocationID: 10, ProductID: 100}]
	require.True(t, bal.CurrentStock.Equal(d("60")))

	require.Len(t, repo.state.entries, 2)
	require.Equal(t, kardex.OperationEntry, repo.state.entries[0].OperationType)
	require.Equal(t, kardex.OperationExit, repo.state.entries[1].OperationType)
	require.True(t, repo.state.entries[1].PreviousStock.Equal(repo.state.entries[0].NewStock))
}

func TestProcessInsufficientStockRollsBack(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	_, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 100, Quantity: d("60"), UnitCost: d("10.00"),
	}))
	require.NoError(t, err)

	_, err = eng.ProcessMovement(ctx, baseInput(TypeExit, ReasonSale,
		LineInput{ProductID: 100, Quantity: d("50")},
		LineInput{ProductID: 100, Quantity: d("50")},
	))
	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(d("10")))

	// the first line's decrement must not survive the failed posting
	bal := repo.state.balances[ledger.Key{CompanyID: 1, LocationID: 10, ProductID: 100}]
	require.True(t, bal.CurrentStock.Equal(d("60")))
	require.Len(t, repo.state.entries, 1)
	require.Len(t, repo.state.movements, 1)
}

func TestProcessAdjustmentToTarget(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	_, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 100, Quantity: d("60"), UnitCost: d("10.00"),
	}))
	require.NoError(t, err)

	target := d("45")
	adj, err := eng.ProcessMovement(ctx, baseInput(TypeAdjustment, ReasonAdjustment, LineInput{
		ProductID:   100,
		TargetStock: &target,
	}))
	require.NoError(t, err)
	require.True(t, adj.Details[0].Quantity.Equal(d("15")))
	require.True(t, adj.Details[0].NewStock.Equal(d("45")))

	up := d("50")
	adj, err = eng.ProcessMovement(ctx, baseInput(TypeAdjustment, ReasonAdjustment, LineInput{
		ProductID:   100,
		TargetStock: &up,
	}))
	require.NoError(t, err)
	require.True(t, adj.Details[0].Quantity.Equal(d("5")))
	require.True(t, adj.Details[0].NewStock.Equal(d("50")))

	last := repo.state.entries[len(repo.state.entries)-1]
	require.Equal(t, kardex.OperationAdjustment, last.OperationType)
	require.True(t, last.Quantity.Equal(d("5")))
}

func TestProcessZeroDeltaAdjustmentSkipsKardex(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	_, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 100, Quantity: d("30"), UnitCost: d("10.00"),
	}))
	require.NoError(t, err)

	same := d("30")
	adj, err := eng.ProcessMovement(ctx, baseInput(TypeAdjustment, ReasonAdjustment, LineInput{
		ProductID:   100,
		TargetStock: &same,
	}))
	require.NoError(t, err)
	require.True(t, adj.Details[0].Quantity.IsZero())
	require.Len(t, repo.state.entries, 1)
}

func TestProcessConvertsLineUnits(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	// 5 dozen posted against a base unit of pieces
	m, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 100,
		UnitID:    2,
		Quantity:  d("5"),
		UnitCost:  d("1.00"),
	}))
	require.NoError(t, err)
	require.True(t, m.Details[0].Quantity.Equal(d("60")))

	bal := repo.state.balances[ledger.Key{CompanyID: 1, LocationID: 10, ProductID: 100}]
	require.True(t, bal.CurrentStock.Equal(d("60")))
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	repo := newMemRepo()
	eng := newTestEngine(repo, false)
	ctx := context.Background()

	_, err := eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonSale, LineInput{
		ProductID: 100, Quantity: d("1"), UnitCost: d("1"),
	}))
	require.ErrorIs(t, err, ErrInvalidReason)

	_, err = eng.ProcessMovement(ctx, baseInput(Type("TRANSFER"), ReasonTransferOut, LineInput{
		ProductID: 100, Quantity: d("1"),
	}))
	require.ErrorIs(t, err, ErrInvalidMovementType)

	_, err = eng.ProcessMovement(ctx, baseInput(TypeEntry, ReasonPurchase, LineInput{
		ProductID: 999, Quantity: d("1"), UnitCost: d("1"),
	}))
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(999), notFound.ProductID)
	require.Empty(t, repo.state.movements)
}
