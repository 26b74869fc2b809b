package transfer

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/movement"
)

type memState struct {
	balances        map[ledger.Key]ledger.Balance
	entries         []kardex.Entry
	movements       map[int64]movement.Movement
	movementDetails map[int64]movement.Detail
	transfers       map[int64]Transfer
	transferDetails map[int64]Detail
	shipments       []Shipment
	sequences       map[string]int64

	nextMovementID       int64
	nextMovementDetailID int64
	nextEntryID          int64
	nextTransferID       int64
	nextTransferDetailID int64
	nextShipmentID       int64
}

func newMemState() *memState {
	return &memState{
		balances:        make(map[ledger.Key]ledger.Balance),
		movements:       make(map[int64]movement.Movement),
		movementDetails: make(map[int64]movement.Detail),
		transfers:       make(map[int64]Transfer),
		transferDetails: make(map[int64]Detail),
		sequences:       make(map[string]int64),
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
	for k, v := range s.movementDetails {
		c.movementDetails[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.transferDetails {
		c.transferDetails[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	c.entries = append(c.entries, s.entries...)
	c.shipments = append(c.shipments, s.shipments...)
	c.nextMovementID = s.nextMovementID
	c.nextMovementDetailID = s.nextMovementDetailID
	c.nextEntryID = s.nextEntryID
	c.nextTransferID = s.nextTransferID
	c.nextTransferDetailID = s.nextTransferDetailID
	c.nextShipmentID = s.nextShipmentID
	return c
}

func (s *memState) detailsFor(transferID int64) []Detail {
	var details []Detail
	for _, d := range s.transferDetails {
		if d.TransferID == transferID {
			details = append(details, d)
		}
	}
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })
	return details
}

// memRepo applies transactions copy-on-write so a failed transition leaves
// the visible state untouched, mirroring a database rollback.
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

func (r *memRepo) Get(_ context.Context, companyID, transferID int64) (Transfer, error) {
	t, ok := r.state.transfers[transferID]
	if !ok || t.CompanyID != companyID {
		return Transfer{}, ErrNotFound
	}
	t.Details = r.state.detailsFor(transferID)
	return t, nil
}

func (r *memRepo) List(_ context.Context, filter ListFilter) ([]Transfer, error) {
	var out []Transfer
	for _, t := range r.state.transfers {
		if t.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
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

func (t *memTx) InsertMovement(_ context.Context, m movement.Movement) (int64, error) {
	t.state.nextMovementID++
	m.ID = t.state.nextMovementID
	t.state.movements[m.ID] = m
	return m.ID, nil
}

func (t *memTx) InsertMovementDetail(_ context.Context, d movement.Detail) (int64, error) {
	t.state.nextMovementDetailID++
	d.ID = t.state.nextMovementDetailID
	t.state.movementDetails[d.ID] = d
	return d.ID, nil
}

func (t *memTx) SetMovementTotals(_ context.Context, movementID int64, totalCost decimal.Decimal, status movement.Status) error {
	m := t.state.movements[movementID]
	m.TotalCost = totalCost
	m.Status = status
	t.state.movements[movementID] = m
	return nil
}

func (t *memTx) InsertTransfer(_ context.Context, tr Transfer) (int64, error) {
	t.state.nextTransferID++
	tr.ID = t.state.nextTransferID
	tr.Details = nil
	t.state.transfers[tr.ID] = tr
	return tr.ID, nil
}

func (t *memTx) InsertTransferDetail(_ context.Context, d Detail) (int64, error) {
	t.state.nextTransferDetailID++
	d.ID = t.state.nextTransferDetailID
	t.state.transferDetails[d.ID] = d
	return d.ID, nil
}

func (t *memTx) GetTransferForUpdate(_ context.Context, companyID, transferID int64) (Transfer, error) {
	tr, ok := t.state.transfers[transferID]
	if !ok || tr.CompanyID != companyID {
		return Transfer{}, ErrNotFound
	}
	tr.Details = t.state.detailsFor(transferID)
	return tr, nil
}

func (t *memTx) UpdateTransfer(_ context.Context, tr Transfer) error {
	tr.Details = nil
	t.state.transfers[tr.ID] = tr
	return nil
}

func (t *memTx) UpdateTransferDetail(_ context.Context, d Detail) error {
	t.state.transferDetails[d.ID] = d
	return nil
}

func (t *memTx) InsertShipment(_ context.Context, s Shipment) (int64, error) {
	t.state.nextShipmentID++
	s.ID = t.state.nextShipmentID
	t.state.shipments = append(t.state.shipments, s)
	return s.ID, nil
}

func (t *memTx) NextTransferNumber(_ context.Context, companyID int64, year int) (string, error) {
	key := fmt.Sprintf("%d:%d", companyID, year)
	t.state.sequences[key]++
	return fmt.Sprintf("TRF-%d-%06d", year, t.state.sequences[key]), nil
}

type staticProducts struct{}

func (staticProducts) Resolve(_ context.Context, _, productID int64) (movement.ProductRef, error) {
	if productID >= 900 {
		return movement.ProductRef{}, &movement.ProductNotFoundError{ProductID: productID}
	}
	return movement.ProductRef{ID: productID, Code: fmt.Sprintf("SKU-%d", productID), BaseUnitID: 1}, nil
}

type recordingNotifier struct {
	shipped       []ShippedEvent
	completed     []CompletedEvent
	discrepancies []DiscrepancyEvent
}

func (n *recordingNotifier) TransferShipped(_ context.Context, ev ShippedEvent) error {
	n.shipped = append(n.shipped, ev)
	return nil
}

func (n *recordingNotifier) TransferCompleted(_ context.Context, ev CompletedEvent) error {
	n.completed = append(n.completed, ev)
	return nil
}

func (n *recordingNotifier) DiscrepancyFound(_ context.Context, ev DiscrepancyEvent) error {
	n.discrepancies = append(n.discrepancies, ev)
	return nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

const (
	companyID = int64(1)
	originID  = int64(10)
	destID    = int64(20)
	productID = int64(100)
)

func newTestService(repo *memRepo) (*Service, *recordingNotifier) {
	ldg := ledger.New(ledger.Config{})
	engine := movement.NewEngine(nil, ldg, kardex.NewRecorder(nil), staticProducts{}, nil, nil, nil, nil)
	notifier := &recordingNotifier{}
	svc := NewService(repo, ldg, engine, staticProducts{}, nil, notifier, nil, nil)
	return svc, notifier
}

func seedStock(repo *memRepo, locationID int64, qty, avgCost string) {
	key := ledger.Key{CompanyID: companyID, LocationID: locationID, ProductID: productID}
	repo.state.balances[key] = ledger.Balance{
		CompanyID:    companyID,
		LocationID:   locationID,
		ProductID:    productID,
		CurrentStock: d(qty),
		AverageCost:  d(avgCost),
	}
}

func requestTransfer(t *testing.T, svc *Service, qty string) Transfer {
	t.Helper()
	created, err := svc.Request(context.Background(), CreateRequest{
		CompanyID:             companyID,
		OriginLocationID:      originID,
		DestinationLocationID: destID,
		RequestedBy:           7,
		Lines:                 []RequestLine{{ProductID: productID, Quantity: d(qty)}},
	})
	require.NoError(t, err)
	return created
}

func balance(repo *memRepo, locationID int64) ledger.Balance {
	return repo.state.balances[ledger.Key{CompanyID: companyID, LocationID: locationID, ProductID: productID}]
}

func TestTransferLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc, notifier := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "12.50")

	created := requestTransfer(t, svc, "30")
	require.Equal(t, StatusPending, created.Status)
	require.Regexp(t, `^TRF-\d{4}-000001$`, created.Number)
	require.Len(t, created.Details, 1)
	// unit cost snapshotted from the origin balance
	require.True(t, created.Details[0].UnitCost.Equal(d("12.50")))

	approved, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("30")))
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("100")))

	shipped, err := svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, shipped.Status)
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("70")))
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
	require.True(t, shipped.Details[0].ShippedQty.Equal(d("30")))
	require.Len(t, notifier.shipped, 1)

	received, err := svc.Receive(ctx, companyID, created.ID, ReceiveRequest{UserID: 11})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, received.Status)
	require.False(t, received.HasDifference)
	require.True(t, balance(repo, destID).CurrentStock.Equal(d("30")))
	require.True(t, balance(repo, destID).AverageCost.Equal(d("12.50")))
	require.Len(t, notifier.completed, 1)
	require.Empty(t, notifier.discrepancies)

	// conservation: what left the origin is exactly what entered the destination
	total := balance(repo, originID).CurrentStock.Add(balance(repo, destID).CurrentStock)
	require.True(t, total.Equal(d("100")))

	// two movements (exit + entry), each with a kardex row
	require.Len(t, repo.state.movements, 2)
	require.Len(t, repo.state.entries, 2)
	require.Len(t, repo.state.shipments, 1)
	require.Equal(t, created.Details[0].ID, repo.state.shipments[0].DetailID)
	require.Equal(t, productID, repo.state.shipments[0].ProductID)
	require.True(t, repo.state.shipments[0].Quantity.Equal(d("30")))
	require.True(t, repo.state.shipments[0].UnitCost.Equal(d("12.50")))
}

func TestShortReceiptRecordsDifference(t *testing.T) {
	repo := newMemRepo()
	svc, notifier := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "30")
	_, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	shipped, err := svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.NoError(t, err)

	received, err := svc.Receive(ctx, companyID, created.ID, ReceiveRequest{
		UserID: 11,
		Lines: []ReceiveLine{{
			DetailID:     shipped.Details[0].ID,
			ReceivedQty:  d("25"),
			DamageReport: "5 units crushed in transit",
		}},
		DamageReport: "5 units crushed in transit",
	})
	require.NoError(t, err)
	require.True(t, received.HasDifference)
	require.True(t, received.Details[0].HasDifference)
	require.True(t, received.Details[0].Difference.Equal(d("5")))
	require.Equal(t, "5 units crushed in transit", received.Details[0].DamageReport)
	// only what actually arrived enters the destination
	require.True(t, balance(repo, destID).CurrentStock.Equal(d("25")))
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("70")))
	require.Len(t, notifier.discrepancies, 1)
	require.Equal(t, "5 units crushed in transit", notifier.discrepancies[0].DamageReport)
}

func TestPartialShipmentsAccumulate(t *testing.T) {
	repo := newMemRepo()
	svc, notifier := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "50")
	_, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	detailID := created.Details[0].ID

	first, err := svc.Ship(ctx, companyID, created.ID, ShipRequest{
		UserID: 9,
		Lines:  []ShipLine{{DetailID: detailID, Quantity: d("30")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, first.Status)
	require.True(t, first.Details[0].ShippedQty.Equal(d("30")))
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("70")))
	// the rest of the approval reservation stays in place
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("20")))

	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{
		UserID: 9,
		Lines:  []ShipLine{{DetailID: 999, Quantity: d("1")}},
	})
	require.ErrorIs(t, err, ErrUnknownDetail)

	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{
		UserID: 9,
		Lines:  []ShipLine{{DetailID: detailID, Quantity: d("0")}},
	})
	require.ErrorIs(t, err, ErrInvalidShippedQty)

	// overrunning the remaining requested quantity is rejected
	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{
		UserID: 9,
		Lines:  []ShipLine{{DetailID: detailID, Quantity: d("25")}},
	})
	require.ErrorIs(t, err, ErrShipExceedsRequested)

	// a ship without lines dispatches whatever is left
	second, err := svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.NoError(t, err)
	require.True(t, second.Details[0].ShippedQty.Equal(d("50")))
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("50")))
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
	require.Len(t, repo.state.shipments, 2)
	require.True(t, repo.state.shipments[0].Quantity.Equal(d("30")))
	require.True(t, repo.state.shipments[1].Quantity.Equal(d("20")))
	require.Len(t, notifier.shipped, 2)

	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.ErrorIs(t, err, ErrNothingToShip)

	received, err := svc.Receive(ctx, companyID, created.ID, ReceiveRequest{UserID: 11})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, received.Status)
	require.False(t, received.HasDifference)
	require.True(t, balance(repo, destID).CurrentStock.Equal(d("50")))
}

func TestShipChecksAvailableStock(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	first := requestTransfer(t, svc, "70")
	_, err := svc.Approve(ctx, companyID, first.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	second := requestTransfer(t, svc, "30")
	_, err = svc.Approve(ctx, companyID, second.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)

	// a sale posted elsewhere shrinks the physical stock under the reservations
	key := ledger.Key{CompanyID: companyID, LocationID: originID, ProductID: productID}
	bal := repo.state.balances[key]
	bal.CurrentStock = d("60")
	repo.state.balances[key] = bal

	// shipping must not consume stock the other transfer reserved, even
	// though current stock alone would cover the quantity
	_, err = svc.Ship(ctx, companyID, second.ID, ShipRequest{UserID: 9})
	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Requested.Equal(d("30")))
	require.True(t, insufficient.Available.LessThan(d("30")))

	// the failed ship rolls back completely
	current, err := svc.Get(ctx, companyID, second.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, current.Status)
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("100")))
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("60")))
}

func TestReceiveReleasesUnshippedRemainder(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "50")
	_, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{
		UserID: 9,
		Lines:  []ShipLine{{DetailID: created.Details[0].ID, Quantity: d("30")}},
	})
	require.NoError(t, err)
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("20")))

	received, err := svc.Receive(ctx, companyID, created.ID, ReceiveRequest{UserID: 11})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, received.Status)
	require.True(t, received.Details[0].ShippedQty.Equal(d("30")))
	require.True(t, received.Details[0].ReceivedQty.Equal(d("30")))
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
	require.True(t, balance(repo, destID).CurrentStock.Equal(d("30")))
}

func TestTransitionGuards(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "30")

	var state *InvalidStateError

	_, err := svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.ErrorAs(t, err, &state)
	require.Equal(t, "ship", state.Action)
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("100")))

	_, err = svc.Receive(ctx, companyID, created.ID, ReceiveRequest{UserID: 11})
	require.ErrorAs(t, err, &state)

	_, err = svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.ErrorAs(t, err, &state)
	// a rejected double approval must not double the reservation
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("30")))

	_, err = svc.Ship(ctx, companyID, created.ID, ShipRequest{UserID: 9})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.ErrorAs(t, err, &state)
	require.Equal(t, "cancel", state.Action)
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("70")))
}

func TestCancelReleasesReservation(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "40")
	_, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	require.NoError(t, err)
	require.True(t, balance(repo, originID).ReservedStock.Equal(d("40")))

	cancelled, err := svc.Cancel(ctx, companyID, created.ID, DecisionRequest{UserID: 8, Reason: "duplicate request"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
	require.True(t, balance(repo, originID).CurrentStock.Equal(d("100")))
}

func TestApproveFailsOnInsufficientStock(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "150")
	_, err := svc.Approve(ctx, companyID, created.ID, DecisionRequest{UserID: 8})
	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(d("100")))

	// the failed approval rolls back; the transfer stays pending
	current, err := svc.Get(ctx, companyID, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status)
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
}

func TestRejectKeepsStockUntouched(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	seedStock(repo, originID, "100", "10.00")

	created := requestTransfer(t, svc, "30")
	rejected, err := svc.Reject(ctx, companyID, created.ID, DecisionRequest{UserID: 8, Reason: "not needed"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "not needed", rejected.RejectReason)
	require.True(t, balance(repo, originID).ReservedStock.IsZero())
	require.Empty(t, repo.state.movements)
}

func TestRequestValidation(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Request(ctx, CreateRequest{
		CompanyID:             companyID,
		OriginLocationID:      originID,
		DestinationLocationID: originID,
		RequestedBy:           7,
		Lines:                 []RequestLine{{ProductID: productID, Quantity: d("1")}},
	})
	require.ErrorIs(t, err, ErrSameLocation)

	_, err = svc.Request(ctx, CreateRequest{
		CompanyID:             companyID,
		OriginLocationID:      originID,
		DestinationLocationID: destID,
		RequestedBy:           7,
		Lines:                 []RequestLine{{ProductID: productID, Quantity: d("0")}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Request(ctx, CreateRequest{
		CompanyID:             companyID,
		OriginLocationID:      originID,
		DestinationLocationID: destID,
		RequestedBy:           7,
		Lines:                 []RequestLine{{ProductID: 901, Quantity: d("1")}},
	})
	var notFound *movement.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Empty(t, repo.state.transfers)
}

func TestTransferNumbersAreSequential(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	seedStock(repo, originID, "100", "10.00")

	first := requestTransfer(t, svc, "1")
	second := requestTransfer(t, svc, "1")
	require.NotEqual(t, first.Number, second.Number)
	require.Regexp(t, `000001$`, first.Number)
	require.Regexp(t, `000002$`, second.Number)
}
