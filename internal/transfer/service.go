package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/costing"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/movement"
	"github.com/kardexlabs/kardex/internal/shared"
)

// Service drives the transfer workflow. Every transition re-reads the
// transfer under a row lock inside its transaction, so concurrent decisions
// on the same transfer serialise and the status guards run against current
// state.
type Service struct {
	repo     RepositoryPort
	ledger   *ledger.Ledger
	engine   *movement.Engine
	products movement.ProductResolver
	units    movement.UnitConverter
	notifier Notifier
	audit    movement.Auditor
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs the workflow service. notifier and audit may be nil.
func NewService(
	repo RepositoryPort,
	ldg *ledger.Ledger,
	engine *movement.Engine,
	products movement.ProductResolver,
	units movement.UnitConverter,
	notifier Notifier,
	audit movement.Auditor,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   ldg,
		engine:   engine,
		products: products,
		units:    units,
		notifier: notifier,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

// Request opens a transfer in pending state. Quantities are normalised to the
// product's base unit and the unit cost is snapshotted from the origin
// balance so the request already shows the value that will move.
func (s *Service) Request(ctx context.Context, input CreateRequest) (Transfer, error) {
	if err := s.validate.Struct(input); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}
	if input.OriginLocationID == input.DestinationLocationID {
		return Transfer{}, ErrSameLocation
	}
	for _, line := range input.Lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return Transfer{}, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	var created Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextTransferNumber(ctx, input.CompanyID, now.Year())
		if err != nil {
			return err
		}
		created = Transfer{
			CompanyID:             input.CompanyID,
			Number:                number,
			OriginLocationID:      input.OriginLocationID,
			DestinationLocationID: input.DestinationLocationID,
			Status:                StatusPending,
			RequestedBy:           input.RequestedBy,
			Notes:                 input.Notes,
			RequestedAt:           now,
			UpdatedAt:             now,
		}
		created.ID, err = tx.InsertTransfer(ctx, created)
		if err != nil {
			return err
		}

		for _, line := range input.Lines {
			product, err := s.products.Resolve(ctx, input.CompanyID, line.ProductID)
			if err != nil {
				return err
			}
			qty := line.Quantity
			if s.units != nil && line.UnitID != 0 {
				qty, err = s.units.ToBase(ctx, input.CompanyID, line.Quantity, line.UnitID, product.BaseUnitID)
				if err != nil {
					return err
				}
			}

			originKey := ledger.Key{CompanyID: input.CompanyID, LocationID: input.OriginLocationID, ProductID: product.ID}
			bal, err := tx.GetBalanceForUpdate(ctx, originKey)
			if err != nil && !errors.Is(err, ledger.ErrBalanceNotFound) {
				return err
			}

			detail := Detail{
				TransferID:   created.ID,
				ProductID:    product.ID,
				UnitID:       product.BaseUnitID,
				RequestedQty: qty,
				UnitCost:     bal.AverageCost,
				BatchNumber:  line.BatchNumber,
				ExpiryDate:   line.ExpiryDate,
			}
			detail.ID, err = tx.InsertTransferDetail(ctx, detail)
			if err != nil {
				return err
			}
			created.Details = append(created.Details, detail)
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	s.recordAudit(ctx, input.RequestedBy, "transfer.requested", created)
	return created, nil
}

// Approve moves a pending transfer to approved and reserves the requested
// stock at the origin. A reservation failure rejects the approval and leaves
// the transfer pending.
func (s *Service) Approve(ctx context.Context, companyID, transferID int64, req DecisionRequest) (Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}

	var updated Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, companyID, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanApprove() {
			return &InvalidStateError{Action: "approve", Required: string(StatusPending), Actual: t.Status}
		}

		for _, d := range t.Details {
			key := ledger.Key{CompanyID: t.CompanyID, LocationID: t.OriginLocationID, ProductID: d.ProductID}
			if err := s.ledger.Reserve(ctx, tx, key, d.RequestedQty); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		t.Status = StatusApproved
		t.ApprovedBy = req.UserID
		t.ApprovedAt = &now
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	s.recordAudit(ctx, req.UserID, "transfer.approved", updated)
	return updated, nil
}

// Reject closes a pending transfer without touching stock.
func (s *Service) Reject(ctx context.Context, companyID, transferID int64, req DecisionRequest) (Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}

	var updated Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, companyID, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanReject() {
			return &InvalidStateError{Action: "reject", Required: string(StatusPending), Actual: t.Status}
		}
		t.Status = StatusRejected
		t.RejectReason = req.Reason
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	s.recordAudit(ctx, req.UserID, "transfer.rejected", updated)
	return updated, nil
}

// Ship dispatches stock against an approved or in-transit transfer. Without
// request lines every detail ships its remaining requested quantity; with
// lines a single detail can be fulfilled across several shipments. Each call
// releases the matching share of the approval reservation, checks the
// quantity against available stock, posts one exit movement at the origin and
// records a shipment row per line, all in one transaction.
func (s *Service) Ship(ctx context.Context, companyID, transferID int64, req ShipRequest) (Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}

	var (
		updated Transfer
		event   ShippedEvent
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, companyID, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanShip() {
			return &InvalidStateError{
				Action:   "ship",
				Required: string(StatusApproved) + " or " + string(StatusInTransit),
				Actual:   t.Status,
			}
		}

		quantities, err := shipQuantities(t.Details, req.Lines)
		if err != nil {
			return err
		}

		var (
			lines   []movement.LineInput
			shipped []int
		)
		for i, d := range t.Details {
			qty, ok := quantities[d.ID]
			if !ok {
				continue
			}
			key := ledger.Key{CompanyID: t.CompanyID, LocationID: t.OriginLocationID, ProductID: d.ProductID}
			if err := s.ledger.Release(ctx, tx, key, qty); err != nil {
				return err
			}
			// sufficiency runs against available stock, not current stock;
			// quantities reserved by other documents stay untouchable
			bal, err := tx.GetBalanceForUpdate(ctx, key)
			if err != nil && !errors.Is(err, ledger.ErrBalanceNotFound) {
				return err
			}
			if bal.Available().LessThan(qty) {
				return &ledger.InsufficientStockError{
					ProductID:  d.ProductID,
					LocationID: t.OriginLocationID,
					Available:  bal.Available(),
					Requested:  qty,
				}
			}
			lines = append(lines, movement.LineInput{
				ProductID:   d.ProductID,
				Quantity:    qty,
				BatchNumber: d.BatchNumber,
				ExpiryDate:  d.ExpiryDate,
			})
			shipped = append(shipped, i)
		}

		posted, err := s.engine.Post(ctx, tx, movement.ProcessInput{
			CompanyID:             t.CompanyID,
			LocationID:            t.OriginLocationID,
			CounterpartLocationID: t.DestinationLocationID,
			Type:                  movement.TypeExit,
			Reason:                movement.ReasonTransferOut,
			UserID:                req.UserID,
			Notes:                 req.Notes,
			RefModule:             "transfer",
			RefID:                 strconv.FormatInt(t.ID, 10),
			DocNumber:             t.Number,
			Lines:                 lines,
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for j, i := range shipped {
			d := &t.Details[i]
			qty := quantities[d.ID]
			cost := posted.Details[j].UnitCost
			// blend the cost when a line ships in several batches
			d.UnitCost = costing.WeightedAverage(d.ShippedQty, d.UnitCost, qty, cost)
			d.ShippedQty = d.ShippedQty.Add(qty)
			if err := tx.UpdateTransferDetail(ctx, *d); err != nil {
				return err
			}
			if _, err := tx.InsertShipment(ctx, Shipment{
				TransferID:  t.ID,
				DetailID:    d.ID,
				ProductID:   d.ProductID,
				MovementID:  posted.ID,
				Quantity:    qty,
				UnitCost:    cost,
				BatchNumber: d.BatchNumber,
				ExpiryDate:  d.ExpiryDate,
				UserID:      req.UserID,
				Notes:       req.Notes,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
		}

		t.Status = StatusInTransit
		t.ShippedBy = req.UserID
		t.ShippedAt = &now
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return err
		}

		updated = t
		event = ShippedEvent{
			TransferID:            t.ID,
			CompanyID:             t.CompanyID,
			Number:                t.Number,
			OriginLocationID:      t.OriginLocationID,
			DestinationLocationID: t.DestinationLocationID,
			MovementID:            posted.ID,
			ShippedBy:             req.UserID,
			ShippedAt:             now,
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.TransferShipped(ctx, event); err != nil {
			s.logger.Error("failed to notify transfer shipped", slog.Any("error", err), slog.Int64("transfer_id", updated.ID))
		}
	}
	s.recordAudit(ctx, req.UserID, "transfer.shipped", updated)
	return updated, nil
}

// shipQuantities resolves how much of each detail one Ship call dispatches.
// Without explicit lines every detail ships its remaining requested quantity;
// with lines cumulative shipments may never overrun a detail's request.
func shipQuantities(details []Detail, lines []ShipLine) (map[int64]decimal.Decimal, error) {
	remaining := make(map[int64]decimal.Decimal, len(details))
	for _, d := range details {
		remaining[d.ID] = d.RequestedQty.Sub(d.ShippedQty)
	}

	quantities := make(map[int64]decimal.Decimal, len(details))
	if len(lines) == 0 {
		for id, rest := range remaining {
			if rest.IsPositive() {
				quantities[id] = rest
			}
		}
	}
	for _, line := range lines {
		rest, ok := remaining[line.DetailID]
		if !ok {
			return nil, ErrUnknownDetail
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidShippedQty
		}
		total := quantities[line.DetailID].Add(line.Quantity)
		if total.GreaterThan(rest) {
			return nil, ErrShipExceedsRequested
		}
		quantities[line.DetailID] = total
	}
	if len(quantities) == 0 {
		return nil, ErrNothingToShip
	}
	return quantities, nil
}

// Receive completes an in-transit transfer. Each detail enters the
// destination with its received quantity at the blended shipped unit cost;
// the difference against the shipped quantity is recorded signed per line, so
// both short and over receipts stay visible for follow-up. Reservations
// covering never-shipped remainders return to availability at the origin.
func (s *Service) Receive(ctx context.Context, companyID, transferID int64, req ReceiveRequest) (Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}

	var (
		updated   Transfer
		completed CompletedEvent
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, companyID, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanReceive() {
			return &InvalidStateError{Action: "receive", Required: string(StatusInTransit), Actual: t.Status}
		}

		overrides := make(map[int64]ReceiveLine, len(req.Lines))
		known := make(map[int64]bool, len(t.Details))
		for _, d := range t.Details {
			known[d.ID] = true
		}
		for _, line := range req.Lines {
			if !known[line.DetailID] {
				return ErrUnknownDetail
			}
			if line.ReceivedQty.IsNegative() {
				return ErrInvalidReceivedQty
			}
			overrides[line.DetailID] = line
		}

		hasDifference := false
		lines := make([]movement.LineInput, 0, len(t.Details))
		for i := range t.Details {
			d := &t.Details[i]
			received := d.ShippedQty
			if line, ok := overrides[d.ID]; ok {
				received = line.ReceivedQty
				d.DamageReport = line.DamageReport
			}
			d.ReceivedQty = received
			d.Difference = d.ShippedQty.Sub(received)
			d.HasDifference = !d.Difference.IsZero()
			if d.HasDifference {
				hasDifference = true
			}

			// the unshipped remainder of the approval reservation comes back
			remainder := d.RequestedQty.Sub(d.ShippedQty)
			if remainder.IsPositive() {
				key := ledger.Key{CompanyID: t.CompanyID, LocationID: t.OriginLocationID, ProductID: d.ProductID}
				if err := s.ledger.Release(ctx, tx, key, remainder); err != nil {
					return err
				}
			}

			if received.IsPositive() {
				lines = append(lines, movement.LineInput{
					ProductID:   d.ProductID,
					Quantity:    received,
					UnitCost:    d.UnitCost,
					BatchNumber: d.BatchNumber,
					ExpiryDate:  d.ExpiryDate,
				})
			}
		}

		var movementID int64
		if len(lines) > 0 {
			posted, err := s.engine.Post(ctx, tx, movement.ProcessInput{
				CompanyID:             t.CompanyID,
				LocationID:            t.DestinationLocationID,
				CounterpartLocationID: t.OriginLocationID,
				Type:                  movement.TypeEntry,
				Reason:                movement.ReasonTransferIn,
				UserID:                req.UserID,
				RefModule:             "transfer",
				RefID:                 strconv.FormatInt(t.ID, 10),
				DocNumber:             t.Number,
				Lines:                 lines,
			})
			if err != nil {
				return err
			}
			movementID = posted.ID
		}

		for i := range t.Details {
			if err := tx.UpdateTransferDetail(ctx, t.Details[i]); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		t.Status = StatusCompleted
		t.ReceivedBy = req.UserID
		t.ReceivedAt = &now
		t.HasDifference = hasDifference
		t.DamageReport = req.DamageReport
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return err
		}

		updated = t
		completed = CompletedEvent{
			TransferID:    t.ID,
			CompanyID:     t.CompanyID,
			Number:        t.Number,
			MovementID:    movementID,
			ReceivedBy:    req.UserID,
			ReceivedAt:    now,
			HasDifference: hasDifference,
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.TransferCompleted(ctx, completed); err != nil {
			s.logger.Error("failed to notify transfer completed", slog.Any("error", err), slog.Int64("transfer_id", updated.ID))
		}
		if updated.HasDifference {
			var diffLines []Detail
			for _, d := range updated.Details {
				if !d.Difference.IsZero() {
					diffLines = append(diffLines, d)
				}
			}
			ev := DiscrepancyEvent{
				TransferID:   updated.ID,
				CompanyID:    updated.CompanyID,
				Number:       updated.Number,
				DamageReport: updated.DamageReport,
				Lines:        diffLines,
			}
			if err := s.notifier.DiscrepancyFound(ctx, ev); err != nil {
				s.logger.Error("failed to notify transfer discrepancy", slog.Any("error", err), slog.Int64("transfer_id", updated.ID))
			}
		}
	}
	s.recordAudit(ctx, req.UserID, "transfer.completed", updated)
	return updated, nil
}

// Cancel withdraws a transfer that has not shipped. Cancelling an approved
// transfer releases its reservations; once stock is in transit the transfer
// can only complete.
func (s *Service) Cancel(ctx context.Context, companyID, transferID int64, req DecisionRequest) (Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transfer{}, fmt.Errorf("transfer: invalid input: %w", err)
	}

	var updated Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, companyID, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanCancel() {
			return &InvalidStateError{
				Action:   "cancel",
				Required: string(StatusPending) + " or " + string(StatusApproved),
				Actual:   t.Status,
			}
		}

		if t.Status == StatusApproved {
			for _, d := range t.Details {
				key := ledger.Key{CompanyID: t.CompanyID, LocationID: t.OriginLocationID, ProductID: d.ProductID}
				if err := s.ledger.Release(ctx, tx, key, d.RequestedQty); err != nil {
					return err
				}
			}
		}

		t.Status = StatusCancelled
		t.RejectReason = req.Reason
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	s.recordAudit(ctx, req.UserID, "transfer.cancelled", updated)
	return updated, nil
}

// Get loads a transfer with its details.
func (s *Service) Get(ctx context.Context, companyID, transferID int64) (Transfer, error) {
	return s.repo.Get(ctx, companyID, transferID)
}

// List returns transfers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transfer, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, t Transfer) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "transfer",
		EntityID: strconv.FormatInt(t.ID, 10),
		Meta: map[string]any{
			"number":      t.Number,
			"company_id":  t.CompanyID,
			"origin":      t.OriginLocationID,
			"destination": t.DestinationLocationID,
			"status":      string(t.Status),
		},
	})
	if err != nil {
		s.logger.Error("failed to audit transfer", slog.Any("error", err), slog.Int64("transfer_id", t.ID), slog.String("action", action))
	}
}
