package movement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/costing"
	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/shared"
)

// ProductResolver looks up the slice of the product master the engine needs.
type ProductResolver interface {
	Resolve(ctx context.Context, companyID, productID int64) (ProductRef, error)
}

// UnitConverter normalises line quantities to the product's base unit.
type UnitConverter interface {
	ToBase(ctx context.Context, companyID int64, qty decimal.Decimal, fromUnitID, baseUnitID int64) (decimal.Decimal, error)
}

// Auditor records who posted what. Audit failures are logged, not propagated;
// an audit outage must not block stock operations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Engine posts movements. Each posting runs in one transaction that writes the
// header, its details, the balance updates and the kardex rows together.
type Engine struct {
	repo        RepositoryPort
	ledger      *ledger.Ledger
	recorder    *kardex.Recorder
	products    ProductResolver
	units       UnitConverter
	audit       Auditor
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewEngine constructs the Engine. audit and idempotency may be nil.
func NewEngine(
	repo RepositoryPort,
	ldg *ledger.Ledger,
	recorder *kardex.Recorder,
	products ProductResolver,
	units UnitConverter,
	audit Auditor,
	idempotency *shared.IdempotencyStore,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repo:        repo,
		ledger:      ldg,
		recorder:    recorder,
		products:    products,
		units:       units,
		audit:       audit,
		idempotency: idempotency,
		validate:    validator.New(),
		logger:      logger,
	}
}

// ProcessMovement validates the input and posts it atomically. When the input
// carries an idempotency key, a repeated key returns ErrIdempotencyConflict
// before any stock is touched.
func (e *Engine) ProcessMovement(ctx context.Context, input ProcessInput) (Movement, error) {
	if err := e.validate.Struct(input); err != nil {
		return Movement{}, fmt.Errorf("movement: invalid input: %w", err)
	}
	if input.IdempotencyKey != "" && e.idempotency != nil {
		if err := e.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "movement"); err != nil {
			return Movement{}, err
		}
	}

	var posted Movement
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		posted, err = e.Post(ctx, tx, input)
		return err
	})
	if err != nil {
		if input.IdempotencyKey != "" && e.idempotency != nil {
			if delErr := e.idempotency.Delete(ctx, input.IdempotencyKey); delErr != nil {
				e.logger.Error("failed to release idempotency key",
					slog.Any("error", delErr),
					slog.String("key", input.IdempotencyKey))
			}
		}
		return Movement{}, err
	}

	if e.audit != nil {
		auditErr := e.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.UserID,
			Action:   "movement.posted",
			Entity:   "movement",
			EntityID: strconv.FormatInt(posted.ID, 10),
			Meta: map[string]any{
				"type":        string(posted.Type),
				"reason":      string(posted.Reason),
				"company_id":  posted.CompanyID,
				"location_id": posted.LocationID,
				"total_cost":  posted.TotalCost.String(),
				"lines":       len(posted.Details),
			},
		})
		if auditErr != nil {
			e.logger.Error("failed to audit movement", slog.Any("error", auditErr), slog.Int64("movement_id", posted.ID))
		}
	}
	return posted, nil
}

// Post inserts and applies the movement inside the caller's transaction. The
// transfer workflow calls it directly so a shipment leg commits with the
// transfer's own state change.
func (e *Engine) Post(ctx context.Context, tx TxRepository, input ProcessInput) (Movement, error) {
	if len(input.Lines) == 0 {
		return Movement{}, ErrNoLines
	}
	switch input.Type {
	case TypeEntry, TypeExit, TypeAdjustment, TypeProduction:
	default:
		return Movement{}, ErrInvalidMovementType
	}
	if !ReasonValidFor(input.Type, input.Reason) {
		return Movement{}, ErrInvalidReason
	}

	now := time.Now().UTC()
	header := Movement{
		PublicID:              uuid.New(),
		CompanyID:             input.CompanyID,
		LocationID:            input.LocationID,
		CounterpartLocationID: input.CounterpartLocationID,
		Type:                  input.Type,
		Reason:                input.Reason,
		UserID:                input.UserID,
		Status:                StatusDraft,
		Notes:                 input.Notes,
		RefModule:             input.RefModule,
		RefID:                 input.RefID,
		PostedAt:              now,
		CreatedAt:             now,
	}
	movementID, err := tx.InsertMovement(ctx, header)
	if err != nil {
		return Movement{}, err
	}
	header.ID = movementID

	total := decimal.Zero
	for i, line := range input.Lines {
		detail, err := e.postLine(ctx, tx, header, input, line)
		if err != nil {
			return Movement{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		header.Details = append(header.Details, detail)
		total = total.Add(detail.TotalCost)
	}

	header.TotalCost = total
	header.Status = StatusClosed
	if err := tx.SetMovementTotals(ctx, movementID, total, StatusClosed); err != nil {
		return Movement{}, err
	}
	return header, nil
}

func (e *Engine) postLine(ctx context.Context, tx TxRepository, header Movement, input ProcessInput, line LineInput) (Detail, error) {
	product, err := e.products.Resolve(ctx, header.CompanyID, line.ProductID)
	if err != nil {
		return Detail{}, err
	}

	qty := line.Quantity
	if e.units != nil && line.UnitID != 0 {
		qty, err = e.units.ToBase(ctx, header.CompanyID, line.Quantity, line.UnitID, product.BaseUnitID)
		if err != nil {
			return Detail{}, err
		}
	}

	key := ledger.Key{CompanyID: header.CompanyID, LocationID: header.LocationID, ProductID: product.ID}

	var (
		change ledger.Change
		opType kardex.OperationType
		moved  decimal.Decimal
	)
	switch header.Type {
	case TypeEntry, TypeProduction:
		change, err = e.ledger.Increment(ctx, tx, key, qty, line.UnitCost)
		opType = kardex.OperationEntry
		moved = qty
	case TypeExit:
		change, err = e.ledger.Decrement(ctx, tx, key, qty)
		opType = kardex.OperationExit
		moved = qty
	case TypeAdjustment:
		change, moved, err = e.adjust(ctx, tx, key, line)
		opType = kardex.OperationAdjustment
	default:
		return Detail{}, ErrInvalidMovementType
	}
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{
		MovementID:    header.ID,
		ProductID:     product.ID,
		UnitID:        line.UnitID,
		Quantity:      moved,
		UnitCost:      change.UnitCost,
		TotalCost:     costing.ExtendedCost(moved, change.UnitCost),
		PreviousStock: change.Previous,
		NewStock:      change.New,
		BatchNumber:   line.BatchNumber,
		ExpiryDate:    line.ExpiryDate,
	}
	detailID, err := tx.InsertMovementDetail(ctx, detail)
	if err != nil {
		return Detail{}, err
	}
	detail.ID = detailID

	if moved.IsZero() {
		// a zero-delta adjustment leaves no trace in the history
		return detail, nil
	}

	_, err = e.recorder.Record(ctx, tx, kardex.Entry{
		CompanyID:          header.CompanyID,
		LocationID:         header.LocationID,
		ProductID:          product.ID,
		MovementID:         header.ID,
		MovementDetailID:   detailID,
		OperationType:      opType,
		OperationReason:    string(header.Reason),
		Quantity:           moved,
		UnitCost:           change.UnitCost,
		TotalCost:          detail.TotalCost,
		PreviousStock:      change.Previous,
		NewStock:           change.New,
		RunningAverageCost: change.NewAvgCost,
		DocNumber:          input.DocNumber,
		BatchNumber:        line.BatchNumber,
		ExpiryDate:         line.ExpiryDate,
		UserID:             header.UserID,
		OperationDate:      header.PostedAt,
	})
	if err != nil {
		return Detail{}, err
	}
	return detail, nil
}

// adjust sets the balance to the line's absolute target stock. The delta is
// derived under the row lock, so the correction applies to the stock as it is,
// not as the caller last saw it.
func (e *Engine) adjust(ctx context.Context, tx TxRepository, key ledger.Key, line LineInput) (ledger.Change, decimal.Decimal, error) {
	if line.TargetStock == nil {
		return ledger.Change{}, decimal.Zero, errors.New("movement: adjustment line requires target_stock")
	}
	if line.TargetStock.IsNegative() {
		return ledger.Change{}, decimal.Zero, errors.New("movement: target_stock must be >= 0")
	}

	bal, err := tx.GetBalanceForUpdate(ctx, key)
	if err != nil && !errors.Is(err, ledger.ErrBalanceNotFound) {
		return ledger.Change{}, decimal.Zero, err
	}
	delta := line.TargetStock.Sub(bal.CurrentStock)

	switch {
	case delta.IsPositive():
		cost := line.UnitCost
		if cost.IsZero() {
			cost = bal.AverageCost
		}
		change, err := e.ledger.Increment(ctx, tx, key, delta, cost)
		return change, delta, err
	case delta.IsNegative():
		change, err := e.ledger.Decrement(ctx, tx, key, delta.Neg())
		return change, delta.Neg(), err
	default:
		return ledger.Change{
			Previous:        bal.CurrentStock,
			New:             bal.CurrentStock,
			PreviousAvgCost: bal.AverageCost,
			NewAvgCost:      bal.AverageCost,
			UnitCost:        bal.AverageCost,
		}, decimal.Zero, nil
	}
}
