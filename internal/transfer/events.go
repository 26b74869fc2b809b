package transfer

import (
	"context"
	"time"
)

// ShippedEvent is emitted after a shipment leg commits.
type ShippedEvent struct {
	TransferID            int64
	CompanyID             int64
	Number                string
	OriginLocationID      int64
	DestinationLocationID int64
	MovementID            int64
	ShippedBy             int64
	ShippedAt             time.Time
}

// CompletedEvent is emitted after a receipt leg commits.
type CompletedEvent struct {
	TransferID    int64
	CompanyID     int64
	Number        string
	MovementID    int64
	ReceivedBy    int64
	ReceivedAt    time.Time
	HasDifference bool
}

// DiscrepancyEvent is emitted when a receipt records a nonzero difference on
// any line.
type DiscrepancyEvent struct {
	TransferID   int64
	CompanyID    int64
	Number       string
	DamageReport string
	Lines        []Detail
}

// Notifier receives workflow events after their transaction commits. Delivery
// failures are logged by the service and never propagated; the state change
// already happened.
type Notifier interface {
	TransferShipped(ctx context.Context, ev ShippedEvent) error
	TransferCompleted(ctx context.Context, ev CompletedEvent) error
	DiscrepancyFound(ctx context.Context, ev DiscrepancyEvent) error
}
