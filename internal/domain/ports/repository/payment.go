package repository

import (
	"context"
	"time"

	"razorpay-subscription-service/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row FOR UPDATE when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	// UpdateStatusIf transitions orderID to status only while the current
	// status is one of the allowed set; reports whether a row changed.
	UpdateStatusIf(ctx context.Context, tx Tx, orderID string, status model.PaymentStatus, paymentID string, allowed ...model.PaymentStatus) (bool, error)
	ListByStatusOlderThan(ctx context.Context, tx Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error)
}
