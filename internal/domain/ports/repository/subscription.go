package repository

import (
	"context"
	"time"

	"razorpay-subscription-service/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindByID locks the row FOR UPDATE when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// UpdateStatus sets status, expiry and the authorizing payment id.
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus, expiresAt *time.Time, paymentID string) error
}
