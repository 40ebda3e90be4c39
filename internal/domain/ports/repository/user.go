package repository

import (
	"context"

	"razorpay-subscription-service/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	FindByCustomerID(ctx context.Context, tx Tx, customerID string) (*model.User, error)
	// SetCustomerIDIfEmpty writes customerID only while the column is NULL,
	// reporting whether the row changed. Together with the per-user lock this
	// guarantees at most one gateway customer per user.
	SetCustomerIDIfEmpty(ctx context.Context, tx Tx, userID, customerID string) (bool, error)
	LinkSubscription(ctx context.Context, tx Tx, userID, subscriptionID string) error
}
