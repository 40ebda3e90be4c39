package model

import (
	"time"

	"razorpay-subscription-service/internal/domain"

	"github.com/google/uuid"
)

// User is a local account. CustomerID is the gateway-side customer handle;
// it stays nil until the user's first subscription and is created at most
// once per user.
type User struct {
	ID             string
	Username       string // unique
	Email          string
	CustomerID     *string // gateway customer id (cust_xxx), nil until first subscription
	SubscriptionID *string // current subscription, nil when none
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewUser(id, username, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) HasCustomer() bool { return u.CustomerID != nil && *u.CustomerID != "" }
