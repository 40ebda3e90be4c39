package model

import (
	"time"

	"razorpay-subscription-service/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusCreated       SubscriptionStatus = "created"
	SubscriptionStatusAuthenticated SubscriptionStatus = "authenticated"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusHalted        SubscriptionStatus = "halted"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
)

// subscriptionRank orders the lifecycle. The gateway does not guarantee
// ordered delivery, so active is reachable directly from created; the rank
// check only rejects backward moves.
var subscriptionRank = map[SubscriptionStatus]int{
	SubscriptionStatusCreated:       0,
	SubscriptionStatusAuthenticated: 1,
	SubscriptionStatusActive:        2,
	SubscriptionStatusHalted:        3,
	SubscriptionStatusExpired:       3,
}

func (s SubscriptionStatus) CanTransition(next SubscriptionStatus) bool {
	cur, ok := subscriptionRank[s]
	if !ok {
		return false
	}
	nxt, ok := subscriptionRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// Subscription is a user's recurring billing instance, keyed by the
// gateway-issued subscription id. Plan name/amount/currency are denormalized
// at creation time so the audit trail stays stable when plans change later.
type Subscription struct {
	ID           string // gateway subscription id (sub_xxx)
	UserID       string
	PlanID       string // gateway plan id (plan_xxx)
	PlanName     string
	PlanAmount   int64 // minor units, snapshot
	PlanCurrency string
	Status       SubscriptionStatus
	PaymentID    string // gateway payment id of the authorizing charge
	CreatedAt    time.Time
	ExpiresAt    *time.Time // nil until the gateway reports a charge cycle
}

// NewSubscription validates and constructs a created-state subscription.
func NewSubscription(id, userID, planID, planName, planCurrency string, planAmount int64) (*Subscription, error) {
	if id == "" || userID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:           id,
		UserID:       userID,
		PlanID:       planID,
		PlanName:     planName,
		PlanAmount:   planAmount,
		PlanCurrency: planCurrency,
		Status:       SubscriptionStatusCreated,
		CreatedAt:    time.Now(),
	}, nil
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }
