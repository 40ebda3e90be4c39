package adapter

import (
	"context"
	"encoding/json"
	"time"
)

// GatewayOrder is the provider-side payment intent created for a one-off
// payment, prior to completion.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// GatewayPlan is a recurring-billing template defined at the provider.
type GatewayPlan struct {
	ID       string
	Name     string
	Amount   int64 // minor units
	Currency string
	Period   string
	Interval int
}

// GatewaySubscription carries the parsed fields the engine needs plus the
// provider's raw document for pass-through responses.
type GatewaySubscription struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

// PaymentGateway is the port for the payment provider's REST API. All calls
// are synchronous, bounded by the adapter's HTTP timeout, and must complete
// before any local transaction is entered.
type PaymentGateway interface {
	Name() string

	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
	CreateCustomer(ctx context.Context, name, email string) (customerID string, err error)
	CreateSubscription(ctx context.Context, planID, customerID string, startAt time.Time, totalCount int) (*GatewaySubscription, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*GatewaySubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error

	CreatePlan(ctx context.Context, name, description string, amount int64, period string, interval int) (json.RawMessage, error)
	FetchPlan(ctx context.Context, planID string) (*GatewayPlan, error)
	ListPlans(ctx context.Context) (json.RawMessage, error)
}
