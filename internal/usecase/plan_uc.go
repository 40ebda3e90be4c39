// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/ports/adapter"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase is a thin pass-through to the gateway's plan API; plans live at
// the provider and are not persisted locally.
type PlanUseCase interface {
	List(ctx context.Context) (json.RawMessage, error)
	Create(ctx context.Context, name, description string, amount int64, period string, interval int) (json.RawMessage, error)
}

type planUC struct {
	gateway adapter.PaymentGateway
	log     *zerolog.Logger
}

func NewPlanUseCase(gateway adapter.PaymentGateway, logger *zerolog.Logger) *planUC {
	return &planUC{gateway: gateway, log: logger}
}

func (u *planUC) List(ctx context.Context) (json.RawMessage, error) {
	return u.gateway.ListPlans(ctx)
}

func (u *planUC) Create(ctx context.Context, name, description string, amount int64, period string, interval int) (json.RawMessage, error) {
	if name == "" || amount <= 0 || period == "" || interval <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	raw, err := u.gateway.CreatePlan(ctx, name, description, amount, period, interval)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("name", name).Int64("amount", amount).Str("period", period).Msg("plan created")
	return raw, nil
}
