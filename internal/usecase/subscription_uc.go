// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/adapter"
	"razorpay-subscription-service/internal/domain/ports/repository"
	"razorpay-subscription-service/internal/infra/redis"
)

// Cycles to bill before the subscription completes, per the gateway contract.
const subscriptionCycles = 7

// Subscriptions start one hour in the future so the first charge never races
// the authorization flow.
const startOffset = time.Hour

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// CreateForUser provisions a gateway subscription for the named user,
	// creating the gateway customer lazily (at most once per user).
	CreateForUser(ctx context.Context, planID, username string) (*adapter.GatewaySubscription, error)
	// Fetch returns the provider's view of a subscription.
	Fetch(ctx context.Context, subscriptionID string) (*adapter.GatewaySubscription, error)
	// Cancel cancels at the gateway and records the halt locally.
	Cancel(ctx context.Context, subscriptionID string) error
	// ActivePlanForCustomer resolves the subscription currently active for a
	// gateway customer, or ErrNotFound when none is active.
	ActivePlanForCustomer(ctx context.Context, customerID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	users   repository.UserRepository
	subs    repository.SubscriptionRepository
	gateway adapter.PaymentGateway
	tm      repository.TransactionManager
	locker  redis.Locker
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(users repository.UserRepository, subs repository.SubscriptionRepository, gateway adapter.PaymentGateway, tm repository.TransactionManager, locker redis.Locker, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{users: users, subs: subs, gateway: gateway, tm: tm, locker: locker, log: logger}
}

func (u *subscriptionUC) CreateForUser(ctx context.Context, planID, username string) (*adapter.GatewaySubscription, error) {
	if planID == "" || username == "" {
		return nil, domain.ErrInvalidArgument
	}

	plan, err := u.gateway.FetchPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	user, err := u.users.FindByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}

	customerID, err := u.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	gwSub, err := u.gateway.CreateSubscription(ctx, planID, customerID, time.Now().Add(startOffset), subscriptionCycles)
	if err != nil {
		return nil, err
	}

	// Snapshot the plan onto the record so the audit trail survives later
	// plan edits at the gateway.
	sub, err := model.NewSubscription(gwSub.ID, user.ID, plan.ID, plan.Name, plan.Currency, plan.Amount)
	if err != nil {
		return nil, err
	}
	if err := u.subs.Save(ctx, nil, sub); err != nil {
		return nil, err
	}

	u.log.Info().Str("subscription_id", sub.ID).Str("plan_id", planID).Str("username", username).Msg("subscription created")
	return gwSub, nil
}

// ensureCustomer returns the user's gateway customer id, creating it if this
// is the user's first subscription. The per-user lock plus the conditional
// column write guarantee at most one gateway customer per user even under
// concurrent first-time requests.
func (u *subscriptionUC) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.HasCustomer() {
		return *user.CustomerID, nil
	}

	token, err := u.locker.TryLock(ctx, "lock:customer:"+user.ID, 15*time.Second)
	if err != nil {
		return "", err
	}
	defer func() { _ = u.locker.Unlock(ctx, "lock:customer:"+user.ID, token) }()

	// re-read under the lock; a concurrent request may have won
	fresh, err := u.users.FindByID(ctx, nil, user.ID)
	if err != nil {
		return "", err
	}
	if fresh.HasCustomer() {
		user.CustomerID = fresh.CustomerID
		return *fresh.CustomerID, nil
	}

	customerID, err := u.gateway.CreateCustomer(ctx, user.Username, user.Email)
	if err != nil {
		return "", err
	}
	set, err := u.users.SetCustomerIDIfEmpty(ctx, nil, user.ID, customerID)
	if err != nil {
		return "", err
	}
	if !set {
		// lost a race despite the lock (e.g. lock expiry); keep the winner
		fresh, err := u.users.FindByID(ctx, nil, user.ID)
		if err != nil {
			return "", err
		}
		if fresh.HasCustomer() {
			user.CustomerID = fresh.CustomerID
			return *fresh.CustomerID, nil
		}
		return "", domain.ErrOperationFailed
	}
	user.CustomerID = &customerID
	return customerID, nil
}

func (u *subscriptionUC) ActivePlanForCustomer(ctx context.Context, customerID string) (*model.Subscription, error) {
	if customerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	user, err := u.users.FindByCustomerID(ctx, nil, customerID)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionID == nil || *user.SubscriptionID == "" {
		return nil, domain.ErrNotFound
	}
	sub, err := u.subs.FindByID(ctx, nil, *user.SubscriptionID)
	if err != nil {
		return nil, err
	}
	// a linked but halted/expired subscription is not an active plan
	if sub.Status != model.SubscriptionStatusActive {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (u *subscriptionUC) Fetch(ctx context.Context, subscriptionID string) (*adapter.GatewaySubscription, error) {
	if subscriptionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.gateway.FetchSubscription(ctx, subscriptionID)
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.gateway.CancelSubscription(ctx, subscriptionID); err != nil {
		return err
	}
	// Record the halt locally; the gateway's subscription.halted webhook will
	// land on an already-halted row and no-op.
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if !sub.Status.CanTransition(model.SubscriptionStatusHalted) {
			return nil
		}
		return u.subs.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusHalted, nil, "")
	})
	if errors.Is(err, domain.ErrNotFound) {
		// cancelled at the gateway but unknown locally; nothing to record
		u.log.Warn().Str("subscription_id", subscriptionID).Msg("cancelled subscription not found locally")
		return nil
	}
	return err
}
