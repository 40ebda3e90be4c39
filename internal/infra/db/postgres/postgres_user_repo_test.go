//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
)

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewUserRepo(testPool)

	saveUser := func(t *testing.T, username string) *model.User {
		t.Helper()
		u, err := model.NewUser("", username, username+"@example.com")
		if err != nil {
			t.Fatalf("NewUser: %v", err)
		}
		if err := repo.Save(ctx, nil, u); err != nil {
			t.Fatalf("failed to save user: %v", err)
		}
		return u
	}

	t.Run("should save and find a user", func(t *testing.T) {
		cleanup(t)
		u := saveUser(t, "alice")

		byID, err := repo.FindByID(ctx, nil, u.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if byID.Username != "alice" || byID.CustomerID != nil {
			t.Fatalf("unexpected user: %+v", byID)
		}

		byName, err := repo.FindByUsername(ctx, nil, "alice")
		if err != nil {
			t.Fatalf("FindByUsername failed: %v", err)
		}
		if byName.ID != u.ID {
			t.Fatal("FindByUsername returned a different user")
		}
	})

	t.Run("customer id is written at most once", func(t *testing.T) {
		cleanup(t)
		u := saveUser(t, "alice")

		set, err := repo.SetCustomerIDIfEmpty(ctx, nil, u.ID, "cust_1")
		if err != nil {
			t.Fatalf("SetCustomerIDIfEmpty failed: %v", err)
		}
		if !set {
			t.Fatal("first write must apply")
		}

		set, err = repo.SetCustomerIDIfEmpty(ctx, nil, u.ID, "cust_2")
		if err != nil {
			t.Fatalf("second SetCustomerIDIfEmpty failed: %v", err)
		}
		if set {
			t.Fatal("second write must be refused")
		}

		found, _ := repo.FindByCustomerID(ctx, nil, "cust_1")
		if found == nil || found.ID != u.ID {
			t.Fatal("FindByCustomerID did not return the owner")
		}
		if _, err := repo.FindByCustomerID(ctx, nil, "cust_2"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("losing customer id must not exist, got %v", err)
		}
	})

	t.Run("link subscription", func(t *testing.T) {
		cleanup(t)
		u := saveUser(t, "alice")

		if err := repo.LinkSubscription(ctx, nil, u.ID, "sub_1"); err != nil {
			t.Fatalf("LinkSubscription failed: %v", err)
		}
		found, _ := repo.FindByID(ctx, nil, u.ID)
		if found.SubscriptionID == nil || *found.SubscriptionID != "sub_1" {
			t.Fatalf("subscription not linked: %+v", found)
		}

		if err := repo.LinkSubscription(ctx, nil, "user-absent", "sub_1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestWebhookEventRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewWebhookEventRepo(testPool)
	cleanup(t)

	ev := &model.WebhookEvent{
		EventID:    "evt_1",
		Kind:       model.EventPaymentAuthorized,
		RawKind:    "payment.authorized",
		ReceivedAt: time.Now(),
	}

	fresh, err := repo.InsertIfNew(ctx, nil, ev)
	if err != nil {
		t.Fatalf("InsertIfNew failed: %v", err)
	}
	if !fresh {
		t.Fatal("first delivery must be fresh")
	}

	fresh, err = repo.InsertIfNew(ctx, nil, ev)
	if err != nil {
		t.Fatalf("second InsertIfNew failed: %v", err)
	}
	if fresh {
		t.Fatal("redelivery must not be fresh")
	}
}
