package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements the PaymentGateway port using direct HTTP calls
// against the Razorpay REST API with basic auth.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, baseURL string, timeout time.Duration) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, domain.ErrInvalidArgument
	}
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// razorpayError mirrors the provider's error envelope.
type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// do performs one API call and returns the raw response body. Non-2xx
// responses become *domain.UpstreamError carrying the provider's status and
// description verbatim.
func (g *RazorpayGateway) do(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request data: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rerr razorpayError
		msg := string(respBody)
		if json.Unmarshal(respBody, &rerr) == nil && rerr.Error.Description != "" {
			msg = rerr.Error.Description
		}
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*adapter.GatewayOrder, error) {
	raw, err := g.do(ctx, http.MethodPost, "/orders", map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}
	var order adapter.GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w, body: %s", err, string(raw))
	}
	return &order, nil
}

func (g *RazorpayGateway) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	// fail_existing=0 makes customer creation idempotent on the provider side:
	// an existing customer with the same contact is returned, not duplicated.
	raw, err := g.do(ctx, http.MethodPost, "/customers", map[string]interface{}{
		"name":          name,
		"email":         email,
		"fail_existing": "0",
	})
	if err != nil {
		return "", err
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &customer); err != nil {
		return "", fmt.Errorf("unmarshal customer: %w, body: %s", err, string(raw))
	}
	return customer.ID, nil
}

func (g *RazorpayGateway) CreateSubscription(ctx context.Context, planID, customerID string, startAt time.Time, totalCount int) (*adapter.GatewaySubscription, error) {
	raw, err := g.do(ctx, http.MethodPost, "/subscriptions", map[string]interface{}{
		"plan_id":         planID,
		"customer_id":     customerID,
		"total_count":     totalCount,
		"quantity":        1,
		"customer_notify": 1,
		"start_at":        startAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	return parseSubscription(raw)
}

func (g *RazorpayGateway) FetchSubscription(ctx context.Context, subscriptionID string) (*adapter.GatewaySubscription, error) {
	raw, err := g.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	return parseSubscription(raw)
}

func (g *RazorpayGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := g.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", map[string]interface{}{
		"cancel_at_cycle_end": 0,
	})
	return err
}

func (g *RazorpayGateway) CreatePlan(ctx context.Context, name, description string, amount int64, period string, interval int) (json.RawMessage, error) {
	return g.do(ctx, http.MethodPost, "/plans", map[string]interface{}{
		"period":   period,
		"interval": interval,
		"item": map[string]interface{}{
			"name":        name,
			"amount":      amount,
			"currency":    "INR",
			"description": description,
		},
	})
}

func (g *RazorpayGateway) FetchPlan(ctx context.Context, planID string) (*adapter.GatewayPlan, error) {
	raw, err := g.do(ctx, http.MethodGet, "/plans/"+planID, nil)
	if err != nil {
		return nil, err
	}
	var plan struct {
		ID       string `json:"id"`
		Period   string `json:"period"`
		Interval int    `json:"interval"`
		Item     struct {
			Name     string `json:"name"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"item"`
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w, body: %s", err, string(raw))
	}
	return &adapter.GatewayPlan{
		ID:       plan.ID,
		Name:     plan.Item.Name,
		Amount:   plan.Item.Amount,
		Currency: plan.Item.Currency,
		Period:   plan.Period,
		Interval: plan.Interval,
	}, nil
}

func (g *RazorpayGateway) ListPlans(ctx context.Context) (json.RawMessage, error) {
	return g.do(ctx, http.MethodGet, "/plans", nil)
}

func parseSubscription(raw json.RawMessage) (*adapter.GatewaySubscription, error) {
	var sub struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscription: %w, body: %s", err, string(raw))
	}
	return &adapter.GatewaySubscription{ID: sub.ID, Status: sub.Status, Raw: raw}, nil
}
