package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/infra/logging"
)

// webhookSignatureHeader carries the raw-body HMAC digest; webhookEventHeader
// the provider's delivery id used for dedup.
const (
	webhookSignatureHeader = "X-Razorpay-Signature"
	webhookEventHeader     = "X-Razorpay-Event-Id"
)

// maxBodyBytes bounds inbound webhook payloads; oversize bodies are rejected
// outright rather than truncated, which would break signature verification.
const maxBodyBytes = 1 << 20

type createOrderRequest struct {
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	p, err := s.paymentUC.CreateOrder(r.Context(), req.UserID, req.Amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": p.ID,
		"amount":   p.Amount,
		"currency": p.Currency,
		"status":   p.Status,
	})
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	ctx := logging.WithOrderID(r.Context(), req.OrderID)
	p, err := s.paymentUC.ConfirmClientPayment(ctx, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     p.Status,
		"payment_id": p.PaymentID,
		"amount":     p.Amount,
		"currency":   p.Currency,
	})
}

func (s *Server) handlePaymentFailure(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	p, err := s.paymentUC.MarkPaymentFailed(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": p.ID,
		"status":   p.Status,
		"amount":   p.Amount,
		"currency": p.Currency,
	})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	raw, err := s.planUC.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

type createPlanRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Period      string `json:"period"`
	Interval    int    `json:"interval"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	// gateway expects minor currency units
	raw, err := s.planUC.Create(r.Context(), req.Name, req.Description, req.Amount*100, req.Period, req.Interval)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "plan_id")
	username := chi.URLParam(r, "username")
	sub, err := s.subUC.CreateForUser(r.Context(), planID, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, sub.Raw)
}

func (s *Server) handleFetchSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.Fetch(r.Context(), chi.URLParam(r, "subscription_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, sub.Raw)
}

func (s *Server) handleActivePlan(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.ActivePlanForCustomer(r.Context(), chi.URLParam(r, "customer_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"subscription_id": sub.ID,
		"plan_id":         sub.PlanID,
		"plan_name":       sub.PlanName,
		"status":          sub.Status,
		"amount":          sub.PlanAmount,
		"currency":        sub.PlanCurrency,
	}
	if sub.ExpiresAt != nil {
		resp["end_date"] = sub.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.subUC.Cancel(r.Context(), chi.URLParam(r, "subscription_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"status": "error", "detail": "payload too large"})
			return
		}
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	sig := r.Header.Get(webhookSignatureHeader)
	eventID := r.Header.Get(webhookEventHeader)

	ctx := r.Context()
	if eventID != "" {
		ctx = logging.WithEventID(ctx, eventID)
	}
	if err := s.webhookUC.HandleEvent(ctx, body, sig, eventID); err != nil {
		if errors.Is(err, domain.ErrSignatureMismatch) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "detail": "invalid signature"})
			return
		}
		writeError(w, err)
		return
	}
	// verified events always acknowledge, handled or not, to stop retries
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// writeError maps domain errors onto HTTP status codes. Upstream failures
// propagate the gateway's status and message verbatim.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSignatureMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "invalid signature"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "detail": "not found"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "invalid request"})
	default:
		if ue, ok := domain.AsUpstream(err); ok && ue.StatusCode >= 400 {
			writeJSON(w, ue.StatusCode, map[string]string{"status": "error", "detail": ue.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "detail": "internal error"})
	}
}
