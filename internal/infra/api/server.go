package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/infra/logging"
	"razorpay-subscription-service/internal/usecase"
)

// Server maps the HTTP surface onto the use cases. It owns no business
// logic; every decision lives behind the use-case interfaces.
type Server struct {
	paymentUC usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	planUC    usecase.PlanUseCase
	webhookUC usecase.WebhookUseCase
	log       *zerolog.Logger
}

func NewServer(paymentUC usecase.PaymentUseCase, subUC usecase.SubscriptionUseCase, planUC usecase.PlanUseCase, webhookUC usecase.WebhookUseCase, logger *zerolog.Logger) *Server {
	return &Server{
		paymentUC: paymentUC,
		subUC:     subUC,
		planUC:    planUC,
		webhookUC: webhookUC,
		log:       logger,
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Route("/payment", func(r chi.Router) {
		r.Post("/", s.handleCreateOrder)
		r.Post("/verify", s.handleVerifyPayment)
		r.Post("/failure/{order_id}", s.handlePaymentFailure)
	})

	r.Get("/plans", s.handleListPlans)
	r.Post("/plans", s.handleCreatePlan)

	r.Route("/subscription", func(r chi.Router) {
		r.Post("/{plan_id}/{username}", s.handleCreateSubscription)
		r.Get("/{subscription_id}", s.handleFetchSubscription)
		r.Post("/{subscription_id}/cancel", s.handleCancelSubscription)
	})

	r.Get("/customer/{customer_id}/active-plan", s.handleActivePlan)

	r.Post("/webhook", s.handleWebhook)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
