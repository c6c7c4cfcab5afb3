package api

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/ledger"
	"github.com/aquastack/aquameter/internal/notification"
	"github.com/aquastack/aquameter/internal/storage"
)

// Handler carries the dependencies shared by every endpoint. authSvc may be
// nil, in which case all requests are allowed (single-operator deployments).
type Handler struct {
	svc      *ledger.Service
	st       storage.Storage
	authSvc  *auth.Service
	notifier *notification.Service
}

// NewMux constructs the HTTP mux: the v1 ledger API plus metrics and health
// endpoints.
func NewMux(svc *ledger.Service, st storage.Storage, authSvc *auth.Service, notifier *notification.Service) *http.ServeMux {
	h := &Handler{svc: svc, st: st, authSvc: authSvc, notifier: notifier}

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Wrap a handler with the bearer-token middleware when auth is enabled.
	withAuth := func(handler http.HandlerFunc) http.Handler {
		if authSvc == nil {
			return handler
		}
		return authSvc.Middleware(handler)
	}

	// Tariffs.
	mux.Handle("POST /api/v1/tariffs", withAuth(h.CreateTariff))
	mux.Handle("GET /api/v1/tariffs", withAuth(h.ListTariffs))
	mux.Handle("GET /api/v1/tariffs/{id}", withAuth(h.GetTariff))
	mux.Handle("PATCH /api/v1/tariffs/{id}/rates", withAuth(h.UpdateTariffRates))
	mux.Handle("PUT /api/v1/tariffs/{id}/structure", withAuth(h.UpdateTariffStructure))
	mux.Handle("POST /api/v1/tariffs/import", withAuth(h.ImportRateSheet))

	// Reservoirs.
	mux.Handle("POST /api/v1/reservoirs", withAuth(h.CreateReservoir))
	mux.Handle("GET /api/v1/reservoirs", withAuth(h.ListReservoirs))
	mux.Handle("GET /api/v1/reservoirs/{id}", withAuth(h.GetReservoir))
	mux.Handle("PATCH /api/v1/reservoirs/{id}", withAuth(h.UpdateReservoir))
	mux.Handle("PUT /api/v1/reservoirs/{id}/level", withAuth(h.SetReservoirLevel))

	// Consumers.
	mux.Handle("POST /api/v1/consumers", withAuth(h.RegisterConsumer))
	mux.Handle("GET /api/v1/consumers/{id}", withAuth(h.GetConsumer))
	mux.Handle("PATCH /api/v1/consumers/{id}", withAuth(h.UpdateConsumer))
	mux.Handle("POST /api/v1/consumers/{id}/tariff", withAuth(h.ReassignTariff))
	mux.Handle("POST /api/v1/consumers/{id}/reservoir", withAuth(h.ReassignReservoir))
	mux.Handle("GET /api/v1/consumers/{id}/balances", withAuth(h.GetBalances))

	// Metering operations.
	mux.Handle("POST /api/v1/consumers/{id}/use", withAuth(h.UseWater))
	mux.Handle("POST /api/v1/consumers/{id}/dispose", withAuth(h.DisposeWaste))
	mux.Handle("POST /api/v1/consumers/{id}/pay/water", withAuth(h.PayForWater))
	mux.Handle("POST /api/v1/consumers/{id}/pay/waste", withAuth(h.PayForWaste))
	mux.Handle("POST /api/v1/consumers/{id}/redeem", withAuth(h.RedeemCredits))

	// Token directory and auth.
	mux.Handle("GET /api/v1/tokens", withAuth(h.GetTokenDirectory))
	mux.HandleFunc("POST /api/v1/auth/register", h.RegisterUser)
	mux.HandleFunc("POST /api/v1/auth/tokens", h.CreateAPIToken)

	// Email notification config.
	mux.Handle("GET /api/v1/notifications/email", withAuth(h.GetEmailConfig))
	mux.Handle("PUT /api/v1/notifications/email", withAuth(h.SaveEmailConfig))
	mux.Handle("POST /api/v1/notifications/email/test", withAuth(h.TestEmailConfig))

	return mux
}

// allow checks the request's subject against the policy. With auth disabled
// everything is allowed.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, obj, act string) bool {
	if h.authSvc == nil {
		return true
	}
	allowed, err := h.authSvc.Enforce(getUserID(r), obj, act)
	if err != nil || !allowed {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func getUserID(r *http.Request) string {
	token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
	if !ok {
		return ""
	}
	return token.UserID
}
