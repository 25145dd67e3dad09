package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
)

// Handlers groups the payroll service's HTTP handlers
type Handlers struct {
	Payroll      *PayrollHandler
	Earnings     *EarningsHandler
	Overrides    *OverrideHandler
	Rates        *RateHandler
	EditRequests *EditRequestHandler
	Attendance   *AttendanceHandler
}

// RouterOptions configures the router's middleware
type RouterOptions struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	// Idempotency is applied to POST routes when set
	Idempotency func(http.Handler) http.Handler
	Health      http.HandlerFunc
}

// NewRouter builds the service router
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(opts.Logger))
	r.Use(httputil.Recoverer(opts.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", httputil.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httputil.ActorMiddleware)

	if opts.Health != nil {
		r.Get("/health", opts.Health)
	}

	r.Route("/api/v1/payroll", func(r chi.Router) {
		if opts.Idempotency != nil {
			r.Use(opts.Idempotency)
		}
		h.Mount(r)
	})

	return r
}

// Mount registers the payroll routes on r
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/payrolls", func(r chi.Router) {
		r.Get("/", h.Payroll.List)
		r.With(permissions.Require(permissions.PayrollWrite)).Post("/", h.Payroll.Create)
		r.With(permissions.Require(permissions.PayrollWrite)).Post("/ensure", h.Payroll.Ensure)
		r.Get("/{id}", h.Payroll.Get)
		r.With(permissions.Require(permissions.PayrollWrite)).Post("/{id}/recalculate", h.Payroll.Recalculate)
		r.With(permissions.Require(permissions.PayrollWrite)).Put("/{id}/status", h.Payroll.UpdateStatus)

		r.With(permissions.Require(permissions.EditRequestsCreate)).Post("/{id}/edit-requests", h.EditRequests.Create)
		r.With(permissions.Require(permissions.PayrollRead)).Get("/{id}/edit-requests", h.EditRequests.ListForPayroll)
	})

	r.Route("/edit-requests", func(r chi.Router) {
		r.With(permissions.Require(permissions.EditRequestsRead)).Get("/assigned", h.EditRequests.ListAssigned)
		r.Get("/{id}", h.EditRequests.Get)
		r.With(permissions.Require(permissions.EditRequestsSolve)).Post("/{id}/resolve", h.EditRequests.Resolve)
	})

	r.Route("/overrides", func(r chi.Router) {
		r.Use(permissions.Require(permissions.OverridesWrite))
		r.Post("/", h.Overrides.Create)
		r.Get("/{id}", h.Overrides.Get)
		r.Patch("/{id}", h.Overrides.Update)
		r.Delete("/{id}", h.Overrides.Delete)
	})

	r.Route("/rate-periods", func(r chi.Router) {
		r.Use(permissions.Require(permissions.RatesWrite))
		r.Post("/", h.Rates.CreatePeriod)
		r.Delete("/{id}", h.Rates.DeletePeriod)
	})

	r.Route("/attendance", func(r chi.Router) {
		r.Use(permissions.Require(permissions.AttendanceWrite))
		r.Post("/check-in", h.Attendance.CheckIn)
		r.Post("/check-out", h.Attendance.CheckOut)
	})

	// Per-user reads; employees may read their own
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/hours", h.Payroll.HoursWorked)
		r.Get("/earnings", h.Earnings.GetRange)
		r.Get("/earnings/{date}", h.Earnings.GetDay)
		r.Get("/overrides", h.Overrides.ListForMonth)
		r.Get("/rate", h.Rates.GetRate)
		r.Get("/rate-periods", h.Rates.ListPeriods)
		r.Get("/overtime", h.Rates.GetOvertime)
		r.Get("/attendance", h.Attendance.List)
		r.Get("/attendance/{date}", h.Attendance.GetDay)
		r.With(permissions.Require(permissions.OvertimeWrite)).Put("/overtime", h.Rates.PutOvertime)
	})
}
