package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// EarningsHandler handles daily earnings endpoints
type EarningsHandler struct {
	service EarningsService
	logger  *logger.Logger
}

// NewEarningsHandler creates a new earnings handler
func NewEarningsHandler(svc EarningsService, log *logger.Logger) *EarningsHandler {
	return &EarningsHandler{
		service: svc,
		logger:  log,
	}
}

// EarningsRange is a list of days with their totals
type EarningsRange struct {
	Days          []domain.DailyEarnings `json:"days"`
	TotalHours    decimal.Decimal        `json:"total_hours"`
	TotalEarnings decimal.Decimal        `json:"total_earnings"`
}

// GetDay returns one day's earnings
// GET /users/{userId}/earnings/{date}
func (h *EarningsHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	day, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	earnings, err := h.service.ComputeDailyEarnings(r.Context(), userID, day)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, earnings)
}

// GetRange returns every day in [from, to] with totals
// GET /users/{userId}/earnings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *EarningsHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	from, err := dateQuery(r, "from")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	days, err := h.service.ComputeRange(r.Context(), userID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, EarningsRange{
		Days:          days,
		TotalHours:    domain.SumHours(days),
		TotalEarnings: domain.SumEarnings(days),
	})
}
