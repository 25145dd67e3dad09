package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/service"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// RateHandler handles hourly rate period and overtime policy endpoints
type RateHandler struct {
	rates    RateService
	overtime OvertimeService
	logger   *logger.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(rates RateService, overtime OvertimeService, log *logger.Logger) *RateHandler {
	return &RateHandler{
		rates:    rates,
		overtime: overtime,
		logger:   log,
	}
}

// CreateRatePeriodRequest is a new hourly rate period; end_date is inclusive
type CreateRatePeriodRequest struct {
	UserID     string          `json:"user_id" validate:"required,uuid"`
	StartDate  string          `json:"start_date" validate:"required,isodate"`
	EndDate    string          `json:"end_date" validate:"required,isodate"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
}

// CreatePeriod stores a rate period
// POST /rate-periods
func (h *RateHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreateRatePeriodRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.rates.CreateRatePeriod(r.Context(), actor.FromContext(r.Context()), service.CreateRatePeriodInput{
		UserID:     uuid.MustParse(req.UserID),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, p)
}

// ListPeriods returns a user's rate periods
// GET /users/{userId}/rate-periods
func (h *RateHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	periods, err := h.rates.ListRatePeriods(r.Context(), userID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, periods)
}

// DeletePeriod removes a rate period
// DELETE /rate-periods/{id}
func (h *RateHandler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.rates.DeleteRatePeriod(r.Context(), actor.FromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// RateResponse is the hourly rate in effect on a date; null when the user
// has neither a covering period nor a default rate
type RateResponse struct {
	Date       string              `json:"date"`
	HourlyRate decimal.NullDecimal `json:"hourly_rate"`
}

// GetRate resolves the hourly rate applicable on a date
// GET /users/{userId}/rate?date=YYYY-MM-DD
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	day, err := dateQuery(r, "date")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rate, err := h.rates.Resolve(r.Context(), userID, day)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, RateResponse{
		Date:       day.Format(domain.DateLayout),
		HourlyRate: rate,
	})
}

// GetOvertime returns the effective overtime policy of a user
// GET /users/{userId}/overtime
func (h *RateHandler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	policy, err := h.overtime.Policy(r.Context(), userID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, policy)
}

// UpsertOvertimeRequest sets a user's weekly overtime policy
type UpsertOvertimeRequest struct {
	WeeklyThresholdHours decimal.Decimal `json:"weekly_threshold_hours"`
	OvertimeMultiplier   decimal.Decimal `json:"overtime_multiplier"`
}

// PutOvertime replaces a user's overtime policy
// PUT /users/{userId}/overtime
func (h *RateHandler) PutOvertime(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req UpsertOvertimeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	cfg := &domain.OvertimeConfig{
		UserID:               userID,
		WeeklyThresholdHours: req.WeeklyThresholdHours,
		OvertimeMultiplier:   req.OvertimeMultiplier,
	}
	if err := h.overtime.Upsert(r.Context(), actor.FromContext(r.Context()), cfg); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cfg)
}
