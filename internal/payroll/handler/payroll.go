package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
)

const maxPerPage = 200

// PayrollHandler handles monthly payroll endpoints
type PayrollHandler struct {
	service PayrollService
	logger  *logger.Logger
}

// NewPayrollHandler creates a new payroll handler
func NewPayrollHandler(svc PayrollService, log *logger.Logger) *PayrollHandler {
	return &PayrollHandler{
		service: svc,
		logger:  log,
	}
}

// CreatePayrollRequest is the body of a payroll creation
type CreatePayrollRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Month  int    `json:"month" validate:"required,min=1,max=12"`
	Year   int    `json:"year" validate:"required,min=1970,max=9999"`
	domain.CreatePayrollParams
}

// Create creates a monthly payroll; a second one for the same user and month is a conflict
// POST /payrolls
func (h *PayrollHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePayrollRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.CreateMonthlyPayroll(r.Context(), actor.FromContext(r.Context()),
		uuid.MustParse(req.UserID), req.Month, req.Year, req.CreatePayrollParams)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, p)
}

// Ensure returns the existing payroll for the user and month, creating it when missing
// POST /payrolls/ensure
func (h *PayrollHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req CreatePayrollRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, created, err := h.service.CreateOrGetMonthlyPayroll(r.Context(), actor.FromContext(r.Context()),
		uuid.MustParse(req.UserID), req.Month, req.Year, req.CreatePayrollParams)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if created {
		httputil.Created(w, p)
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

// Get returns a payroll
// GET /payrolls/{id}
func (h *PayrollHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !permissions.CanAccessUser(actor.FromContext(r.Context()), p.UserID.String(), permissions.PayrollRead) {
		// same answer as a missing payroll
		httputil.Error(w, errors.NotFound("payroll"))
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}

// List returns payrolls, newest period first. Callers without payroll.read
// only see their own.
// GET /payrolls?user_id=&year=&month=&status=&page=&per_page=
func (h *PayrollHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a := actor.FromContext(r.Context())
	if a == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	page, err := intQuery(r, "page", 1)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	perPage, err := intQuery(r, "per_page", 50)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = 50
	}

	f := domain.PayrollFilter{Limit: perPage, Offset: (page - 1) * perPage}

	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			httputil.Error(w, errors.ValidationField("user_id", "must be a valid UUID"))
			return
		}
		f.UserID = &userID
	}
	if !permissions.Can(a, permissions.PayrollRead) {
		self := a.ID
		f.UserID = &self
	}
	if q.Get("year") != "" {
		year, err := intQuery(r, "year", 0)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		f.Year = &year
	}
	if q.Get("month") != "" {
		month, err := intQuery(r, "month", 0)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		f.Month = &month
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.PayrollStatus(raw)
		f.Status = &status
	}

	payrolls, total, err := h.service.List(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, payrolls, httputil.NewMeta(page, perPage, total))
}

// Recalculate recomputes an hourly payroll from current attendance, rates and overrides
// POST /payrolls/{id}/recalculate
func (h *PayrollHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.RecalculateMonthlyPayroll(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}

// UpdateStatusRequest moves a payroll through its lifecycle
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED PAID"`
}

// UpdateStatus changes a payroll's status
// PUT /payrolls/{id}/status
func (h *PayrollHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req UpdateStatusRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.UpdateStatus(r.Context(), actor.FromContext(r.Context()), id, domain.PayrollStatus(req.Status))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}

// HoursWorked returns the total effective hours of a user's month
// GET /users/{userId}/hours?month=&year=
func (h *PayrollHandler) HoursWorked(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.PayrollRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	month, year, err := periodQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	hours, err := h.service.ComputeHoursWorked(r.Context(), userID, month, year)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"month":        month,
		"year":         year,
		"hours_worked": hours,
	})
}
