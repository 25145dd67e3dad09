package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/service"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// OverrideHandler handles daily override endpoints
type OverrideHandler struct {
	service OverrideService
	logger  *logger.Logger
}

// NewOverrideHandler creates a new override handler
func NewOverrideHandler(svc OverrideService, log *logger.Logger) *OverrideHandler {
	return &OverrideHandler{
		service: svc,
		logger:  log,
	}
}

// CreateOverrideRequest is a new daily override. Omitted values keep the
// computed figure for that field.
type CreateOverrideRequest struct {
	UserID        string           `json:"user_id" validate:"required,uuid"`
	Date          string           `json:"date" validate:"required,isodate"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate"`
	RegularHours  *decimal.Decimal `json:"regular_hours"`
	OvertimeHours *decimal.Decimal `json:"overtime_hours"`
	TotalHours    *decimal.Decimal `json:"total_hours"`
	Earnings      *decimal.Decimal `json:"earnings"`
	Notes         *string          `json:"notes"`
}

// Create stores an override for a user and day
// POST /overrides
func (h *OverrideHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOverrideRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.Create(r.Context(), actor.FromContext(r.Context()), service.CreateOverrideInput{
		UserID:        uuid.MustParse(req.UserID),
		Date:          req.Date,
		HourlyRate:    req.HourlyRate,
		RegularHours:  req.RegularHours,
		OvertimeHours: req.OvertimeHours,
		TotalHours:    req.TotalHours,
		Earnings:      req.Earnings,
		Notes:         req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, o)
}

// Get returns an override
// GET /overrides/{id}
func (h *OverrideHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !permissions.CanAccessUser(actor.FromContext(r.Context()), o.UserID.String(), permissions.PayrollRead) {
		httputil.Error(w, errors.NotFound("override"))
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

// overridePatchFields are the fields a PATCH may set or clear
var overridePatchFields = []string{"hourly_rate", "regular_hours", "overtime_hours", "total_hours", "earnings"}

// Update applies a partial update
// PATCH /overrides/{id}
// A field set to null is cleared back to the computed value; an absent field is unchanged.
func (h *OverrideHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		httputil.Error(w, err)
		return
	}

	patch, err := parseOverridePatch(raw)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.Update(r.Context(), actor.FromContext(r.Context()), id, patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

func parseOverridePatch(raw map[string]json.RawMessage) (domain.OverridePatch, error) {
	var patch domain.OverridePatch
	targets := map[string]**decimal.Decimal{
		"hourly_rate":    &patch.HourlyRate,
		"regular_hours":  &patch.RegularHours,
		"overtime_hours": &patch.OvertimeHours,
		"total_hours":    &patch.TotalHours,
		"earnings":       &patch.Earnings,
	}

	for _, field := range overridePatchFields {
		value, ok := raw[field]
		if !ok {
			continue
		}
		if string(value) == "null" {
			patch.Clear = append(patch.Clear, field)
			continue
		}
		var d decimal.Decimal
		if err := json.Unmarshal(value, &d); err != nil {
			return patch, errors.ValidationField(field, "must be a number")
		}
		*targets[field] = &d
	}

	if value, ok := raw["notes"]; ok {
		if string(value) == "null" {
			patch.Clear = append(patch.Clear, "notes")
		} else {
			var notes string
			if err := json.Unmarshal(value, &notes); err != nil {
				return patch, errors.ValidationField("notes", "must be a string")
			}
			patch.Notes = &notes
		}
	}

	return patch, nil
}

// Delete removes an override; the day falls back to computed values
// DELETE /overrides/{id}
func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), actor.FromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ListForMonth returns a user's overrides in a month
// GET /users/{userId}/overrides?month=&year=
func (h *OverrideHandler) ListForMonth(w http.ResponseWriter, r *http.Request) {
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

	overrides, err := h.service.ListForMonth(r.Context(), userID, month, year)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, overrides)
}
