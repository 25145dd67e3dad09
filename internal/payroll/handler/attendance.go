package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
)

// AttendanceHandler handles check-in and check-out endpoints
type AttendanceHandler struct {
	service AttendanceService
	logger  *logger.Logger
	now     func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc AttendanceService, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
		logger:  log,
		now:     time.Now,
	}
}

// ClockRequest is an optional body of check-in and check-out. Employees
// always clock themselves at the current time; managers may record
// another user or an explicit time.
type ClockRequest struct {
	UserID *string    `json:"user_id" validate:"omitempty,uuid"`
	At     *time.Time `json:"at"`
}

// CheckIn opens (or reopens) today's attendance
// POST /attendance/check-in
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, at, err := h.clockTarget(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.CheckIn(r.Context(), userID, at)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// CheckOut closes today's open attendance
// POST /attendance/check-out
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	userID, at, err := h.clockTarget(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.CheckOut(r.Context(), userID, at)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

func (h *AttendanceHandler) clockTarget(r *http.Request) (uuid.UUID, time.Time, error) {
	a := actor.FromContext(r.Context())
	if a == nil {
		return uuid.Nil, time.Time{}, errors.Unauthorized("user not authenticated")
	}

	var req ClockRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeAndValidate(r, &req); err != nil {
			return uuid.Nil, time.Time{}, err
		}
	}

	userID, at := a.ID, h.now()
	if req.UserID == nil && req.At == nil {
		return userID, at, nil
	}
	if !permissions.Can(a, permissions.AttendanceRead) {
		return uuid.Nil, time.Time{}, errors.Forbidden("only managers may record attendance for others or at another time")
	}
	if req.UserID != nil {
		userID = uuid.MustParse(*req.UserID)
	}
	if req.At != nil {
		at = *req.At
	}
	return userID, at, nil
}

// GetDay returns a user's attendance record for one date
// GET /users/{userId}/attendance/{date}
func (h *AttendanceHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.AttendanceRead)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	day, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.GetDay(r.Context(), userID, day)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// List returns a user's attendance records with their events
// GET /users/{userId}/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r, permissions.AttendanceRead)
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
	if to.Before(from) {
		httputil.Error(w, errors.ValidationField("to", "must not be before from"))
		return
	}

	records, err := h.service.ListRange(r.Context(), userID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}

	httputil.JSON(w, http.StatusOK, records)
}
