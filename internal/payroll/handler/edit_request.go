package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/service"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/httputil"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/permissions"
)

// EditRequestHandler handles payroll edit request endpoints
type EditRequestHandler struct {
	service EditRequestService
	logger  *logger.Logger
}

// NewEditRequestHandler creates a new edit request handler
func NewEditRequestHandler(svc EditRequestService, log *logger.Logger) *EditRequestHandler {
	return &EditRequestHandler{
		service: svc,
		logger:  log,
	}
}

// CreateEditRequestRequest proposes changes to a payroll
type CreateEditRequestRequest struct {
	Changes domain.PayrollChanges `json:"changes"`
	Reason  *string               `json:"reason"`
	TaskID  *string               `json:"task_id" validate:"omitempty,uuid"`
}

// Create opens an edit request against a payroll
// POST /payrolls/{id}/edit-requests
func (h *EditRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	payrollID, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateEditRequestRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.CreateEditRequestInput{
		PayrollID: payrollID,
		Changes:   req.Changes,
		Reason:    req.Reason,
	}
	if req.TaskID != nil {
		taskID := uuid.MustParse(*req.TaskID)
		in.TaskID = &taskID
	}

	er, err := h.service.Create(r.Context(), actor.FromContext(r.Context()), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, er)
}

// Get returns an edit request to its requester, its assignee or a manager
// GET /edit-requests/{id}
func (h *EditRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	er, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	a := actor.FromContext(r.Context())
	if !permissions.CanAccessUser(a, er.RequestedBy.String(), permissions.PayrollRead) &&
		!permissions.CanAccessUser(a, er.AssignedTo.String(), permissions.PayrollRead) {
		httputil.Error(w, errors.NotFound("edit request"))
		return
	}

	httputil.JSON(w, http.StatusOK, er)
}

// ResolveRequest approves or rejects a pending edit request
type ResolveRequest struct {
	Decision        string  `json:"decision" validate:"required,oneof=approve reject"`
	RejectionReason *string `json:"rejection_reason"`
}

// Resolve approves or rejects an edit request. Approval applies the changes
// to the payroll.
// POST /edit-requests/{id}/resolve
func (h *EditRequestHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ResolveRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	er, err := h.service.Resolve(r.Context(), actor.FromContext(r.Context()), id,
		domain.Decision(req.Decision), req.RejectionReason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, er)
}

// ListForPayroll returns the edit requests of a payroll
// GET /payrolls/{id}/edit-requests
func (h *EditRequestHandler) ListForPayroll(w http.ResponseWriter, r *http.Request) {
	payrollID, err := uuidParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	reqs, err := h.service.ListForPayroll(r.Context(), payrollID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reqs)
}

// ListAssigned returns the edit requests assigned to the caller
// GET /edit-requests/assigned?status=PENDING
func (h *EditRequestHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	if a == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	var status *domain.EditRequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.EditRequestStatus(raw)
		switch s {
		case domain.EditRequestPending, domain.EditRequestApproved, domain.EditRequestRejected:
		default:
			httputil.Error(w, errors.ValidationField("status", "must be one of: PENDING APPROVED REJECTED"))
			return
		}
		status = &s
	}

	reqs, err := h.service.ListAssigned(r.Context(), a.ID, status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reqs)
}
