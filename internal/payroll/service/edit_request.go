package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/events"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
)

// EditRequestService runs the approval workflow for payroll edits
type EditRequestService struct {
	requests  EditRequestStore
	payrolls  PayrollStore
	profiles  ProfileStore
	tasks     TaskStore
	tx        Transactor
	publisher *events.PayrollEventPublisher
	logger    *logger.Logger

	now func() time.Time
}

// NewEditRequestService creates a new edit request service
func NewEditRequestService(
	requests EditRequestStore,
	payrolls PayrollStore,
	profiles ProfileStore,
	tasks TaskStore,
	tx Transactor,
	publisher *events.PayrollEventPublisher,
	log *logger.Logger,
) *EditRequestService {
	return &EditRequestService{
		requests:  requests,
		payrolls:  payrolls,
		profiles:  profiles,
		tasks:     tasks,
		tx:        tx,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// CreateEditRequestInput is a proposed payroll change
type CreateEditRequestInput struct {
	PayrollID uuid.UUID
	Changes   domain.PayrollChanges
	Reason    *string
	TaskID    *uuid.UUID
}

// Create records a pending edit request and routes it to an approver
func (s *EditRequestService) Create(ctx context.Context, a *actor.Actor, in CreateEditRequestInput) (*domain.PayrollEditRequest, error) {
	if err := in.Changes.Validate(); err != nil {
		return nil, err
	}

	p, err := s.payrolls.GetByID(ctx, in.PayrollID)
	if err != nil {
		return nil, err
	}

	assignee, err := s.resolveApprover(ctx, a)
	if err != nil {
		return nil, err
	}

	req := &domain.PayrollEditRequest{
		PayrollID:    p.ID,
		RequestedBy:  a.ID,
		AssignedTo:   assignee,
		Changes:      in.Changes,
		OriginalData: domain.SnapshotOf(p),
		Reason:       in.Reason,
		TaskID:       in.TaskID,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("edit_request_id", req.ID.String()).
		Str("payroll_id", p.ID.String()).
		Str("assigned_to", assignee.String()).
		Str("actor", a.String()).
		Msg("payroll edit request created")
	s.publisher.PublishEditRequest(ctx, req)
	return req, nil
}

// resolveApprover picks who decides on a request made by a: managers and
// admins approve their own, employees go to their manager, then to the
// company's longest-standing admin.
func (s *EditRequestService) resolveApprover(ctx context.Context, a *actor.Actor) (uuid.UUID, error) {
	if a.IsPrivileged() {
		return a.ID, nil
	}

	profile, err := s.profiles.Get(ctx, a.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if profile != nil && profile.ManagerID != nil {
		return *profile.ManagerID, nil
	}

	companyID := a.CompanyID
	if companyID == uuid.Nil && profile != nil {
		companyID = profile.CompanyID
	}
	if companyID != uuid.Nil {
		admin, err := s.profiles.FindCompanyAdmin(ctx, companyID)
		if err != nil {
			return uuid.Nil, err
		}
		if admin != nil {
			return admin.UserID, nil
		}
	}

	return uuid.Nil, errors.ValidationField("assigned_to", "no approver available")
}

// Resolve applies a decision to a pending request
func (s *EditRequestService) Resolve(ctx context.Context, a *actor.Actor, id uuid.UUID, decision domain.Decision, rejectionReason *string) (*domain.PayrollEditRequest, error) {
	switch decision {
	case domain.DecisionApprove:
		return s.Approve(ctx, a, id)
	case domain.DecisionReject:
		return s.Reject(ctx, a, id, rejectionReason)
	default:
		return nil, errors.ValidationField("decision", "must be approve or reject")
	}
}

// Approve applies the proposed changes to the payroll, all in one transaction
func (s *EditRequestService) Approve(ctx context.Context, a *actor.Actor, id uuid.UUID) (*domain.PayrollEditRequest, error) {
	var req *domain.PayrollEditRequest
	at := s.now().UTC()

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.claim(ctx, a, id, domain.EditRequestApproved, at, nil)
		if err != nil {
			return err
		}

		p, err := s.payrolls.GetForUpdate(ctx, req.PayrollID)
		if err != nil {
			return err
		}
		req.Changes.ApplyTo(p)
		if err := s.payrolls.UpdateFigures(ctx, p); err != nil {
			return err
		}

		return s.closeTask(ctx, req, domain.TaskApproved)
	})
	if err != nil {
		return nil, err
	}

	s.logResolved(req, a)
	s.publisher.PublishEditRequest(ctx, req)
	return req, nil
}

// Reject closes the request without touching the payroll
func (s *EditRequestService) Reject(ctx context.Context, a *actor.Actor, id uuid.UUID, reason *string) (*domain.PayrollEditRequest, error) {
	var req *domain.PayrollEditRequest
	at := s.now().UTC()

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.claim(ctx, a, id, domain.EditRequestRejected, at, reason)
		if err != nil {
			return err
		}
		return s.closeTask(ctx, req, domain.TaskCancelled)
	})
	if err != nil {
		return nil, err
	}

	s.logResolved(req, a)
	s.publisher.PublishEditRequest(ctx, req)
	return req, nil
}

// claim moves a PENDING request to status. The conditional update makes
// concurrent resolutions race safely: only one of them wins.
func (s *EditRequestService) claim(ctx context.Context, a *actor.Actor, id uuid.UUID, status domain.EditRequestStatus, at time.Time, reason *string) (*domain.PayrollEditRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, errors.InvalidState("edit request is already " + string(req.Status))
	}

	ok, err := s.requests.Resolve(ctx, id, status, a.IDOrNil(), at, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.InvalidState("edit request was resolved concurrently")
	}

	req.Status = status
	req.ApprovedBy = a.IDOrNil()
	req.ApprovedAt = &at
	req.RejectionReason = reason
	return req, nil
}

func (s *EditRequestService) closeTask(ctx context.Context, req *domain.PayrollEditRequest, status string) error {
	if req.TaskID == nil {
		return nil
	}
	return s.tasks.SetStatus(ctx, *req.TaskID, status)
}

func (s *EditRequestService) logResolved(req *domain.PayrollEditRequest, a *actor.Actor) {
	s.logger.Info().
		Str("edit_request_id", req.ID.String()).
		Str("payroll_id", req.PayrollID.String()).
		Str("status", string(req.Status)).
		Str("actor", a.String()).
		Msg("payroll edit request resolved")
}

// Get returns one edit request
func (s *EditRequestService) Get(ctx context.Context, id uuid.UUID) (*domain.PayrollEditRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// ListForPayroll returns the requests made against a payroll
func (s *EditRequestService) ListForPayroll(ctx context.Context, payrollID uuid.UUID) ([]domain.PayrollEditRequest, error) {
	reqs, err := s.requests.ListForPayroll(ctx, payrollID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.PayrollEditRequest{}
	}
	return reqs, nil
}

// ListAssigned returns the requests waiting on, or decided by, an approver
func (s *EditRequestService) ListAssigned(ctx context.Context, assignee uuid.UUID, status *domain.EditRequestStatus) ([]domain.PayrollEditRequest, error) {
	reqs, err := s.requests.ListAssigned(ctx, assignee, status)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.PayrollEditRequest{}
	}
	return reqs, nil
}
