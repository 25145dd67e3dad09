package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// ProfileService keeps the local employee profile projection current
type ProfileService struct {
	profiles ProfileStore
	logger   *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, log *logger.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		logger:   log,
	}
}

// ApplyUpdate stores the profile carried by a staff event
func (s *ProfileService) ApplyUpdate(ctx context.Context, ev messaging.EmployeePaymentProfileUpdatedEvent) error {
	p, err := profileFromEvent(ev)
	if err != nil {
		return err
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return err
	}

	s.logger.Debug().Str("user_id", ev.UserID).Msg("employee payment profile updated")
	return nil
}

// Get returns a user's profile, nil when unknown
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.EmployeeProfile, error) {
	return s.profiles.Get(ctx, userID)
}

func profileFromEvent(ev messaging.EmployeePaymentProfileUpdatedEvent) (*domain.EmployeeProfile, error) {
	userID, err := uuid.Parse(ev.UserID)
	if err != nil {
		return nil, errors.ValidationField("user_id", "must be a UUID")
	}
	companyID, err := uuid.Parse(ev.CompanyID)
	if err != nil {
		return nil, errors.ValidationField("company_id", "must be a UUID")
	}

	role := actor.Role(ev.Role)
	if !role.Valid() {
		return nil, errors.ValidationField("role", "must be employee, manager or admin")
	}

	p := &domain.EmployeeProfile{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	}

	if ev.ManagerID != nil {
		managerID, err := uuid.Parse(*ev.ManagerID)
		if err != nil {
			return nil, errors.ValidationField("manager_id", "must be a UUID")
		}
		p.ManagerID = &managerID
	}

	if ev.PaymentType != nil {
		pt := domain.PaymentType(*ev.PaymentType)
		if !pt.Valid() {
			return nil, errors.ValidationField("payment_type", "must be HOURLY or SALARY")
		}
		p.PaymentType = &pt
	}

	if p.HourlyRate, err = parseAmount(ev.HourlyRate, "hourly_rate"); err != nil {
		return nil, err
	}
	if p.MonthlySalary, err = parseAmount(ev.MonthlySalary, "monthly_salary"); err != nil {
		return nil, err
	}
	return p, nil
}

func parseAmount(s *string, field string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, errors.ValidationField(field, "must be a non-negative amount")
	}
	return domain.Some(d), nil
}
