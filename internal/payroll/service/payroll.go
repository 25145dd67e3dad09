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
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// recalculationTimeout bounds one shared recalculation run
const recalculationTimeout = time.Minute

// PayrollService aggregates daily earnings into monthly payrolls
type PayrollService struct {
	payrolls  PayrollStore
	profiles  ProfileStore
	earnings  *EarningsService
	tx        Transactor
	publisher *events.PayrollEventPublisher
	logger    *logger.Logger

	recalcs singleflight.Group
	now     func() time.Time
}

// NewPayrollService creates a new payroll service
func NewPayrollService(
	payrolls PayrollStore,
	profiles ProfileStore,
	earnings *EarningsService,
	tx Transactor,
	publisher *events.PayrollEventPublisher,
	log *logger.Logger,
) *PayrollService {
	return &PayrollService{
		payrolls:  payrolls,
		profiles:  profiles,
		earnings:  earnings,
		tx:        tx,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// ComputeHoursWorked sums the resolved hours of every day of a month
func (s *PayrollService) ComputeHoursWorked(ctx context.Context, userID uuid.UUID, month, year int) (decimal.Decimal, error) {
	if err := domain.ValidatePeriod(month, year); err != nil {
		return decimal.Zero, err
	}

	from, to := domain.MonthRange(year, month)
	days, err := s.earnings.ComputeRange(ctx, userID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundHours(domain.SumHours(days)), nil
}

// ============================================================================
// CREATE
// ============================================================================

// CreateMonthlyPayroll creates the payroll of a user for a month. A second
// payroll for the same period fails with a conflict and writes nothing.
func (s *PayrollService) CreateMonthlyPayroll(ctx context.Context, a *actor.Actor, userID uuid.UUID, month, year int, params domain.CreatePayrollParams) (*domain.Payroll, error) {
	p, err := s.buildPayroll(ctx, a, userID, month, year, params)
	if err != nil {
		return nil, err
	}

	if err := s.payrolls.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logCreated(p, a)
	s.publisher.PublishPayrollCreated(ctx, p)
	return p, nil
}

// CreateOrGetMonthlyPayroll returns the payroll of a user for a month,
// creating it when absent. created reports whether this call inserted it.
func (s *PayrollService) CreateOrGetMonthlyPayroll(ctx context.Context, a *actor.Actor, userID uuid.UUID, month, year int, params domain.CreatePayrollParams) (p *domain.Payroll, created bool, err error) {
	if err := domain.ValidatePeriod(month, year); err != nil {
		return nil, false, err
	}

	existing, err := s.payrolls.GetByPeriod(ctx, userID, month, year)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, false, err
	}

	p, err = s.buildPayroll(ctx, a, userID, month, year, params)
	if err != nil {
		return nil, false, err
	}

	created, err = s.payrolls.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// lost the race to a concurrent creator
		existing, err := s.payrolls.GetByPeriod(ctx, userID, month, year)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.logCreated(p, a)
	s.publisher.PublishPayrollCreated(ctx, p)
	return p, true, nil
}

// buildPayroll derives every field of a new payroll. Explicit params win
// over the employee profile, which wins over the built-in defaults.
func (s *PayrollService) buildPayroll(ctx context.Context, a *actor.Actor, userID uuid.UUID, month, year int, params domain.CreatePayrollParams) (*domain.Payroll, error) {
	if err := domain.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &domain.Payroll{
		UserID:      userID,
		Month:       month,
		Year:        year,
		PaymentType: resolvePaymentType(params.PaymentType, profile),
		Bonuses:     params.Bonuses,
		Deductions:  params.Deductions,
		Status:      domain.PayrollPending,
		CreatedBy:   a.IDOrNil(),
	}

	switch p.PaymentType {
	case domain.PaymentHourly:
		var hours decimal.Decimal
		if params.HoursWorked != nil {
			hours = *params.HoursWorked
		} else {
			hours, err = s.ComputeHoursWorked(ctx, userID, month, year)
			if err != nil {
				return nil, err
			}
		}

		rate := domain.FromPtr(params.HourlyRate)
		if !rate.Valid {
			rate = profile.DefaultRate()
		}
		if !rate.Valid || !rate.Decimal.IsPositive() {
			return nil, errors.ValidationField("hourly_rate", "must be greater than 0 for hourly payrolls")
		}

		p.HoursWorked = domain.Some(domain.RoundHours(hours))
		p.HourlyRate = rate
		p.BaseSalary = domain.RoundMoney(p.HoursWorked.Decimal.Mul(rate.Decimal))

	default:
		base := domain.FromPtr(params.BaseSalary)
		if !base.Valid && profile != nil {
			base = profile.MonthlySalary
		}
		if !base.Valid || !base.Decimal.IsPositive() {
			return nil, errors.ValidationField("base_salary", "must be greater than 0 for salaried payrolls")
		}
		p.BaseSalary = domain.RoundMoney(base.Decimal)
	}

	p.RecomputeTotals()
	return p, nil
}

func resolvePaymentType(explicit *domain.PaymentType, profile *domain.EmployeeProfile) domain.PaymentType {
	if explicit != nil {
		return *explicit
	}
	if profile != nil && profile.PaymentType != nil && profile.PaymentType.Valid() {
		return *profile.PaymentType
	}
	return domain.PaymentSalary
}

func (s *PayrollService) logCreated(p *domain.Payroll, a *actor.Actor) {
	s.logger.Info().
		Str("payroll_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Int("month", p.Month).
		Int("year", p.Year).
		Str("payment_type", string(p.PaymentType)).
		Str("actor", a.String()).
		Msg("payroll created")
}

// ============================================================================
// RECALCULATION
// ============================================================================

// RecalculateMonthlyPayroll refreshes the hours, base salary and net salary
// of an hourly payroll from the current daily earnings. Salaried and paid
// payrolls are returned unchanged. The payroll row is locked for the
// duration, and concurrent calls for one payroll in this process share a
// single run. The shared run is detached from any one caller's
// cancellation; a cancelled caller stops waiting but the run completes for
// the others.
func (s *PayrollService) RecalculateMonthlyPayroll(ctx context.Context, payrollID uuid.UUID) (*domain.Payroll, error) {
	ch := s.recalcs.DoChan(payrollID.String(), func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recalculationTimeout)
		defer cancel()
		return s.recalculate(runCtx, payrollID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Payroll), nil
	}
}

func (s *PayrollService) recalculate(ctx context.Context, payrollID uuid.UUID) (*domain.Payroll, error) {
	var (
		p       *domain.Payroll
		changed bool
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payrolls.GetForUpdate(ctx, payrollID)
		if err != nil {
			return err
		}
		if p.PaymentType != domain.PaymentHourly {
			return nil
		}
		if p.Status == domain.PayrollPaid {
			s.logger.Debug().Str("payroll_id", payrollID.String()).Msg("payroll already paid; recalculation skipped")
			return nil
		}

		hours, err := s.ComputeHoursWorked(ctx, p.UserID, p.Month, p.Year)
		if err != nil {
			return err
		}

		p.ApplyHourlyRecalculation(hours, s.now().UTC())
		if err := s.payrolls.UpdateFigures(ctx, p); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info().
			Str("payroll_id", p.ID.String()).
			Str("hours_worked", p.HoursWorked.Decimal.String()).
			Str("net_salary", p.NetSalary.String()).
			Msg("payroll recalculated")
		s.publisher.PublishPayrollRecalculated(ctx, p)
	}
	return p, nil
}

// TriggerForDay recalculates the payroll covering a user's day, if any.
// It never fails: an unsuccessful recalculation is logged and handed to the
// retry consumer.
func (s *PayrollService) TriggerForDay(ctx context.Context, userID uuid.UUID, day time.Time) {
	p, err := s.payrolls.GetByPeriod(ctx, userID, int(day.Month()), day.Year())
	if errors.Is(err, errors.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("date", day.Format(domain.DateLayout)).
			Msg("recalculation skipped: payroll lookup failed")
		return
	}

	if _, err := s.RecalculateMonthlyPayroll(ctx, p.ID); err != nil {
		s.logger.Warn().Err(err).
			Str("payroll_id", p.ID.String()).
			Str("user_id", userID.String()).
			Str("date", day.Format(domain.DateLayout)).
			Msg("payroll recalculation failed; queued for retry")
		s.publisher.RequestRecalculation(ctx, p.ID.String(), err.Error())
	}
}

// ============================================================================
// STATUS & READS
// ============================================================================

// UpdateStatus moves a payroll through PENDING -> APPROVED|REJECTED -> PAID
func (s *PayrollService) UpdateStatus(ctx context.Context, a *actor.Actor, id uuid.UUID, to domain.PayrollStatus) (*domain.Payroll, error) {
	p, err := s.payrolls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := p.Status
	if !from.CanTransitionTo(to) {
		return nil, errors.InvalidState("payroll cannot move from " + string(from) + " to " + string(to))
	}

	ok, err := s.payrolls.TransitionStatus(ctx, id, from, to, a.IDOrNil(), s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.InvalidState("payroll status changed concurrently")
	}

	p, err = s.payrolls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("payroll_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", a.String()).
		Msg("payroll status changed")
	s.publisher.PublishStatusChanged(ctx, p, from, a.String())
	return p, nil
}

// Get returns one payroll
func (s *PayrollService) Get(ctx context.Context, id uuid.UUID) (*domain.Payroll, error) {
	return s.payrolls.GetByID(ctx, id)
}

// List returns payrolls matching the filter and the total count
func (s *PayrollService) List(ctx context.Context, f domain.PayrollFilter) ([]domain.Payroll, int64, error) {
	payrolls, total, err := s.payrolls.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if payrolls == nil {
		payrolls = []domain.Payroll{}
	}
	return payrolls, total, nil
}
