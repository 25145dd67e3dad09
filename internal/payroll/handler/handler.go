package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/service"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// PayrollService is the monthly payroll API used by the handlers
type PayrollService interface {
	ComputeHoursWorked(ctx context.Context, userID uuid.UUID, month, year int) (decimal.Decimal, error)
	CreateMonthlyPayroll(ctx context.Context, a *actor.Actor, userID uuid.UUID, month, year int, params domain.CreatePayrollParams) (*domain.Payroll, error)
	CreateOrGetMonthlyPayroll(ctx context.Context, a *actor.Actor, userID uuid.UUID, month, year int, params domain.CreatePayrollParams) (*domain.Payroll, bool, error)
	RecalculateMonthlyPayroll(ctx context.Context, payrollID uuid.UUID) (*domain.Payroll, error)
	UpdateStatus(ctx context.Context, a *actor.Actor, id uuid.UUID, to domain.PayrollStatus) (*domain.Payroll, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Payroll, error)
	List(ctx context.Context, f domain.PayrollFilter) ([]domain.Payroll, int64, error)
}

// EarningsService resolves daily earnings
type EarningsService interface {
	ComputeDailyEarnings(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyEarnings, error)
	ComputeRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyEarnings, error)
}

// OverrideService manages daily overrides
type OverrideService interface {
	Create(ctx context.Context, a *actor.Actor, in service.CreateOverrideInput) (*domain.DailyOverride, error)
	Update(ctx context.Context, a *actor.Actor, id uuid.UUID, patch domain.OverridePatch) (*domain.DailyOverride, error)
	Delete(ctx context.Context, a *actor.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.DailyOverride, error)
	ListForMonth(ctx context.Context, userID uuid.UUID, month, year int) ([]domain.DailyOverride, error)
}

// RateService manages hourly rate periods
type RateService interface {
	CreateRatePeriod(ctx context.Context, a *actor.Actor, in service.CreateRatePeriodInput) (*domain.HourlyRatePeriod, error)
	Resolve(ctx context.Context, userID uuid.UUID, day time.Time) (decimal.NullDecimal, error)
	ListRatePeriods(ctx context.Context, userID uuid.UUID) ([]domain.HourlyRatePeriod, error)
	DeleteRatePeriod(ctx context.Context, a *actor.Actor, id uuid.UUID) error
}

// OvertimeService manages per-user overtime policies
type OvertimeService interface {
	Policy(ctx context.Context, userID uuid.UUID) (domain.OvertimeConfig, error)
	Upsert(ctx context.Context, a *actor.Actor, cfg *domain.OvertimeConfig) error
}

// EditRequestService runs the edit request workflow
type EditRequestService interface {
	Create(ctx context.Context, a *actor.Actor, in service.CreateEditRequestInput) (*domain.PayrollEditRequest, error)
	Resolve(ctx context.Context, a *actor.Actor, id uuid.UUID, decision domain.Decision, rejectionReason *string) (*domain.PayrollEditRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.PayrollEditRequest, error)
	ListForPayroll(ctx context.Context, payrollID uuid.UUID) ([]domain.PayrollEditRequest, error)
	ListAssigned(ctx context.Context, assignee uuid.UUID, status *domain.EditRequestStatus) ([]domain.PayrollEditRequest, error)
}

// AttendanceService records check-ins and check-outs
type AttendanceService interface {
	CheckIn(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.AttendanceRecord, error)
	CheckOut(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.AttendanceRecord, error)
	GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.AttendanceRecord, error)
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceRecord, error)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid " + name)
	}
	return id, nil
}

// userParam parses {userId} and checks the caller may read that user's data
func userParam(r *http.Request, required string) (uuid.UUID, error) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		return uuid.Nil, err
	}
	if !permissions.CanAccessUser(actor.FromContext(r.Context()), userID.String(), required) {
		return uuid.Nil, errors.Forbidden("not allowed to access this user")
	}
	return userID, nil
}

func dateQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.ValidationField(name, "this field is required")
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.ValidationField(name, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationField(name, "must be an integer")
	}
	return v, nil
}

// periodQuery reads month and year, both required
func periodQuery(r *http.Request) (month, year int, err error) {
	if month, err = intQuery(r, "month", 0); err != nil {
		return 0, 0, err
	}
	if year, err = intQuery(r, "year", 0); err != nil {
		return 0, 0, err
	}
	if err := domain.ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}
