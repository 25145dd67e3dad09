package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
)

// The services depend on these narrow views of the repositories so they can
// be exercised without a database. The repository package satisfies all of them.

// Transactor runs fn in a transaction carried by the context
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AttendanceStore persists attendance records and their ledger
type AttendanceStore interface {
	UpsertCheckIn(ctx context.Context, userID uuid.UUID, workDate, at time.Time) (*domain.AttendanceRecord, error)
	LatestOpen(ctx context.Context, userID uuid.UUID) (*domain.AttendanceRecord, error)
	Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Get(ctx context.Context, userID uuid.UUID, workDate time.Time) (*domain.AttendanceRecord, error)
	AddEvent(ctx context.Context, ev *domain.AttendanceEvent) error
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceRecord, error)
	ListStaleOpen(ctx context.Context, before time.Time) ([]domain.AttendanceRecord, error)
	ListEvents(ctx context.Context, attendanceID uuid.UUID) ([]domain.AttendanceEvent, error)
}

// RatePeriodStore persists hourly rate periods
type RatePeriodStore interface {
	Create(ctx context.Context, p *domain.HourlyRatePeriod) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.HourlyRatePeriod, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.HourlyRatePeriod, error)
	ListOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.HourlyRatePeriod, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OvertimeConfigStore persists per-user overtime policies
type OvertimeConfigStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.OvertimeConfig, error)
	Upsert(ctx context.Context, cfg *domain.OvertimeConfig) error
}

// OverrideStore persists daily overrides
type OverrideStore interface {
	Create(ctx context.Context, o *domain.DailyOverride) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyOverride, error)
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyOverride, error)
	Update(ctx context.Context, o *domain.DailyOverride) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PayrollStore persists monthly payrolls
type PayrollStore interface {
	Create(ctx context.Context, p *domain.Payroll) error
	CreateIfAbsent(ctx context.Context, p *domain.Payroll) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payroll, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payroll, error)
	GetByPeriod(ctx context.Context, userID uuid.UUID, month, year int) (*domain.Payroll, error)
	List(ctx context.Context, f domain.PayrollFilter) ([]domain.Payroll, int64, error)
	UpdateFigures(ctx context.Context, p *domain.Payroll) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PayrollStatus, by *uuid.UUID, at time.Time) (bool, error)
}

// EditRequestStore persists payroll edit requests
type EditRequestStore interface {
	Create(ctx context.Context, req *domain.PayrollEditRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayrollEditRequest, error)
	ListForPayroll(ctx context.Context, payrollID uuid.UUID) ([]domain.PayrollEditRequest, error)
	ListAssigned(ctx context.Context, assignee uuid.UUID, status *domain.EditRequestStatus) ([]domain.PayrollEditRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, status domain.EditRequestStatus, by *uuid.UUID, at time.Time, rejectionReason *string) (bool, error)
}

// ProfileStore reads and maintains the employee profile projection
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.EmployeeProfile, error)
	FindCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*domain.EmployeeProfile, error)
	Upsert(ctx context.Context, p *domain.EmployeeProfile) error
}

// TaskStore writes the status of linked tasks
type TaskStore interface {
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// RecalculationTrigger is notified after any change that can move a day's hours
type RecalculationTrigger interface {
	TriggerForDay(ctx context.Context, userID uuid.UUID, day time.Time)
}
