package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/shopspring/decimal"
)

// FixtureFactory builds payroll domain objects with sensible defaults
type FixtureFactory struct {
	clock time.Time
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp for created_at ordering
func (f *FixtureFactory) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// Date parses a YYYY-MM-DD date or panics
func Date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// Dec parses a decimal or panics
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// PtrDec returns a pointer to the parsed decimal
func PtrDec(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// HourlyProfile creates an hourly-paid employee profile
func (f *FixtureFactory) HourlyProfile(companyID uuid.UUID, rate string) *domain.EmployeeProfile {
	pt := domain.PaymentHourly
	now := f.tick()
	return &domain.EmployeeProfile{
		UserID:      uuid.New(),
		CompanyID:   companyID,
		Role:        actor.RoleEmployee,
		PaymentType: &pt,
		HourlyRate:  domain.Some(Dec(rate)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SalariedProfile creates a salaried employee profile
func (f *FixtureFactory) SalariedProfile(companyID uuid.UUID, monthly string) *domain.EmployeeProfile {
	pt := domain.PaymentSalary
	now := f.tick()
	return &domain.EmployeeProfile{
		UserID:        uuid.New(),
		CompanyID:     companyID,
		Role:          actor.RoleEmployee,
		PaymentType:   &pt,
		MonthlySalary: domain.Some(Dec(monthly)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Attendance creates a closed attendance record starting at 08:00 UTC
func (f *FixtureFactory) Attendance(userID uuid.UUID, date string, hours float64) *domain.AttendanceRecord {
	day := Date(date)
	in := day.Add(8 * time.Hour)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	now := f.tick()
	return &domain.AttendanceRecord{
		ID:           uuid.New(),
		UserID:       userID,
		WorkDate:     day,
		CheckInTime:  in,
		CheckOutTime: &out,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// RatePeriod creates an hourly rate period over [start, end]
func (f *FixtureFactory) RatePeriod(userID uuid.UUID, start, end, rate string) *domain.HourlyRatePeriod {
	return &domain.HourlyRatePeriod{
		ID:         uuid.New(),
		UserID:     userID,
		StartDate:  Date(start),
		EndDate:    Date(end),
		HourlyRate: Dec(rate),
		CreatedAt:  f.tick(),
	}
}

// Payroll creates a pending payroll with totals computed
func (f *FixtureFactory) Payroll(userID uuid.UUID, month, year int, paymentType domain.PaymentType, base string) *domain.Payroll {
	now := f.tick()
	p := &domain.Payroll{
		ID:          uuid.New(),
		UserID:      userID,
		Month:       month,
		Year:        year,
		PaymentType: paymentType,
		BaseSalary:  Dec(base),
		Bonuses:     domain.Items{},
		Deductions:  domain.Items{},
		Status:      domain.PayrollPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.RecomputeTotals()
	return p
}
