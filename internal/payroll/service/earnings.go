package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// maxRangeDays bounds a single ComputeRange call
const maxRangeDays = 366

// EarningsService resolves daily hours and pay from persisted inputs
type EarningsService struct {
	attendance AttendanceStore
	overrides  OverrideStore
	periods    RatePeriodStore
	profiles   ProfileStore
	overtime   *OvertimeService
	logger     *logger.Logger
}

// NewEarningsService creates a new earnings service
func NewEarningsService(
	attendance AttendanceStore,
	overrides OverrideStore,
	periods RatePeriodStore,
	profiles ProfileStore,
	overtime *OvertimeService,
	log *logger.Logger,
) *EarningsService {
	return &EarningsService{
		attendance: attendance,
		overrides:  overrides,
		periods:    periods,
		profiles:   profiles,
		overtime:   overtime,
		logger:     log,
	}
}

// ComputeDailyEarnings resolves one user's day
func (s *EarningsService) ComputeDailyEarnings(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyEarnings, error) {
	days, err := s.ComputeRange(ctx, userID, day, day)
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

// ComputeRange resolves every day in [from, to]. Inputs are fetched once,
// starting from the Monday of from's week so the weekly overtime total of
// the first day is complete.
func (s *EarningsService) ComputeRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyEarnings, error) {
	from, to = domain.TruncateDate(from), domain.TruncateDate(to)
	if to.Before(from) {
		return nil, errors.ValidationField("to", "must not be before from")
	}
	if to.Sub(from) >= maxRangeDays*24*time.Hour {
		return nil, errors.ValidationField("to", "range must not exceed 366 days")
	}

	weekStart := domain.WeekStart(from)

	records, err := s.attendance.ListRange(ctx, userID, weekStart, to)
	if err != nil {
		return nil, err
	}
	overrides, err := s.overrides.ListRange(ctx, userID, weekStart, to)
	if err != nil {
		return nil, err
	}
	periods, err := s.periods.ListOverlapping(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	policy, err := s.overtime.Policy(ctx, userID)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*domain.AttendanceRecord, len(records))
	for i := range records {
		byDay[records[i].WorkDate.Format(domain.DateLayout)] = &records[i]
	}
	overrideByDay := make(map[string]*domain.DailyOverride, len(overrides))
	for i := range overrides {
		overrideByDay[overrides[i].WorkDate.Format(domain.DateLayout)] = &overrides[i]
	}

	fallback := profile.DefaultRate()
	weekTotal := decimal.Zero
	result := make([]domain.DailyEarnings, 0, int(to.Sub(from).Hours()/24)+1)

	domain.EachDay(weekStart, to, func(day time.Time) {
		if day.Weekday() == time.Monday {
			weekTotal = decimal.Zero
		}
		key := day.Format(domain.DateLayout)
		att, ovr := byDay[key], overrideByDay[key]

		if !day.Before(from) {
			rate, ambiguous := domain.ResolveRate(periods, day, fallback)
			out := domain.ComputeDay(domain.DayInputs{
				Date:           day,
				Attendance:     att,
				Override:       ovr,
				Rate:           rate,
				PriorWeekHours: weekTotal,
				Policy:         policy,
			})
			if ambiguous {
				out.Anomalies = append(out.Anomalies, domain.Anomaly{
					Kind:    domain.AnomalyAmbiguousRate,
					Message: "overlapping hourly rate periods; earliest created used",
				})
			}
			s.logAnomalies(userID, out)
			result = append(result, out)
		}

		weekTotal = weekTotal.Add(ovr.EffectiveHours(domain.ComputedHours(att)))
	})

	return result, nil
}

func (s *EarningsService) logAnomalies(userID uuid.UUID, day domain.DailyEarnings) {
	for _, a := range day.Anomalies {
		s.logger.Warn().
			Str("user_id", userID.String()).
			Str("date", day.Date).
			Str("anomaly", string(a.Kind)).
			Msg(a.Message)
	}
}
