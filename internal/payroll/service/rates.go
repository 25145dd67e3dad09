package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// RateService resolves hourly rates and manages rate periods
type RateService struct {
	periods  RatePeriodStore
	profiles ProfileStore
	logger   *logger.Logger
}

// NewRateService creates a new rate service
func NewRateService(periods RatePeriodStore, profiles ProfileStore, log *logger.Logger) *RateService {
	return &RateService{
		periods:  periods,
		profiles: profiles,
		logger:   log,
	}
}

// Resolve returns the hourly rate applicable to a user on a day: the
// covering rate period, else the profile's default rate, else null.
func (s *RateService) Resolve(ctx context.Context, userID uuid.UUID, day time.Time) (decimal.NullDecimal, error) {
	day = domain.TruncateDate(day)

	periods, err := s.periods.ListOverlapping(ctx, userID, day, day)
	if err != nil {
		return decimal.NullDecimal{}, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return decimal.NullDecimal{}, err
	}

	rate, ambiguous := domain.ResolveRate(periods, day, profile.DefaultRate())
	if ambiguous {
		s.warnAmbiguous(userID, day)
	}
	return rate, nil
}

func (s *RateService) warnAmbiguous(userID uuid.UUID, day time.Time) {
	s.logger.Warn().
		Str("user_id", userID.String()).
		Str("date", day.Format(domain.DateLayout)).
		Msg("overlapping hourly rate periods; using the earliest created")
}

// CreateRatePeriodInput is a new rate period as submitted
type CreateRatePeriodInput struct {
	UserID     uuid.UUID
	StartDate  string
	EndDate    string
	HourlyRate decimal.Decimal
}

// CreateRatePeriod validates and stores a rate period. The overlap
// pre-check gives a readable error; the storage exclusion constraint is
// what actually rules out concurrent overlapping inserts.
func (s *RateService) CreateRatePeriod(ctx context.Context, a *actor.Actor, in CreateRatePeriodInput) (*domain.HourlyRatePeriod, error) {
	start, err := domain.ParseDate(in.StartDate)
	if err != nil {
		return nil, errors.ValidationField("start_date", "must be a date in YYYY-MM-DD format")
	}
	end, err := domain.ParseDate(in.EndDate)
	if err != nil {
		return nil, errors.ValidationField("end_date", "must be a date in YYYY-MM-DD format")
	}

	period := &domain.HourlyRatePeriod{
		UserID:     in.UserID,
		StartDate:  start,
		EndDate:    end,
		HourlyRate: in.HourlyRate,
		CreatedBy:  a.IDOrNil(),
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.periods.ListOverlapping(ctx, in.UserID, start, end)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, errors.Conflict("hourly rate period overlaps an existing period for this user")
	}

	if err := s.periods.Create(ctx, period); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", in.UserID.String()).
		Str("start_date", in.StartDate).
		Str("end_date", in.EndDate).
		Str("actor", a.String()).
		Msg("hourly rate period created")

	return period, nil
}

// ListRatePeriods returns a user's rate periods
func (s *RateService) ListRatePeriods(ctx context.Context, userID uuid.UUID) ([]domain.HourlyRatePeriod, error) {
	periods, err := s.periods.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []domain.HourlyRatePeriod{}
	}
	return periods, nil
}

// DeleteRatePeriod removes a rate period
func (s *RateService) DeleteRatePeriod(ctx context.Context, a *actor.Actor, id uuid.UUID) error {
	if err := s.periods.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("period_id", id.String()).Str("actor", a.String()).Msg("hourly rate period deleted")
	return nil
}

// OvertimeService serves per-user overtime policies with a configured default
type OvertimeService struct {
	configs  OvertimeConfigStore
	defaults domain.OvertimeConfig
	logger   *logger.Logger
}

// NewOvertimeService creates a new overtime service. threshold and
// multiplier apply to users without a stored policy.
func NewOvertimeService(configs OvertimeConfigStore, threshold, multiplier decimal.Decimal, log *logger.Logger) *OvertimeService {
	return &OvertimeService{
		configs: configs,
		defaults: domain.OvertimeConfig{
			WeeklyThresholdHours: threshold,
			OvertimeMultiplier:   multiplier,
		},
		logger: log,
	}
}

// Policy returns the user's overtime policy, or the default one
func (s *OvertimeService) Policy(ctx context.Context, userID uuid.UUID) (domain.OvertimeConfig, error) {
	cfg, err := s.configs.Get(ctx, userID)
	if err != nil {
		return domain.OvertimeConfig{}, err
	}
	if cfg == nil {
		def := s.defaults
		def.UserID = userID
		return def, nil
	}
	return *cfg, nil
}

// Upsert stores a user's overtime policy
func (s *OvertimeService) Upsert(ctx context.Context, a *actor.Actor, cfg *domain.OvertimeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info().
		Str("user_id", cfg.UserID.String()).
		Str("threshold", cfg.WeeklyThresholdHours.String()).
		Str("multiplier", cfg.OvertimeMultiplier.String()).
		Str("actor", a.String()).
		Msg("overtime policy updated")
	return nil
}
