package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/events"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Override actions reported in events and logs
const (
	overrideCreated = "created"
	overrideUpdated = "updated"
	overrideDeleted = "deleted"
)

// OverrideService manages daily payroll overrides
type OverrideService struct {
	overrides OverrideStore
	trigger   RecalculationTrigger
	publisher *events.PayrollEventPublisher
	logger    *logger.Logger
}

// NewOverrideService creates a new override service
func NewOverrideService(
	overrides OverrideStore,
	trigger RecalculationTrigger,
	publisher *events.PayrollEventPublisher,
	log *logger.Logger,
) *OverrideService {
	return &OverrideService{
		overrides: overrides,
		trigger:   trigger,
		publisher: publisher,
		logger:    log,
	}
}

// CreateOverrideInput is a new override as submitted. Nil value fields stay
// null and fall back to the computed value.
type CreateOverrideInput struct {
	UserID        uuid.UUID
	Date          string
	HourlyRate    *decimal.Decimal
	RegularHours  *decimal.Decimal
	OvertimeHours *decimal.Decimal
	TotalHours    *decimal.Decimal
	Earnings      *decimal.Decimal
	Notes         *string
}

// Create stores an override for a user and day
func (s *OverrideService) Create(ctx context.Context, a *actor.Actor, in CreateOverrideInput) (*domain.DailyOverride, error) {
	day, err := domain.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	o := &domain.DailyOverride{
		UserID:        in.UserID,
		WorkDate:      day,
		HourlyRate:    domain.FromPtr(in.HourlyRate),
		RegularHours:  domain.FromPtr(in.RegularHours),
		OvertimeHours: domain.FromPtr(in.OvertimeHours),
		TotalHours:    domain.FromPtr(in.TotalHours),
		Earnings:      domain.FromPtr(in.Earnings),
		Notes:         in.Notes,
		CreatedBy:     a.IDOrNil(),
		UpdatedBy:     a.IDOrNil(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if err := s.overrides.Create(ctx, o); err != nil {
		return nil, err
	}

	s.afterChange(ctx, a, o, overrideCreated)
	return o, nil
}

// Update applies a field-level patch to a stored override
func (s *OverrideService) Update(ctx context.Context, a *actor.Actor, id uuid.UUID, patch domain.OverridePatch) (*domain.DailyOverride, error) {
	o, err := s.overrides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(o)
	o.UpdatedBy = a.IDOrNil()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if err := s.overrides.Update(ctx, o); err != nil {
		return nil, err
	}

	s.afterChange(ctx, a, o, overrideUpdated)
	return o, nil
}

// Delete removes an override
func (s *OverrideService) Delete(ctx context.Context, a *actor.Actor, id uuid.UUID) error {
	o, err := s.overrides.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.overrides.Delete(ctx, id); err != nil {
		return err
	}

	s.afterChange(ctx, a, o, overrideDeleted)
	return nil
}

// Get returns one override
func (s *OverrideService) Get(ctx context.Context, id uuid.UUID) (*domain.DailyOverride, error) {
	return s.overrides.GetByID(ctx, id)
}

// ListForMonth returns a user's overrides within a month
func (s *OverrideService) ListForMonth(ctx context.Context, userID uuid.UUID, month, year int) ([]domain.DailyOverride, error) {
	if err := domain.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	from, to := domain.MonthRange(year, month)

	overrides, err := s.overrides.ListRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		overrides = []domain.DailyOverride{}
	}
	return overrides, nil
}

// afterChange runs once the mutation is durable. Neither step can fail the mutation.
func (s *OverrideService) afterChange(ctx context.Context, a *actor.Actor, o *domain.DailyOverride, action string) {
	s.logger.Info().
		Str("override_id", o.ID.String()).
		Str("user_id", o.UserID.String()).
		Str("date", o.WorkDate.Format(domain.DateLayout)).
		Str("action", action).
		Str("actor", a.String()).
		Msg("daily override changed")

	actorID := ""
	if !a.IsSystem() {
		actorID = a.ID.String()
	}
	s.publisher.PublishOverrideChanged(ctx, o, action, actorID)
	s.trigger.TriggerForDay(ctx, o.UserID, o.WorkDate)
}
