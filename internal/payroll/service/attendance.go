package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/events"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
)

// AttendanceService records check-ins and check-outs and closes days left open
type AttendanceService struct {
	attendance AttendanceStore
	tx         Transactor
	trigger    RecalculationTrigger
	publisher  *events.PayrollEventPublisher
	logger     *logger.Logger

	loc               *time.Location
	autoCheckoutAfter time.Duration
}

// NewAttendanceService creates a new attendance service. Work dates are
// taken in loc; a day left open is closed autoCheckoutAfter its check-in.
func NewAttendanceService(
	attendance AttendanceStore,
	tx Transactor,
	trigger RecalculationTrigger,
	publisher *events.PayrollEventPublisher,
	loc *time.Location,
	autoCheckoutAfter time.Duration,
	log *logger.Logger,
) *AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		attendance:        attendance,
		tx:                tx,
		trigger:           trigger,
		publisher:         publisher,
		logger:            log,
		loc:               loc,
		autoCheckoutAfter: autoCheckoutAfter,
	}
}

// CheckIn opens the user's day. Checking in again on the same day reopens
// it, keeping the first check-in time.
func (s *AttendanceService) CheckIn(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.AttendanceRecord, error) {
	workDate := domain.DateOf(at, s.loc)

	var rec *domain.AttendanceRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.attendance.UpsertCheckIn(ctx, userID, workDate, at)
		if err != nil {
			return err
		}
		return s.attendance.AddEvent(ctx, &domain.AttendanceEvent{
			AttendanceID: rec.ID,
			Kind:         domain.AttendanceCheckIn,
			OccurredAt:   at,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("date", workDate.Format(domain.DateLayout)).
		Msg("checked in")
	s.publisher.PublishAttendance(ctx, domain.AttendanceCheckIn, rec)
	s.trigger.TriggerForDay(ctx, userID, rec.WorkDate)
	return rec, nil
}

// CheckOut closes the user's most recent open day. A check-out more than
// 24h from its check-in is rejected before anything is written.
func (s *AttendanceService) CheckOut(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.AttendanceRecord, error) {
	var rec *domain.AttendanceRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.attendance.LatestOpen(ctx, userID)
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.ValidationField("attendance", "no open check-in")
		}
		if err := domain.ValidateCheckOut(rec.CheckInTime, at); err != nil {
			return err
		}

		closed, err := s.attendance.Close(ctx, rec.ID, at)
		if err != nil {
			return err
		}
		if !closed {
			return errors.ValidationField("attendance", "no open check-in")
		}
		rec.CheckOutTime = &at

		return s.attendance.AddEvent(ctx, &domain.AttendanceEvent{
			AttendanceID: rec.ID,
			Kind:         domain.AttendanceCheckOut,
			OccurredAt:   at,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("date", rec.WorkDate.Format(domain.DateLayout)).
		Msg("checked out")
	s.publisher.PublishAttendance(ctx, domain.AttendanceCheckOut, rec)
	s.trigger.TriggerForDay(ctx, userID, rec.WorkDate)
	return rec, nil
}

// SweepStaleCheckIns closes every record still open from a previous day.
// Each record is closed at check-in plus the configured shift length,
// capped at the end of its work date. Returns how many were closed.
func (s *AttendanceService) SweepStaleCheckIns(ctx context.Context, now time.Time) (int, error) {
	today := domain.DateOf(now, s.loc)

	stale, err := s.attendance.ListStaleOpen(ctx, today)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range stale {
		rec := &stale[i]
		ok, err := s.autoClose(ctx, rec)
		if err != nil {
			s.logger.Error().Err(err).
				Str("attendance_id", rec.ID.String()).
				Msg("failed to auto check-out")
			continue
		}
		if !ok {
			continue
		}
		closed++

		s.publisher.PublishAttendance(ctx, domain.AttendanceAutoCheckOut, rec)
		s.trigger.TriggerForDay(ctx, rec.UserID, rec.WorkDate)
	}

	s.logger.Info().Int("stale", len(stale)).Int("closed", closed).Msg("stale check-in sweep finished")
	return closed, nil
}

func (s *AttendanceService) autoClose(ctx context.Context, rec *domain.AttendanceRecord) (bool, error) {
	at := domain.AutoCheckoutTime(rec.CheckInTime, rec.WorkDate, s.autoCheckoutAfter, s.loc)

	var closed bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		closed, err = s.attendance.Close(ctx, rec.ID, at)
		if err != nil || !closed {
			return err
		}
		return s.attendance.AddEvent(ctx, &domain.AttendanceEvent{
			AttendanceID: rec.ID,
			Kind:         domain.AttendanceAutoCheckOut,
			OccurredAt:   at,
		})
	})
	if err != nil {
		return false, err
	}
	if closed {
		rec.CheckOutTime = &at
	}
	return closed, nil
}

// GetDay returns a user's record for one work date with its ledger
func (s *AttendanceService) GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.AttendanceRecord, error) {
	rec, err := s.attendance.Get(ctx, userID, domain.TruncateDate(day))
	if err != nil {
		return nil, err
	}

	rec.Events, err = s.attendance.ListEvents(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRange returns a user's records in [from, to] with their ledgers
func (s *AttendanceService) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceRecord, error) {
	if to.Before(from) {
		return nil, errors.ValidationField("to", "must not be before from")
	}

	records, err := s.attendance.ListRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}

	for i := range records {
		evs, err := s.attendance.ListEvents(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Events = evs
	}
	return records, nil
}
