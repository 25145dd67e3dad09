package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/internal/payroll/events"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/testutil"
	"github.com/shopspring/decimal"
)

// store is an in-memory stand-in for every repository, enforcing the same
// uniqueness rules the database constraints do.
type store struct {
	mu sync.Mutex

	attendance map[uuid.UUID]*domain.AttendanceRecord
	attEvents  []domain.AttendanceEvent
	periods    map[uuid.UUID]*domain.HourlyRatePeriod
	overtime   map[uuid.UUID]*domain.OvertimeConfig
	overrides  map[uuid.UUID]*domain.DailyOverride
	payrolls   map[uuid.UUID]*domain.Payroll
	requests   map[uuid.UUID]*domain.PayrollEditRequest
	profiles   map[uuid.UUID]*domain.EmployeeProfile
	tasks      map[uuid.UUID]string

	// lockErr, when set, fails GetForUpdate
	lockErr error
	// lockHook, when set, runs inside GetForUpdate like a blocking row lock
	lockHook func(ctx context.Context) error
	tick    time.Time
}

func newStore() *store {
	return &store{
		attendance: map[uuid.UUID]*domain.AttendanceRecord{},
		periods:    map[uuid.UUID]*domain.HourlyRatePeriod{},
		overtime:   map[uuid.UUID]*domain.OvertimeConfig{},
		overrides:  map[uuid.UUID]*domain.DailyOverride{},
		payrolls:   map[uuid.UUID]*domain.Payroll{},
		requests:   map[uuid.UUID]*domain.PayrollEditRequest{},
		profiles:   map[uuid.UUID]*domain.EmployeeProfile{},
		tasks:      map[uuid.UUID]string{},
		tick:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *store) next() time.Time {
	s.tick = s.tick.Add(time.Second)
	return s.tick
}

func inRange(d, from, to time.Time) bool {
	d = domain.TruncateDate(d)
	return !d.Before(domain.TruncateDate(from)) && !d.After(domain.TruncateDate(to))
}

// InTx runs fn directly; the fake has no rollback.
func (s *store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// attendance

type attendanceStore struct{ *store }

func (s attendanceStore) UpsertCheckIn(ctx context.Context, userID uuid.UUID, workDate, at time.Time) (*domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.attendance {
		if r.UserID == userID && r.WorkDate.Equal(workDate) {
			r.CheckOutTime = nil
			cp := *r
			return &cp, nil
		}
	}
	now := s.next()
	r := &domain.AttendanceRecord{ID: uuid.New(), UserID: userID, WorkDate: workDate, CheckInTime: at, CreatedAt: now, UpdatedAt: now}
	s.attendance[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s attendanceStore) LatestOpen(ctx context.Context, userID uuid.UUID) (*domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.AttendanceRecord
	for _, r := range s.attendance {
		if r.UserID == userID && r.IsOpen() && (latest == nil || r.WorkDate.After(latest.WorkDate)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s attendanceStore) Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.attendance[id]
	if !ok || !r.IsOpen() {
		return false, nil
	}
	r.CheckOutTime = &at
	return true, nil
}

func (s attendanceStore) Get(ctx context.Context, userID uuid.UUID, workDate time.Time) (*domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.attendance {
		if r.UserID == userID && r.WorkDate.Equal(workDate) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errors.NotFound("attendance record")
}

func (s attendanceStore) AddEvent(ctx context.Context, ev *domain.AttendanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = uuid.New()
	s.attEvents = append(s.attEvents, *ev)
	return nil
}

func (s attendanceStore) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttendanceRecord
	for _, r := range s.attendance {
		if r.UserID == userID && inRange(r.WorkDate, from, to) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (s attendanceStore) ListStaleOpen(ctx context.Context, before time.Time) ([]domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttendanceRecord
	for _, r := range s.attendance {
		if r.IsOpen() && r.WorkDate.Before(before) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (s attendanceStore) ListEvents(ctx context.Context, attendanceID uuid.UUID) ([]domain.AttendanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttendanceEvent
	for _, ev := range s.attEvents {
		if ev.AttendanceID == attendanceID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *store) addAttendance(r *domain.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[r.ID] = r
}

// ---------------------------------------------------------------------------
// rate periods

type periodStore struct{ *store }

func (s periodStore) Create(ctx context.Context, p *domain.HourlyRatePeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.periods {
		if e.UserID == p.UserID && e.Overlaps(p.StartDate, p.EndDate) {
			return errors.Conflict("hourly rate period overlaps an existing period for this user")
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = s.next()
	cp := *p
	s.periods[p.ID] = &cp
	return nil
}

func (s periodStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.HourlyRatePeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, errors.NotFound("hourly rate period")
	}
	cp := *p
	return &cp, nil
}

func (s periodStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.HourlyRatePeriod, error) {
	return s.ListOverlapping(ctx, userID, time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
}

func (s periodStore) ListOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.HourlyRatePeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HourlyRatePeriod
	for _, p := range s.periods {
		if p.UserID == userID && p.Overlaps(from, to) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s periodStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[id]; !ok {
		return errors.NotFound("hourly rate period")
	}
	delete(s.periods, id)
	return nil
}

// addPeriod bypasses the overlap rule to model rows left by a constraint failure
func (s *store) addPeriod(p *domain.HourlyRatePeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[p.ID] = p
}

// ---------------------------------------------------------------------------
// overtime

type overtimeStore struct{ *store }

func (s overtimeStore) Get(ctx context.Context, userID uuid.UUID) (*domain.OvertimeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.overtime[userID]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (s overtimeStore) Upsert(ctx context.Context, cfg *domain.OvertimeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.UpdatedAt = s.next()
	cp := *cfg
	s.overtime[cfg.UserID] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// overrides

type overrideStore struct{ *store }

func (s overrideStore) Create(ctx context.Context, o *domain.DailyOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.overrides {
		if e.UserID == o.UserID && e.WorkDate.Equal(o.WorkDate) {
			return errors.Conflict("an override already exists for this user and date")
		}
	}
	o.ID = uuid.New()
	o.CreatedAt = s.next()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	s.overrides[o.ID] = &cp
	return nil
}

func (s overrideStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.overrides[id]
	if !ok {
		return nil, errors.NotFound("daily payroll override")
	}
	cp := *o
	return &cp, nil
}

func (s overrideStore) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DailyOverride
	for _, o := range s.overrides {
		if o.UserID == userID && inRange(o.WorkDate, from, to) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (s overrideStore) Update(ctx context.Context, o *domain.DailyOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[o.ID]; !ok {
		return errors.NotFound("daily payroll override")
	}
	o.UpdatedAt = s.next()
	cp := *o
	s.overrides[o.ID] = &cp
	return nil
}

func (s overrideStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[id]; !ok {
		return errors.NotFound("daily payroll override")
	}
	delete(s.overrides, id)
	return nil
}

// ---------------------------------------------------------------------------
// payrolls

type payrollStore struct{ *store }

func (s payrollStore) insert(p *domain.Payroll) bool {
	for _, e := range s.payrolls {
		if e.UserID == p.UserID && e.Month == p.Month && e.Year == p.Year {
			return false
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = s.next()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.payrolls[p.ID] = &cp
	return true
}

func (s payrollStore) Create(ctx context.Context, p *domain.Payroll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insert(p) {
		return errors.Conflict("payroll already exists for this user and period")
	}
	return nil
}

func (s payrollStore) CreateIfAbsent(ctx context.Context, p *domain.Payroll) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(p), nil
}

func (s payrollStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payroll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payrolls[id]
	if !ok {
		return nil, errors.NotFound("payroll")
	}
	cp := *p
	return &cp, nil
}

func (s payrollStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payroll, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	if s.lockHook != nil {
		if err := s.lockHook(ctx); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s payrollStore) GetByPeriod(ctx context.Context, userID uuid.UUID, month, year int) (*domain.Payroll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payrolls {
		if p.UserID == userID && p.Month == month && p.Year == year {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.NotFound("payroll")
}

func (s payrollStore) List(ctx context.Context, f domain.PayrollFilter) ([]domain.Payroll, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payroll
	for _, p := range s.payrolls {
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		if f.Year != nil && p.Year != *f.Year {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (s payrollStore) UpdateFigures(ctx context.Context, p *domain.Payroll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.payrolls[p.ID]
	if !ok {
		return errors.NotFound("payroll")
	}
	e.HoursWorked, e.HourlyRate, e.BaseSalary = p.HoursWorked, p.HourlyRate, p.BaseSalary
	e.Bonuses, e.Deductions = p.Bonuses, p.Deductions
	e.TotalBonuses, e.TotalDeductions, e.NetSalary = p.TotalBonuses, p.TotalDeductions, p.NetSalary
	e.LastRecalculatedAt = p.LastRecalculatedAt
	e.UpdatedAt = s.next()
	return nil
}

func (s payrollStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PayrollStatus, by *uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.payrolls[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	switch to {
	case domain.PayrollApproved, domain.PayrollRejected:
		e.ApprovedBy, e.ApprovedAt = by, &at
	case domain.PayrollPaid:
		e.PaidAt = &at
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// edit requests

type requestStore struct{ *store }

func (s requestStore) Create(ctx context.Context, req *domain.PayrollEditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = uuid.New()
	req.Status = domain.EditRequestPending
	req.CreatedAt = s.next()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s requestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayrollEditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, errors.NotFound("payroll edit request")
	}
	cp := *r
	return &cp, nil
}

func (s requestStore) ListForPayroll(ctx context.Context, payrollID uuid.UUID) ([]domain.PayrollEditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PayrollEditRequest
	for _, r := range s.requests {
		if r.PayrollID == payrollID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s requestStore) ListAssigned(ctx context.Context, assignee uuid.UUID, status *domain.EditRequestStatus) ([]domain.PayrollEditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PayrollEditRequest
	for _, r := range s.requests {
		if r.AssignedTo == assignee && (status == nil || r.Status == *status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s requestStore) Resolve(ctx context.Context, id uuid.UUID, status domain.EditRequestStatus, by *uuid.UUID, at time.Time, reason *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != domain.EditRequestPending {
		return false, nil
	}
	r.Status, r.ApprovedBy, r.ApprovedAt, r.RejectionReason = status, by, &at, reason
	return true, nil
}

// ---------------------------------------------------------------------------
// profiles & tasks

type profileStore struct{ *store }

func (s profileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.EmployeeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s profileStore) FindCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*domain.EmployeeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.EmployeeProfile
	for _, p := range s.profiles {
		if p.CompanyID == companyID && p.Role == "admin" && (found == nil || p.CreatedAt.Before(found.CreatedAt)) {
			found = p
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (s profileStore) Upsert(ctx context.Context, p *domain.EmployeeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = s.next()
	}
	p.UpdatedAt = s.next()
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

type taskStore struct{ *store }

func (s taskStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = status
	return nil
}

// ---------------------------------------------------------------------------
// wiring

// recordingTrigger records every day a recalculation was requested for
type recordingTrigger struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTrigger) TriggerForDay(ctx context.Context, userID uuid.UUID, day time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, day.Format(domain.DateLayout))
}

// env is a fully wired set of services over one in-memory store
type env struct {
	store *store
	sink  *testutil.MockPublisher

	rates       *RateService
	overtime    *OvertimeService
	earnings    *EarningsService
	payrolls    *PayrollService
	overrides   *OverrideService
	editReqs    *EditRequestService
	attendance  *AttendanceService
	profilesSvc *ProfileService
}

var fixedNow = time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()

	st := newStore()
	sink := testutil.NewMockPublisher()
	log := logger.Nop()
	pub := events.NewWithSink(sink, log)

	overtime := NewOvertimeService(overtimeStore{st}, decimal.NewFromInt(40), decimal.RequireFromString("1.5"), log)
	earnings := NewEarningsService(attendanceStore{st}, overrideStore{st}, periodStore{st}, profileStore{st}, overtime, log)
	payrolls := NewPayrollService(payrollStore{st}, profileStore{st}, earnings, st, pub, log)
	payrolls.now = func() time.Time { return fixedNow }

	editReqs := NewEditRequestService(requestStore{st}, payrollStore{st}, profileStore{st}, taskStore{st}, st, pub, log)
	editReqs.now = func() time.Time { return fixedNow }

	return &env{
		store:       st,
		sink:        sink,
		rates:       NewRateService(periodStore{st}, profileStore{st}, log),
		overtime:    overtime,
		earnings:    earnings,
		payrolls:    payrolls,
		overrides:   NewOverrideService(overrideStore{st}, payrolls, pub, log),
		editReqs:    editReqs,
		attendance:  NewAttendanceService(attendanceStore{st}, st, payrolls, pub, time.UTC, 8*time.Hour, log),
		profilesSvc: NewProfileService(profileStore{st}, log),
	}
}

// hourlyEmployee stores an hourly profile and returns its user ID
func (e *env) hourlyEmployee(rate string) uuid.UUID {
	f := testutil.NewFixtureFactory()
	p := f.HourlyProfile(uuid.New(), rate)
	e.store.profiles[p.UserID] = p
	return p.UserID
}

// work records a closed attendance day of the given length
func (e *env) work(userID uuid.UUID, date string, hours float64) {
	e.store.addAttendance(testutil.NewFixtureFactory().Attendance(userID, date, hours))
}
