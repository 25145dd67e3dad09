package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func attendance(date string, hours float64) *AttendanceRecord {
	in := day(date).Add(8 * time.Hour)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return &AttendanceRecord{ID: uuid.New(), WorkDate: day(date), CheckInTime: in, CheckOutTime: &out}
}

var defaultPolicy = OvertimeConfig{WeeklyThresholdHours: d("40"), OvertimeMultiplier: d("1.5")}

// ============================================================================
// DATES
// ============================================================================

func TestWeekStart(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-03-04", "2024-03-04"}, // Monday
		{"2024-03-08", "2024-03-04"}, // Friday
		{"2024-03-10", "2024-03-04"}, // Sunday
		{"2024-01-01", "2024-01-01"},
		{"2023-01-01", "2022-12-26"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(day(tt.date)).Format(DateLayout))
		})
	}
}

func TestMonthRange(t *testing.T) {
	first, last := MonthRange(2024, 2)
	assert.Equal(t, "2024-02-01", first.Format(DateLayout))
	assert.Equal(t, "2024-02-29", last.Format(DateLayout))

	count := 0
	EachDay(first, last, func(time.Time) { count++ })
	assert.Equal(t, 29, count)
}

func TestValidatePeriod(t *testing.T) {
	assert.NoError(t, ValidatePeriod(1, 2024))
	assert.NoError(t, ValidatePeriod(12, 9999))

	for _, tt := range []struct{ month, year int }{{0, 2024}, {13, 2024}, {6, 1969}, {6, 10000}} {
		err := ValidatePeriod(tt.month, tt.year)
		assert.True(t, errors.Is(err, errors.ErrValidation), "month=%d year=%d", tt.month, tt.year)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-08"), got)

	_, err = ParseDate("08/03/2024")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

// ============================================================================
// ATTENDANCE
// ============================================================================

func TestWorkedHours(t *testing.T) {
	t.Run("closed day", func(t *testing.T) {
		h, anomaly := attendance("2024-03-04", 7.5).WorkedHours()
		assertDecimal(t, "7.5", h)
		assert.Nil(t, anomaly)
	})

	t.Run("open day is zero", func(t *testing.T) {
		a := &AttendanceRecord{WorkDate: day("2024-03-04"), CheckInTime: day("2024-03-04").Add(9 * time.Hour)}
		h, anomaly := a.WorkedHours()
		assert.True(t, h.IsZero())
		assert.Nil(t, anomaly)
		assert.True(t, a.IsOpen())
	})

	t.Run("missing record is zero", func(t *testing.T) {
		var a *AttendanceRecord
		h, _ := a.WorkedHours()
		assert.True(t, h.IsZero())
	})

	t.Run("negative pair uses absolute value", func(t *testing.T) {
		in := day("2024-03-04").Add(17 * time.Hour)
		out := day("2024-03-04").Add(9 * time.Hour)
		a := &AttendanceRecord{CheckInTime: in, CheckOutTime: &out}

		h, anomaly := a.WorkedHours()
		assertDecimal(t, "8", h)
		require.NotNil(t, anomaly)
		assert.Equal(t, AnomalyNegativeHours, anomaly.Kind)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		in := day("2024-03-04").Add(9 * time.Hour)
		out := in.Add(7*time.Hour + 20*time.Minute)
		a := &AttendanceRecord{CheckInTime: in, CheckOutTime: &out}
		h, _ := a.WorkedHours()
		assertDecimal(t, "7.33", h)
	})
}

func TestValidateCheckOut(t *testing.T) {
	in := day("2024-03-04").Add(9 * time.Hour)

	tests := []struct {
		name    string
		out     time.Time
		wantErr bool
	}{
		{"same day", in.Add(8 * time.Hour), false},
		{"past midnight", day("2024-03-05").Add(6 * time.Hour), false},
		{"exactly 24h", in.Add(24 * time.Hour), false},
		{"two days later", day("2024-03-06").Add(17 * time.Hour), true},
		{"just over 24h", in.Add(24*time.Hour + time.Minute), true},
		{"far before check-in", in.Add(-25 * time.Hour), true},
		{"before check-in within a day", in.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCheckOut(in, tt.out)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAutoCheckoutTime(t *testing.T) {
	workDate := day("2024-03-04")

	early := workDate.Add(8 * time.Hour)
	assert.Equal(t, early.Add(8*time.Hour), AutoCheckoutTime(early, workDate, 8*time.Hour, time.UTC))

	late := workDate.Add(20 * time.Hour)
	got := AutoCheckoutTime(late, workDate, 8*time.Hour, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 23, 59, 59, 0, time.UTC), got)
}

// ============================================================================
// RATE PERIODS
// ============================================================================

func TestPickRatePeriod(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	march := HourlyRatePeriod{ID: uuid.New(), StartDate: day("2024-03-01"), EndDate: day("2024-03-31"), HourlyRate: d("20"), CreatedAt: base}
	april := HourlyRatePeriod{ID: uuid.New(), StartDate: day("2024-04-01"), EndDate: day("2024-04-30"), HourlyRate: d("22"), CreatedAt: base}

	t.Run("inclusive bounds", func(t *testing.T) {
		for _, date := range []string{"2024-03-01", "2024-03-31"} {
			p, ambiguous := PickRatePeriod([]HourlyRatePeriod{march, april}, day(date))
			require.NotNil(t, p)
			assert.Equal(t, march.ID, p.ID)
			assert.False(t, ambiguous)
		}
	})

	t.Run("no match", func(t *testing.T) {
		p, _ := PickRatePeriod([]HourlyRatePeriod{march}, day("2024-05-01"))
		assert.Nil(t, p)
	})

	t.Run("overlap picks earliest created", func(t *testing.T) {
		later := HourlyRatePeriod{ID: uuid.New(), StartDate: day("2024-03-15"), EndDate: day("2024-03-20"), HourlyRate: d("30"), CreatedAt: base.Add(time.Hour)}
		p, ambiguous := PickRatePeriod([]HourlyRatePeriod{later, march}, day("2024-03-16"))
		require.NotNil(t, p)
		assert.Equal(t, march.ID, p.ID)
		assert.True(t, ambiguous)
	})
}

func TestResolveRate(t *testing.T) {
	periods := []HourlyRatePeriod{{StartDate: day("2024-03-01"), EndDate: day("2024-03-31"), HourlyRate: d("20")}}

	rate, _ := ResolveRate(periods, day("2024-03-10"), Some(d("15")))
	assertDecimal(t, "20", rate.Decimal)

	rate, _ = ResolveRate(periods, day("2024-04-10"), Some(d("15")))
	assertDecimal(t, "15", rate.Decimal)

	rate, _ = ResolveRate(nil, day("2024-04-10"), decimal.NullDecimal{})
	assert.False(t, rate.Valid)
}

func TestHourlyRatePeriod_Validate(t *testing.T) {
	ok := HourlyRatePeriod{StartDate: day("2024-03-01"), EndDate: day("2024-03-01"), HourlyRate: d("1")}
	assert.NoError(t, ok.Validate())

	bad := HourlyRatePeriod{StartDate: day("2024-03-02"), EndDate: day("2024-03-01"), HourlyRate: d("0")}
	var appErr *errors.AppError
	require.ErrorAs(t, bad.Validate(), &appErr)
	assert.Contains(t, appErr.Details, "end_date")
	assert.Contains(t, appErr.Details, "hourly_rate")
}

// ============================================================================
// OVERTIME
// ============================================================================

func TestSplitWeeklyOvertime(t *testing.T) {
	tests := []struct {
		name              string
		prior, hours      string
		regular, overtime string
	}{
		{"under threshold", "0", "8", "8", "0"},
		{"reaches threshold exactly", "30", "10", "10", "0"},
		{"crosses threshold", "36", "8", "4", "4"},
		{"already past threshold", "40", "4", "0", "4"},
		{"zero hours", "50", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := SplitWeeklyOvertime(d(tt.prior), d(tt.hours), d("40"))
			assertDecimal(t, tt.regular, split.RegularHours)
			assertDecimal(t, tt.overtime, split.OvertimeHours)
		})
	}
}

func TestOvertimeSplit_Pay(t *testing.T) {
	for _, tt := range []struct{ regular, overtime, rate, mult string }{
		{"8", "0", "20", "1.5"},
		{"4", "4", "25", "2"},
		{"0", "3.25", "18.40", "1.5"},
	} {
		split := OvertimeSplit{RegularHours: d(tt.regular), OvertimeHours: d(tt.overtime)}
		regularPay, overtimePay := split.Pay(d(tt.rate), d(tt.mult))

		assertDecimal(t, d(tt.regular).Mul(d(tt.rate)).Round(2).String(), regularPay)
		assertDecimal(t, d(tt.overtime).Mul(d(tt.rate)).Mul(d(tt.mult)).Round(2).String(), overtimePay)
	}
}

func TestOvertimeConfig_Validate(t *testing.T) {
	assert.NoError(t, defaultPolicy.Validate())

	bad := OvertimeConfig{WeeklyThresholdHours: d("-1"), OvertimeMultiplier: d("0.5")}
	var appErr *errors.AppError
	require.ErrorAs(t, bad.Validate(), &appErr)
	assert.Len(t, appErr.Details, 2)
}

// ============================================================================
// DAILY EARNINGS
// ============================================================================

func TestComputeDay_WeeklyOvertimeScenario(t *testing.T) {
	rate := Some(d("20"))
	days := []struct {
		date  string
		hours float64
	}{
		{"2024-03-04", 10}, {"2024-03-05", 10}, {"2024-03-06", 10}, {"2024-03-07", 10}, {"2024-03-08", 4},
	}

	prior := decimal.Zero
	var results []DailyEarnings
	for _, dd := range days {
		a := attendance(dd.date, dd.hours)
		out := ComputeDay(DayInputs{Date: day(dd.date), Attendance: a, Rate: rate, PriorWeekHours: prior, Policy: defaultPolicy})
		results = append(results, out)
		prior = prior.Add(out.Hours)
	}

	for _, r := range results[:4] {
		assertDecimal(t, "10", r.RegularHours, r.Date)
		assertDecimal(t, "0", r.OvertimeHours, r.Date)
		assertDecimal(t, "200", r.Earnings, r.Date)
	}

	friday := results[4]
	assertDecimal(t, "0", friday.RegularHours)
	assertDecimal(t, "4", friday.OvertimeHours)
	assertDecimal(t, "120", friday.Earnings)
	assertDecimal(t, "920", SumEarnings(results))
	assertDecimal(t, "44", SumHours(results))
}

func TestComputeDay_Idempotent(t *testing.T) {
	in := DayInputs{
		Date:           day("2024-03-06"),
		Attendance:     attendance("2024-03-06", 9),
		Rate:           Some(d("25")),
		PriorWeekHours: d("35"),
		Policy:         defaultPolicy,
	}

	first := ComputeDay(in)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, ComputeDay(in))
	}
	assertDecimal(t, "5", first.RegularHours)
	assertDecimal(t, "4", first.OvertimeHours)
	assertDecimal(t, "275", first.Earnings)
}

func TestComputeDay_UnknownRate(t *testing.T) {
	out := ComputeDay(DayInputs{Date: day("2024-03-06"), Attendance: attendance("2024-03-06", 8), Policy: defaultPolicy})
	assertDecimal(t, "8", out.Hours)
	assert.True(t, out.Earnings.IsZero())
	assert.False(t, out.HourlyRate.Valid)
}

func TestComputeDay_NegativeHoursAnomaly(t *testing.T) {
	in := day("2024-03-06").Add(17 * time.Hour)
	out := day("2024-03-06").Add(9 * time.Hour)
	a := &AttendanceRecord{WorkDate: day("2024-03-06"), CheckInTime: in, CheckOutTime: &out}

	res := ComputeDay(DayInputs{Date: day("2024-03-06"), Attendance: a, Rate: Some(d("10")), Policy: defaultPolicy})
	assertDecimal(t, "8", res.Hours)
	assertDecimal(t, "80", res.Earnings)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyNegativeHours, res.Anomalies[0].Kind)
}

func TestComputeDay_EarningsOnlyOverride(t *testing.T) {
	o := &DailyOverride{Earnings: Some(d("500"))}
	res := ComputeDay(DayInputs{
		Date:       day("2024-03-06"),
		Attendance: attendance("2024-03-06", 8),
		Override:   o,
		Rate:       Some(d("25")),
		Policy:     defaultPolicy,
	})

	assert.True(t, res.IsOverride)
	assertDecimal(t, "8", res.Hours)
	assertDecimal(t, "25", res.HourlyRate.Decimal)
	assertDecimal(t, "500", res.Earnings)
}

func TestComputeDay_OverrideFieldFallback(t *testing.T) {
	base := DayInputs{
		Date:       day("2024-03-06"),
		Attendance: attendance("2024-03-06", 8),
		Rate:       Some(d("25")),
		Policy:     defaultPolicy,
	}
	computed := ComputeDay(base)

	t.Run("all null keeps computed values", func(t *testing.T) {
		in := base
		in.Override = &DailyOverride{}
		res := ComputeDay(in)

		assert.True(t, res.IsOverride)
		assert.Equal(t, computed.Hours, res.Hours)
		assert.Equal(t, computed.Earnings, res.Earnings)
		assert.Equal(t, computed.HourlyRate, res.HourlyRate)
	})

	t.Run("zero is an explicit value", func(t *testing.T) {
		in := base
		in.Override = &DailyOverride{TotalHours: Some(decimal.Zero), Earnings: Some(decimal.Zero)}
		res := ComputeDay(in)

		assert.True(t, res.Hours.IsZero())
		assert.True(t, res.Earnings.IsZero())
		assertDecimal(t, "8", res.RegularHours)
	})

	t.Run("rate alone does not reprice the day", func(t *testing.T) {
		in := base
		in.Override = &DailyOverride{HourlyRate: Some(d("30"))}
		res := ComputeDay(in)

		assertDecimal(t, "30", res.HourlyRate.Decimal)
		assertDecimal(t, "200", res.Earnings)
		assertDecimal(t, "200", res.RegularPay)
		assert.True(t, res.OvertimePay.IsZero())
	})

	t.Run("every field overridden", func(t *testing.T) {
		in := base
		in.Override = &DailyOverride{
			HourlyRate:    Some(d("30")),
			RegularHours:  Some(d("6")),
			OvertimeHours: Some(d("2")),
			TotalHours:    Some(d("8")),
			Earnings:      Some(d("270")),
		}
		res := ComputeDay(in)

		assertDecimal(t, "30", res.HourlyRate.Decimal)
		assertDecimal(t, "6", res.RegularHours)
		assertDecimal(t, "2", res.OvertimeHours)
		assertDecimal(t, "8", res.Hours)
		assertDecimal(t, "270", res.Earnings)
	})
}

func TestDailyOverride_Validate(t *testing.T) {
	assert.NoError(t, (&DailyOverride{TotalHours: Some(d("24")), Earnings: Some(decimal.Zero)}).Validate())

	for name, o := range map[string]*DailyOverride{
		"hours above 24":    {TotalHours: Some(d("24.5"))},
		"negative regular":  {RegularHours: Some(d("-1"))},
		"negative rate":     {HourlyRate: Some(d("-3"))},
		"negative earnings": {Earnings: Some(d("-0.01"))},
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(o.Validate(), errors.ErrValidation))
		})
	}
}

func TestOverridePatch_Apply(t *testing.T) {
	note := "corrected"
	o := &DailyOverride{HourlyRate: Some(d("20")), Earnings: Some(d("100"))}

	OverridePatch{TotalHours: ptr(d("6")), Notes: &note, Clear: []string{"earnings"}}.Apply(o)

	assertDecimal(t, "20", o.HourlyRate.Decimal)
	assertDecimal(t, "6", o.TotalHours.Decimal)
	assert.False(t, o.Earnings.Valid)
	assert.Equal(t, &note, o.Notes)
}

func ptr(v decimal.Decimal) *decimal.Decimal {
	return &v
}

// ============================================================================
// PAYROLL
// ============================================================================

func TestNetSalary(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		bonuses    Items
		deductions Items
		want       string
	}{
		{"no items", "3000", nil, nil, "3000"},
		{"bonus and deduction", "3000", Items{{"perf", d("250.50")}}, Items{{"advance", d("100")}}, "3150.5"},
		{"several items", "1000", Items{{"a", d("1")}, {"b", d("2")}}, Items{{"c", d("0.5")}, {"d", d("0.25")}}, "1002.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, NetSalary(d(tt.base), tt.bonuses, tt.deductions))
		})
	}
}

func TestPayroll_ApplyHourlyRecalculation(t *testing.T) {
	p := &Payroll{
		PaymentType: PaymentHourly,
		HourlyRate:  Some(d("20")),
		Bonuses:     Items{{"bonus", d("100")}},
		Deductions:  Items{{"fee", d("40")}},
		Status:      PayrollApproved,
	}
	at := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	p.ApplyHourlyRecalculation(d("160.5"), at)

	assertDecimal(t, "160.5", p.HoursWorked.Decimal)
	assertDecimal(t, "3210", p.BaseSalary)
	assertDecimal(t, "3270", p.NetSalary)
	assert.Equal(t, PayrollApproved, p.Status)
	assert.Equal(t, &at, p.LastRecalculatedAt)
}

func TestPayrollStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PayrollPending.CanTransitionTo(PayrollApproved))
	assert.True(t, PayrollPending.CanTransitionTo(PayrollRejected))
	assert.True(t, PayrollApproved.CanTransitionTo(PayrollPaid))
	assert.False(t, PayrollPending.CanTransitionTo(PayrollPaid))
	assert.False(t, PayrollRejected.CanTransitionTo(PayrollApproved))
	assert.False(t, PayrollPaid.CanTransitionTo(PayrollPending))
}

func TestItems_ScanValue(t *testing.T) {
	var items Items
	require.NoError(t, items.Scan([]byte(`[{"label":"bonus","amount":"12.5"}]`)))
	require.Len(t, items, 1)
	assertDecimal(t, "12.5", items[0].Amount)

	var empty Items
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestItems_Validate(t *testing.T) {
	assert.NoError(t, Items{{"ok", d("1")}}.Validate("bonuses"))
	assert.Error(t, Items{{"", d("1")}}.Validate("bonuses"))
	assert.Error(t, Items{{"neg", d("-1")}}.Validate("deductions"))
}

// ============================================================================
// EDIT REQUESTS
// ============================================================================

func TestPayrollChanges_ApplyTo(t *testing.T) {
	p := &Payroll{
		HoursWorked: Some(d("100")),
		HourlyRate:  Some(d("20")),
		BaseSalary:  d("2000"),
		Bonuses:     Items{{"old", d("50")}},
		Deductions:  Items{{"fee", d("10")}},
	}
	p.RecomputeTotals()

	bonuses := Items{{"new", d("300")}, {"extra", d("20")}}
	changes := PayrollChanges{HoursWorked: ptr(d("110")), Bonuses: &bonuses}
	changes.ApplyTo(p)

	assertDecimal(t, "110", p.HoursWorked.Decimal)
	assertDecimal(t, "2000", p.BaseSalary)
	assert.Equal(t, bonuses, p.Bonuses)
	assertDecimal(t, "320", p.TotalBonuses)
	assertDecimal(t, "10", p.TotalDeductions)
	assertDecimal(t, "2310", p.NetSalary)
}

func TestPayrollChanges_Validate(t *testing.T) {
	assert.True(t, errors.Is((&PayrollChanges{}).Validate(), errors.ErrValidation))
	assert.NoError(t, (&PayrollChanges{BaseSalary: ptr(d("1"))}).Validate())
	assert.Error(t, (&PayrollChanges{HourlyRate: ptr(d("-1"))}).Validate())
}

func TestSnapshotOf_IsACopy(t *testing.T) {
	p := &Payroll{Bonuses: Items{{"a", d("1")}}, BaseSalary: d("10")}
	snap := SnapshotOf(p)

	p.Bonuses[0].Label = "changed"
	assert.Equal(t, "a", snap.Bonuses[0].Label)

	var scanned PayrollSnapshot
	v, err := snap.Value()
	require.NoError(t, err)
	require.NoError(t, scanned.Scan(v))
	assertDecimal(t, "10", scanned.BaseSalary)
}
