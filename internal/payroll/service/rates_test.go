package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateService_Resolve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := e.hourlyEmployee("18")

	_, err := e.rates.CreateRatePeriod(ctx, manager(), CreateRatePeriodInput{
		UserID:     userID,
		StartDate:  "2024-03-01",
		EndDate:    "2024-03-15",
		HourlyRate: testutil.Dec("22.50"),
	})
	require.NoError(t, err)

	tests := []struct {
		day  string
		want string
	}{
		{day: "2024-03-01", want: "22.50"},
		{day: "2024-03-15", want: "22.50"},
		{day: "2024-03-16", want: "18"},
		{day: "2024-02-29", want: "18"},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			rate, err := e.rates.Resolve(ctx, userID, testutil.Date(tt.day))
			require.NoError(t, err)
			require.True(t, rate.Valid)
			testutil.AssertDecimal(t, tt.want, rate.Decimal, "got %s", rate.Decimal)
		})
	}

	rate, err := e.rates.Resolve(ctx, uuid.New(), testutil.Date("2024-03-01"))
	require.NoError(t, err)
	assert.False(t, rate.Valid)
}

func TestRateService_CreateRatePeriod(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	in := CreateRatePeriodInput{UserID: userID, StartDate: "2024-03-01", EndDate: "2024-03-31", HourlyRate: testutil.Dec("20")}
	p, err := e.rates.CreateRatePeriod(ctx, manager(), in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)

	t.Run("overlap is a conflict", func(t *testing.T) {
		_, err := e.rates.CreateRatePeriod(ctx, manager(), CreateRatePeriodInput{
			UserID: userID, StartDate: "2024-03-31", EndDate: "2024-04-30", HourlyRate: testutil.Dec("21"),
		})
		assertConflict(t, err)
	})

	t.Run("adjacent period is fine", func(t *testing.T) {
		_, err := e.rates.CreateRatePeriod(ctx, manager(), CreateRatePeriodInput{
			UserID: userID, StartDate: "2024-04-01", EndDate: "2024-04-30", HourlyRate: testutil.Dec("21"),
		})
		require.NoError(t, err)
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, bad := range []CreateRatePeriodInput{
			{UserID: userID, StartDate: "2025-01-10", EndDate: "2025-01-01", HourlyRate: testutil.Dec("20")},
			{UserID: userID, StartDate: "2025-01-01", EndDate: "2025-01-10", HourlyRate: testutil.Dec("0")},
			{UserID: userID, StartDate: "Jan 1", EndDate: "2025-01-10", HourlyRate: testutil.Dec("20")},
		} {
			_, err := e.rates.CreateRatePeriod(ctx, manager(), bad)
			assertValidation(t, err)
		}
	})

	periods, err := e.rates.ListRatePeriods(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, periods, 2)

	require.NoError(t, e.rates.DeleteRatePeriod(ctx, manager(), p.ID))
	assertNotFound(t, e.rates.DeleteRatePeriod(ctx, manager(), p.ID))
}

func TestOvertimeService_Policy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	def, err := e.overtime.Policy(ctx, userID)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "40", def.WeeklyThresholdHours)
	testutil.AssertDecimal(t, "1.5", def.OvertimeMultiplier)

	cfg := &domain.OvertimeConfig{UserID: userID, WeeklyThresholdHours: testutil.Dec("35"), OvertimeMultiplier: testutil.Dec("2")}
	require.NoError(t, e.overtime.Upsert(ctx, manager(), cfg))

	got, err := e.overtime.Policy(ctx, userID)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "35", got.WeeklyThresholdHours)

	bad := &domain.OvertimeConfig{UserID: userID, WeeklyThresholdHours: testutil.Dec("40"), OvertimeMultiplier: testutil.Dec("0.5")}
	assertValidation(t, e.overtime.Upsert(ctx, manager(), bad))
}

func TestOvertimeService_CustomPolicyDrivesSplit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := e.hourlyEmployee("10")
	require.NoError(t, e.overtime.Upsert(ctx, manager(), &domain.OvertimeConfig{
		UserID: userID, WeeklyThresholdHours: testutil.Dec("4"), OvertimeMultiplier: testutil.Dec("2"),
	}))
	e.work(userID, "2024-03-04", 6)

	day, err := e.earnings.ComputeDailyEarnings(ctx, userID, testutil.Date("2024-03-04"))
	require.NoError(t, err)
	// 4h at 10 plus 2h at 20
	testutil.AssertDecimal(t, "80", day.Earnings)
}
