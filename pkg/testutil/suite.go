package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/paycore/paycore-backend/pkg/database"
	"github.com/paycore/paycore-backend/pkg/logger"
)

var (
	// one container per test binary
	sharedContainer *PostgresContainer
	sharedDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// payrollTables lists every table of the schema, children first
var payrollTables = []string{
	"payroll_edit_requests",
	"tasks",
	"payrolls",
	"daily_payroll_overrides",
	"overtime_configs",
	"hourly_rate_periods",
	"attendance_events",
	"attendance_records",
	"employee_payment_profiles",
}

// IntegrationSuite gives integration tests a migrated PostgreSQL.
// Create it once in TestMain and call Reset at the top of each test.
type IntegrationSuite struct {
	DB       *database.DB
	Fixtures *FixtureFactory
	Logger   *logger.Logger
}

// NewIntegrationSuite starts the shared container on first use
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	log := logger.New("payroll-test", "test", "warn")

	containerOnce.Do(func() {
		pc, db, err := StartPostgres(ctx)
		if err != nil {
			containerErr = err
			return
		}
		sharedContainer = pc
		sharedDB = database.Wrap(db, log)
	})
	if containerErr != nil {
		return nil, containerErr
	}

	return &IntegrationSuite{
		DB:       sharedDB,
		Fixtures: NewFixtureFactory(),
		Logger:   log,
	}, nil
}

// Reset empties every payroll table
func (s *IntegrationSuite) Reset(t *testing.T) {
	t.Helper()
	query := "TRUNCATE TABLE " + strings.Join(payrollTables, ", ") + " CASCADE"
	if _, err := s.DB.Exec(query); err != nil {
		t.Fatalf("failed to reset payroll tables: %v", err)
	}
}

// TerminateContainer stops the shared container once all tests have run
func TerminateContainer(ctx context.Context) {
	if sharedDB != nil {
		_ = sharedDB.Close()
	}
	if sharedContainer != nil {
		_ = sharedContainer.Terminate(ctx)
	}
}
